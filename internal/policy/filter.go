package policy

import (
	"fmt"
	"log/slog"
	"sort"

	"curator/internal/config"
	"curator/internal/logging"
	"curator/internal/services"
	"curator/internal/suggest"
)

// Filter categorizes scored suggestions against a threshold policy and
// a fixed set of safety patterns. A Filter is immutable after
// construction and safe for concurrent use.
type Filter struct {
	policy ThresholdPolicy
	logger *slog.Logger
}

// New builds a Filter from the policy section of cfg.
func New(cfg *config.Config, logger *slog.Logger) (*Filter, error) {
	return NewWithPolicy(PolicyFromConfig(cfg), logger)
}

// NewWithPolicy builds a Filter from an explicit policy.
func NewWithPolicy(policy ThresholdPolicy, logger *slog.Logger) (*Filter, error) {
	if err := policy.validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "policy", "new", "invalid threshold policy", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Filter{
		policy: policy,
		logger: logging.NewComponentLogger(logger, "policy"),
	}, nil
}

// Policy returns the active threshold policy.
func (f *Filter) Policy() ThresholdPolicy {
	return f.policy
}

// Stats summarizes one categorization call. Histogram buckets cover ten
// confidence points each; the last bucket includes 100. Effectiveness
// is the fraction of items decided without human attention.
type Stats struct {
	Total             int
	AutoApproved      int
	ManualReview      int
	Rejected          int
	AverageConfidence float64
	Histogram         [10]int
	Effectiveness     float64
}

// Result pairs categorized suggestions with the statistics computed for
// the same call.
type Result struct {
	Suggestions []suggest.CategorizedSuggestion
	Stats       Stats
}

// Categorize routes each scored suggestion into auto-approve, manual
// review, or reject. originalPath is the file's current location and
// feeds the safety pass alongside each suggested value. Input order is
// preserved.
func (f *Filter) Categorize(items []suggest.ScoredSuggestion, originalPath string) Result {
	threshold := f.policy.Threshold()
	categorized := make([]suggest.CategorizedSuggestion, 0, len(items))
	for _, item := range items {
		categorized = append(categorized, f.categorizeOne(item, originalPath, threshold))
	}
	f.applyAutoApproveCap(categorized)

	result := Result{Suggestions: categorized, Stats: computeStats(categorized)}
	f.logger.Debug("categorized suggestions",
		logging.String("original_path", originalPath),
		logging.Int("total", result.Stats.Total),
		logging.Int("auto_approved", result.Stats.AutoApproved),
		logging.Int("manual_review", result.Stats.ManualReview),
		logging.Int("rejected", result.Stats.Rejected))
	return result
}

func (f *Filter) categorizeOne(item suggest.ScoredSuggestion, originalPath string, threshold float64) suggest.CategorizedSuggestion {
	confidence := item.AdjustedConfidence / 100
	out := suggest.CategorizedSuggestion{ScoredSuggestion: item, CanOverride: true}

	switch {
	case confidence < MinManualReviewThreshold:
		out.Category = suggest.CategoryReject
		out.Reason = fmt.Sprintf("confidence %s below %s minimum", percent(confidence), percent(MinManualReviewThreshold))
		out.CanOverride = false
	case !f.policy.AutoApproveEnabled:
		out.Category = suggest.CategoryManualReview
		out.Reason = fmt.Sprintf("auto-approval disabled, confidence %s queued for review", percent(confidence))
	case confidence >= threshold:
		out.Category = suggest.CategoryAutoApprove
		out.Reason = fmt.Sprintf("confidence %s ≥ %s threshold", percent(confidence), percent(threshold))
	default:
		out.Category = suggest.CategoryManualReview
		out.Reason = fmt.Sprintf("confidence %s below %s threshold, needs review", percent(confidence), percent(threshold))
	}

	if out.Category != suggest.CategoryAutoApprove {
		return out
	}
	if label, matched := matchDangerous(item.Value, originalPath); matched {
		out.Category = suggest.CategoryManualReview
		out.Reason = fmt.Sprintf("Safety concern: %s match, requires manual review", label)
		f.logger.Warn("dangerous pattern downgraded suggestion",
			logging.String("rule", label),
			logging.String("value", item.Value),
			logging.String("original_path", originalPath))
		return out
	}
	if label, matched := matchCaution(item.Value, originalPath); matched {
		f.logger.Warn("caution pattern matched",
			logging.String("rule", label),
			logging.String("value", item.Value),
			logging.String("original_path", originalPath))
	}
	return out
}

// applyAutoApproveCap downgrades the lowest-confidence auto-approvals
// once the per-call cap is exceeded.
func (f *Filter) applyAutoApproveCap(items []suggest.CategorizedSuggestion) {
	limit := f.policy.MaxAutoApprove
	if limit <= 0 {
		return
	}
	approved := make([]int, 0, len(items))
	for i := range items {
		if items[i].Category == suggest.CategoryAutoApprove {
			approved = append(approved, i)
		}
	}
	if len(approved) <= limit {
		return
	}
	sort.SliceStable(approved, func(a, b int) bool {
		return items[approved[a]].AdjustedConfidence < items[approved[b]].AdjustedConfidence
	})
	for _, idx := range approved[:len(approved)-limit] {
		items[idx].Category = suggest.CategoryManualReview
		items[idx].Reason = fmt.Sprintf("auto-approval cap of %d reached, queued for review", limit)
	}
}

func computeStats(items []suggest.CategorizedSuggestion) Stats {
	stats := Stats{Total: len(items)}
	if len(items) == 0 {
		return stats
	}
	var sum float64
	for _, item := range items {
		switch item.Category {
		case suggest.CategoryAutoApprove:
			stats.AutoApproved++
		case suggest.CategoryManualReview:
			stats.ManualReview++
		case suggest.CategoryReject:
			stats.Rejected++
		}
		sum += item.AdjustedConfidence
		bucket := int(item.AdjustedConfidence / 10)
		if bucket > 9 {
			bucket = 9
		}
		if bucket < 0 {
			bucket = 0
		}
		stats.Histogram[bucket]++
	}
	stats.AverageConfidence = sum / float64(len(items))
	stats.Effectiveness = float64(stats.AutoApproved+stats.Rejected) / float64(len(items))
	return stats
}

func percent(fraction float64) string {
	return fmt.Sprintf("%.0f%%", fraction*100)
}
