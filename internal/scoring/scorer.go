package scoring

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"curator/internal/config"
	"curator/internal/logging"
	"curator/internal/services"
	"curator/internal/suggest"
)

// Flag values attached to scored suggestions. Flags containing "bad",
// "missing", or "error" reduce the quality score; the rest are advisory.
const (
	FlagEmptyValue       = "bad-empty-value"
	FlagBadConfidence    = "bad-confidence"
	FlagPathSeparator    = "bad-path-separator"
	FlagControlChars     = "bad-control-chars"
	FlagMissingExtension = "missing-extension"
	FlagMissingReasoning = "missing-reasoning"
	FlagProcessingError  = "processing-error"
	FlagExtensionChanged = "extension-changed"
	FlagGenericTerm      = "generic-term"
	FlagNearIdentical    = "near-identical"
	FlagMixedSeparators  = "mixed-separators"
	FlagInconsistentCase = "inconsistent-case"
	FlagThinReasoning    = "thin-reasoning"
	FlagSizeTermMismatch = "size-term-mismatch"
	FlagValueTooLong     = "value-too-long"
)

// Weights holds the scoring component weights. Each must be non-negative and
// together they must sum to at most 1.0.
type Weights struct {
	Structural  float64
	Alignment   float64
	Consistency float64
	Convention  float64
}

// Scorer validates raw suggestions against their file context and produces
// ranked, quality-scored results.
type Scorer struct {
	weights    Weights
	maxPerFile int
	logger     *slog.Logger
}

// New constructs a Scorer from application config.
func New(cfg *config.Config, logger *slog.Logger) (*Scorer, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrContract, "scoring", "new", "config is required", nil)
	}
	weights := Weights{
		Structural:  cfg.Scoring.StructuralWeight,
		Alignment:   cfg.Scoring.AlignmentWeight,
		Consistency: cfg.Scoring.ConsistencyWeight,
		Convention:  cfg.Scoring.ConventionWeight,
	}
	return NewWithWeights(weights, cfg.Scoring.MaxPerFile, logger)
}

// NewWithWeights constructs a Scorer with explicit weights, primarily for
// tests and callers that tune scoring per run.
func NewWithWeights(weights Weights, maxPerFile int, logger *slog.Logger) (*Scorer, error) {
	for name, weight := range map[string]float64{
		"structural":  weights.Structural,
		"alignment":   weights.Alignment,
		"consistency": weights.Consistency,
		"convention":  weights.Convention,
	} {
		if weight < 0 {
			return nil, services.Wrap(services.ErrConfiguration, "scoring", "new",
				fmt.Sprintf("%s weight must be >= 0", name), nil)
		}
	}
	sum := weights.Structural + weights.Alignment + weights.Consistency + weights.Convention
	if sum > 1.0 {
		return nil, services.Wrap(services.ErrConfiguration, "scoring", "new",
			fmt.Sprintf("weights must sum to at most 1.0, got %.2f", sum), nil)
	}
	if maxPerFile <= 0 {
		maxPerFile = 5
	}
	return &Scorer{
		weights:    weights,
		maxPerFile: maxPerFile,
		logger:     logging.NewComponentLogger(logger, "scoring"),
	}, nil
}

// Score validates and ranks the suggestions for a single file. A failure while
// scoring one suggestion never aborts the set; the failed item degrades to a
// zero-confidence entry flagged processing-error. Results are ordered by
// quality score, then adjusted confidence, and truncated to the configured
// per-file maximum.
func (s *Scorer) Score(suggestions []suggest.RawSuggestion, fctx suggest.FileContext) []suggest.ScoredSuggestion {
	scored := make([]suggest.ScoredSuggestion, 0, len(suggestions))
	for _, raw := range suggestions {
		scored = append(scored, s.scoreOne(raw, fctx))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].QualityScore != scored[j].QualityScore {
			return scored[i].QualityScore > scored[j].QualityScore
		}
		return scored[i].AdjustedConfidence > scored[j].AdjustedConfidence
	})

	if len(scored) > s.maxPerFile {
		scored = scored[:s.maxPerFile]
	}
	for i := range scored {
		scored[i].Rank = i + 1
		scored[i].Recommended = i == 0 && scored[i].QualityScore >= 50
	}
	return scored
}

func (s *Scorer) scoreOne(raw suggest.RawSuggestion, fctx suggest.FileContext) (result suggest.ScoredSuggestion) {
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(s.logger, "suggestion scoring failed", "scoring_failed",
				logging.String("value", raw.Value),
				logging.Any("panic", r),
			)
			result = suggest.ScoredSuggestion{
				RawSuggestion:   raw,
				ValidationFlags: []string{FlagProcessingError},
			}
			result.Confidence = 0
			result.AdjustedConfidence = 0
			result.QualityScore = 0
		}
	}()

	var flags []string
	confidence := raw.Confidence
	if confidence < 0 || confidence > 100 {
		flags = append(flags, FlagBadConfidence)
		confidence = clamp(confidence, 0, 100)
	}
	raw.OriginalConfidence = raw.Confidence
	raw.Confidence = confidence

	structural := structuralScore(raw.Value, fctx, &flags)
	alignment := alignmentScore(raw.Value, fctx, &flags)
	consistency := consistencyScore(raw, fctx, &flags)
	convention := conventionScore(raw.Value, &flags)

	weighted := structural*s.weights.Structural +
		alignment*s.weights.Alignment +
		consistency*s.weights.Consistency +
		convention*s.weights.Convention

	adjusted := clamp(confidence*weighted/100, 0, 100)
	if hasFlag(flags, FlagGenericTerm) {
		adjusted *= 0.8
	}
	if isSpecific(raw.Value, flags) {
		adjusted = clamp(adjusted*1.1, 0, 100)
	}

	quality := (adjusted + structural + alignment) / 3
	quality -= 5 * float64(penaltyFlagCount(flags))
	quality = clamp(quality, 0, 100)

	return suggest.ScoredSuggestion{
		RawSuggestion:      raw,
		AdjustedConfidence: adjusted,
		QualityScore:       quality,
		ValidationFlags:    flags,
	}
}

// Dedupe removes case-insensitive duplicate values, keeping the first
// occurrence. It is idempotent and independent of scoring.
func (s *Scorer) Dedupe(suggestions []suggest.RawSuggestion) []suggest.RawSuggestion {
	seen := make(map[string]struct{}, len(suggestions))
	out := make([]suggest.RawSuggestion, 0, len(suggestions))
	for _, raw := range suggestions {
		key := strings.ToLower(strings.TrimSpace(raw.Value))
		if _, duplicate := seen[key]; duplicate {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, raw)
	}
	return out
}

func penaltyFlagCount(flags []string) int {
	count := 0
	for _, flag := range flags {
		if strings.Contains(flag, "bad") || strings.Contains(flag, "missing") || strings.Contains(flag, "error") {
			count++
		}
	}
	return count
}

func hasFlag(flags []string, flag string) bool {
	for _, existing := range flags {
		if existing == flag {
			return true
		}
	}
	return false
}

func clamp(value, low, high float64) float64 {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
