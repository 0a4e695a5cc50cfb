package suggest

import "strings"

// Category is the disposition assigned to a scored suggestion.
type Category string

const (
	CategoryAutoApprove  Category = "AUTO_APPROVE"
	CategoryManualReview Category = "MANUAL_REVIEW"
	CategoryReject       Category = "REJECT"
)

var allCategories = []Category{
	CategoryAutoApprove,
	CategoryManualReview,
	CategoryReject,
}

var categorySet = func() map[Category]struct{} {
	set := make(map[Category]struct{}, len(allCategories))
	for _, category := range allCategories {
		set[category] = struct{}{}
	}
	return set
}()

// AllCategories returns the ordered list of known categories.
func AllCategories() []Category {
	cp := make([]Category, len(allCategories))
	copy(cp, allCategories)
	return cp
}

// ParseCategory converts a string into a known Category.
func ParseCategory(value string) (Category, bool) {
	normalized := Category(strings.ToUpper(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := categorySet[normalized]
	return normalized, ok
}

// RawSuggestion is one AI-proposed value for a file, as ingested. Confidence
// is the model's own estimate on a 0-100 scale; OriginalConfidence preserves
// it across scoring adjustments.
type RawSuggestion struct {
	Value              string
	Confidence         float64
	Reasoning          string
	OriginalConfidence float64
}

// FileContext carries the facts about the target file that scoring needs.
type FileContext struct {
	OriginalName string
	Extension    string
	Size         int64
	ParentDir    string
}

// ScoredSuggestion augments a raw suggestion with validation results. Rank is
// 1-based and dense within the suggestion set for a single file.
type ScoredSuggestion struct {
	RawSuggestion
	AdjustedConfidence float64
	QualityScore       float64
	ValidationFlags    []string
	Recommended        bool
	Rank               int
}

// HasFlag reports whether the scored suggestion carries the given validation flag.
func (s ScoredSuggestion) HasFlag(flag string) bool {
	for _, existing := range s.ValidationFlags {
		if existing == flag {
			return true
		}
	}
	return false
}

// CategorizedSuggestion is a scored suggestion with its routing decision.
// CanOverride is false only for rejections; approved and review-bound items
// may later be overridden through the review queue.
type CategorizedSuggestion struct {
	ScoredSuggestion
	Category    Category
	Reason      string
	CanOverride bool
}
