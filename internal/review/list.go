package review

import (
	"sort"
	"strings"

	"curator/internal/suggest"
)

// SortKey selects the ordering for listed entries.
type SortKey string

const (
	SortByPriority   SortKey = "priority"
	SortByConfidence SortKey = "confidence"
	SortByArrival    SortKey = "arrival"
)

// ParseSortKey converts a string into a known SortKey.
func ParseSortKey(value string) (SortKey, bool) {
	normalized := SortKey(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case SortByPriority, SortByConfidence, SortByArrival:
		return normalized, true
	default:
		return "", false
	}
}

// ListOptions filters and orders review listings. Results sort
// descending unless Ascending is set; a zero MaxConfidence leaves the
// upper bound open, and a zero Limit returns everything.
type ListOptions struct {
	SortBy        SortKey
	Ascending     bool
	MinConfidence float64
	MaxConfidence float64
	Operation     suggest.OperationType
	PathContains  string
	Limit         int
}

func matchesFilters(entry *suggest.ReviewEntry, opts ListOptions) bool {
	confidence := entry.Suggestion.AdjustedConfidence
	if confidence < opts.MinConfidence {
		return false
	}
	if opts.MaxConfidence > 0 && confidence > opts.MaxConfidence {
		return false
	}
	if opts.Operation != "" && entry.Metadata.Operation != opts.Operation {
		return false
	}
	if opts.PathContains != "" && !strings.Contains(entry.Metadata.OriginalPath, opts.PathContains) {
		return false
	}
	return true
}

func sortEntries(entries []suggest.ReviewEntry, opts ListOptions) {
	key := opts.SortBy
	if key == "" {
		key = SortByPriority
	}
	less := func(a, b suggest.ReviewEntry) bool {
		switch key {
		case SortByConfidence:
			return a.Suggestion.AdjustedConfidence < b.Suggestion.AdjustedConfidence
		case SortByArrival:
			return a.AddedAt.Before(b.AddedAt)
		default:
			return a.Priority < b.Priority
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if opts.Ascending {
			return less(entries[i], entries[j])
		}
		return less(entries[j], entries[i])
	})
}
