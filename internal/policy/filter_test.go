package policy_test

import (
	"strings"
	"testing"

	"curator/internal/logging"
	"curator/internal/policy"
	"curator/internal/suggest"
)

func newFilter(t *testing.T, p policy.ThresholdPolicy) *policy.Filter {
	t.Helper()
	filter, err := policy.NewWithPolicy(p, logging.NewNop())
	if err != nil {
		t.Fatalf("NewWithPolicy: %v", err)
	}
	return filter
}

func scored(value string, confidence float64) suggest.ScoredSuggestion {
	return suggest.ScoredSuggestion{
		RawSuggestion: suggest.RawSuggestion{
			Value:              value,
			Confidence:         confidence,
			OriginalConfidence: confidence,
		},
		AdjustedConfidence: confidence,
		QualityScore:       confidence,
	}
}

func TestCategorizeAutoApprovesAboveThreshold(t *testing.T) {
	filter := newFilter(t, policy.ThresholdPolicy{
		Profile:            policy.ProfileBalanced,
		AutoApproveEnabled: true,
	})

	result := filter.Categorize([]suggest.ScoredSuggestion{scored("doc.pdf", 95)}, "/home/user/inbox/scan.pdf")
	if len(result.Suggestions) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(result.Suggestions))
	}
	got := result.Suggestions[0]
	if got.Category != suggest.CategoryAutoApprove {
		t.Fatalf("expected AUTO_APPROVE, got %s (%s)", got.Category, got.Reason)
	}
	if !strings.Contains(got.Reason, "95% ≥ 80%") {
		t.Fatalf("expected reason with threshold comparison, got %q", got.Reason)
	}
	if !got.CanOverride {
		t.Fatal("auto-approved suggestion should be overridable")
	}
}

func TestCategorizeDowngradesDangerousPath(t *testing.T) {
	filter := newFilter(t, policy.ThresholdPolicy{
		Profile:            policy.ProfileBalanced,
		AutoApproveEnabled: true,
	})

	result := filter.Categorize([]suggest.ScoredSuggestion{scored("doc.pdf", 95)}, "/System/x.pdf")
	got := result.Suggestions[0]
	if got.Category != suggest.CategoryManualReview {
		t.Fatalf("expected MANUAL_REVIEW downgrade, got %s", got.Category)
	}
	if !strings.Contains(got.Reason, "Safety concern") {
		t.Fatalf("expected safety reason, got %q", got.Reason)
	}
}

func TestCategorizeDangerousValueNeverRejected(t *testing.T) {
	filter := newFilter(t, policy.ThresholdPolicy{
		Profile:            policy.ProfileAggressive,
		AutoApproveEnabled: true,
	})

	values := []string{"installer.exe", "package.json", ".git/config", "/etc/hosts"}
	for _, value := range values {
		result := filter.Categorize([]suggest.ScoredSuggestion{scored(value, 99)}, "/home/user/downloads/file")
		got := result.Suggestions[0]
		if got.Category != suggest.CategoryManualReview {
			t.Fatalf("%q: expected MANUAL_REVIEW, got %s", value, got.Category)
		}
		if !got.CanOverride {
			t.Fatalf("%q: downgraded suggestion must stay overridable", value)
		}
	}
}

func TestCategorizeBelowFloorRejects(t *testing.T) {
	filter := newFilter(t, policy.ThresholdPolicy{
		Profile:            policy.ProfileBalanced,
		AutoApproveEnabled: true,
	})

	result := filter.Categorize([]suggest.ScoredSuggestion{scored("Receipt March.pdf", 20)}, "/home/user/inbox/scan.pdf")
	got := result.Suggestions[0]
	if got.Category != suggest.CategoryReject {
		t.Fatalf("expected REJECT, got %s", got.Category)
	}
	if got.CanOverride {
		t.Fatal("rejected suggestion must not be overridable")
	}
}

func TestCategorizeMidRangeGoesToReview(t *testing.T) {
	filter := newFilter(t, policy.ThresholdPolicy{
		Profile:            policy.ProfileBalanced,
		AutoApproveEnabled: true,
	})

	result := filter.Categorize([]suggest.ScoredSuggestion{scored("Receipt March.pdf", 55)}, "/home/user/inbox/scan.pdf")
	if got := result.Suggestions[0].Category; got != suggest.CategoryManualReview {
		t.Fatalf("expected MANUAL_REVIEW, got %s", got)
	}
}

func TestCategorizeAutoApproveDisabled(t *testing.T) {
	filter := newFilter(t, policy.ThresholdPolicy{
		Profile:            policy.ProfileBalanced,
		AutoApproveEnabled: false,
	})

	result := filter.Categorize([]suggest.ScoredSuggestion{
		scored("Tax Return 2025.pdf", 97),
		scored("Weak Guess.pdf", 12),
	}, "/home/user/inbox/scan.pdf")

	if got := result.Suggestions[0].Category; got != suggest.CategoryManualReview {
		t.Fatalf("expected MANUAL_REVIEW with auto-approval off, got %s", got)
	}
	if got := result.Suggestions[1].Category; got != suggest.CategoryReject {
		t.Fatalf("expected REJECT below floor, got %s", got)
	}
}

func TestThresholdMonotonicity(t *testing.T) {
	items := []suggest.ScoredSuggestion{
		scored("Contract Draft v3.pdf", 72),
		scored("Invoice 2026-01.pdf", 83),
		scored("Passport Scan.pdf", 91),
		scored("Meeting Notes.pdf", 96),
	}

	counts := make(map[policy.Profile]int)
	for _, profile := range []policy.Profile{policy.ProfileConservative, policy.ProfileBalanced, policy.ProfileAggressive} {
		filter := newFilter(t, policy.ThresholdPolicy{Profile: profile, AutoApproveEnabled: true})
		counts[profile] = filter.Categorize(items, "/home/user/inbox/scan.pdf").Stats.AutoApproved
	}

	if counts[policy.ProfileConservative] > counts[policy.ProfileBalanced] ||
		counts[policy.ProfileBalanced] > counts[policy.ProfileAggressive] {
		t.Fatalf("auto-approval counts not monotonic: conservative=%d balanced=%d aggressive=%d",
			counts[policy.ProfileConservative], counts[policy.ProfileBalanced], counts[policy.ProfileAggressive])
	}
}

func TestMaxAutoApproveDowngradesLowestConfidence(t *testing.T) {
	filter := newFilter(t, policy.ThresholdPolicy{
		Profile:            policy.ProfileBalanced,
		AutoApproveEnabled: true,
		MaxAutoApprove:     2,
	})

	result := filter.Categorize([]suggest.ScoredSuggestion{
		scored("Lease Agreement 2026.pdf", 92),
		scored("Utility Bill January.pdf", 99),
		scored("Bank Statement Q1.pdf", 96),
	}, "/home/user/inbox/scan.pdf")

	if result.Stats.AutoApproved != 2 {
		t.Fatalf("expected cap of 2 auto-approvals, got %d", result.Stats.AutoApproved)
	}
	downgraded := result.Suggestions[0]
	if downgraded.Category != suggest.CategoryManualReview {
		t.Fatalf("expected lowest-confidence item downgraded, got %s for %q", downgraded.Category, downgraded.Value)
	}
	if !strings.Contains(downgraded.Reason, "cap") {
		t.Fatalf("expected cap reason, got %q", downgraded.Reason)
	}
}

func TestStats(t *testing.T) {
	filter := newFilter(t, policy.ThresholdPolicy{
		Profile:            policy.ProfileBalanced,
		AutoApproveEnabled: true,
	})

	result := filter.Categorize([]suggest.ScoredSuggestion{
		scored("Medical Records 2026.pdf", 100),
		scored("Receipt March.pdf", 50),
		scored("Blurry Guess.pdf", 10),
	}, "/home/user/inbox/scan.pdf")

	stats := result.Stats
	if stats.Total != 3 || stats.AutoApproved != 1 || stats.ManualReview != 1 || stats.Rejected != 1 {
		t.Fatalf("unexpected category counts: %+v", stats)
	}
	if stats.Histogram[9] != 1 || stats.Histogram[5] != 1 || stats.Histogram[1] != 1 {
		t.Fatalf("unexpected histogram: %v", stats.Histogram)
	}
	wantAvg := (100.0 + 50.0 + 10.0) / 3.0
	if diff := stats.AverageConfidence - wantAvg; diff > 0.001 || diff < -0.001 {
		t.Fatalf("expected average %v, got %v", wantAvg, stats.AverageConfidence)
	}
	wantEff := 2.0 / 3.0
	if diff := stats.Effectiveness - wantEff; diff > 0.001 || diff < -0.001 {
		t.Fatalf("expected effectiveness %v, got %v", wantEff, stats.Effectiveness)
	}
}

func TestNewWithPolicyRejectsInvalid(t *testing.T) {
	cases := []policy.ThresholdPolicy{
		{Profile: "bogus"},
		{Profile: policy.ProfileCustom, CustomThreshold: 0.05},
		{Profile: policy.ProfileCustom, CustomThreshold: 1.50},
		{Profile: policy.ProfileBalanced, MaxAutoApprove: -1},
	}
	for _, p := range cases {
		if _, err := policy.NewWithPolicy(p, logging.NewNop()); err == nil {
			t.Fatalf("expected rejection for %+v", p)
		}
	}
}

func TestParseProfile(t *testing.T) {
	if got, ok := policy.ParseProfile("  Balanced "); !ok || got != policy.ProfileBalanced {
		t.Fatalf("ParseProfile(Balanced) = %v, %v", got, ok)
	}
	if _, ok := policy.ParseProfile("reckless"); ok {
		t.Fatal("expected unknown profile to fail")
	}
}

func TestCustomThreshold(t *testing.T) {
	filter := newFilter(t, policy.ThresholdPolicy{
		Profile:            policy.ProfileCustom,
		CustomThreshold:    0.50,
		AutoApproveEnabled: true,
	})

	result := filter.Categorize([]suggest.ScoredSuggestion{scored("Travel Itinerary.pdf", 55)}, "/home/user/inbox/scan.pdf")
	if got := result.Suggestions[0].Category; got != suggest.CategoryAutoApprove {
		t.Fatalf("expected AUTO_APPROVE at custom threshold, got %s", got)
	}
}
