package policy

import (
	"fmt"
	"strings"

	"curator/internal/config"
)

// Profile names a preset auto-approval threshold.
type Profile string

const (
	ProfileConservative Profile = "conservative"
	ProfileBalanced     Profile = "balanced"
	ProfileAggressive   Profile = "aggressive"
	ProfileCustom       Profile = "custom"
)

var allProfiles = []Profile{
	ProfileConservative,
	ProfileBalanced,
	ProfileAggressive,
	ProfileCustom,
}

var profileSet = func() map[Profile]struct{} {
	set := make(map[Profile]struct{}, len(allProfiles))
	for _, profile := range allProfiles {
		set[profile] = struct{}{}
	}
	return set
}()

// AllProfiles returns the recognized threshold profiles.
func AllProfiles() []Profile {
	cp := make([]Profile, len(allProfiles))
	copy(cp, allProfiles)
	return cp
}

// ParseProfile converts a string into a known Profile.
func ParseProfile(value string) (Profile, bool) {
	normalized := Profile(strings.ToLower(strings.TrimSpace(value)))
	_, ok := profileSet[normalized]
	return normalized, ok
}

// MinManualReviewThreshold is the confidence floor, on the 0..1 scale,
// below which a suggestion is rejected instead of queued for review.
const MinManualReviewThreshold = 0.30

const (
	conservativeThreshold = 0.90
	balancedThreshold     = 0.80
	aggressiveThreshold   = 0.70

	customThresholdMin = 0.10
	customThresholdMax = 1.00
)

// ThresholdPolicy is the active categorization policy. MaxAutoApprove
// caps auto-approvals per call; zero means no cap.
type ThresholdPolicy struct {
	Profile            Profile
	CustomThreshold    float64
	AutoApproveEnabled bool
	MaxAutoApprove     int
}

// Threshold returns the auto-approval cutoff on the 0..1 scale.
func (p ThresholdPolicy) Threshold() float64 {
	switch p.Profile {
	case ProfileConservative:
		return conservativeThreshold
	case ProfileAggressive:
		return aggressiveThreshold
	case ProfileCustom:
		return p.CustomThreshold
	default:
		return balancedThreshold
	}
}

func (p ThresholdPolicy) validate() error {
	if _, ok := profileSet[p.Profile]; !ok {
		return fmt.Errorf("unknown threshold profile %q", p.Profile)
	}
	if p.Profile == ProfileCustom &&
		(p.CustomThreshold < customThresholdMin || p.CustomThreshold > customThresholdMax) {
		return fmt.Errorf("custom threshold %.2f outside [%.2f, %.2f]",
			p.CustomThreshold, customThresholdMin, customThresholdMax)
	}
	if p.MaxAutoApprove < 0 {
		return fmt.Errorf("max auto-approve count %d must not be negative", p.MaxAutoApprove)
	}
	return nil
}

// PolicyFromConfig reads the policy section into a ThresholdPolicy.
func PolicyFromConfig(cfg *config.Config) ThresholdPolicy {
	profile, ok := ParseProfile(cfg.Policy.Profile)
	if !ok {
		profile = ProfileBalanced
	}
	return ThresholdPolicy{
		Profile:            profile,
		CustomThreshold:    cfg.Policy.CustomThreshold,
		AutoApproveEnabled: cfg.Policy.AutoApproveEnabled,
		MaxAutoApprove:     cfg.Policy.MaxAutoApprove,
	}
}
