package enums

import "fmt"

// RiskProfile scales the service factor of a quote.
type RiskProfile string

const (
	RiskProfileLow    RiskProfile = "low"
	RiskProfileMedium RiskProfile = "medium"
	RiskProfileHigh   RiskProfile = "high"
)

var validRiskProfiles = []RiskProfile{
	RiskProfileLow,
	RiskProfileMedium,
	RiskProfileHigh,
}

// String implements fmt.Stringer.
func (r RiskProfile) String() string {
	return string(r)
}

// IsValid reports whether the risk profile is recognized.
func (r RiskProfile) IsValid() bool {
	for _, candidate := range validRiskProfiles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRiskProfile converts a raw string into a RiskProfile.
func ParseRiskProfile(value string) (RiskProfile, error) {
	for _, candidate := range validRiskProfiles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid risk profile %q", value)
}
