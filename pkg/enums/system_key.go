package enums

import "fmt"

// SystemKey tags a standard line item that can be regenerated from the quote parameters.
type SystemKey string

const (
	SystemKeyGPSGridLayout       SystemKey = "gpsGridLayout"
	SystemKeyDataCollection      SystemKey = "dataCollection"
	SystemKeyDataProcessing      SystemKey = "dataProcessing"
	SystemKeyEvaluationReporting SystemKey = "evaluationReporting"
)

var validSystemKeys = []SystemKey{
	SystemKeyGPSGridLayout,
	SystemKeyDataCollection,
	SystemKeyDataProcessing,
	SystemKeyEvaluationReporting,
}

// SystemKeys returns the standard keys in display order.
func SystemKeys() []SystemKey {
	out := make([]SystemKey, len(validSystemKeys))
	copy(out, validSystemKeys)
	return out
}

// String implements fmt.Stringer.
func (k SystemKey) String() string {
	return string(k)
}

// IsValid reports whether the key names a standard line.
func (k SystemKey) IsValid() bool {
	for _, candidate := range validSystemKeys {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseSystemKey converts a raw string into a SystemKey.
func ParseSystemKey(value string) (SystemKey, error) {
	for _, candidate := range validSystemKeys {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid system key %q", value)
}
