package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/quotation-engine/pkg/enums"
)

// baselineMultiplier is the low-risk multiplier; effective factors are normalized against it.
const baselineMultiplier = 4

type standardRate struct {
	factor      decimal.Decimal
	description string
}

var standardRates = map[enums.SystemKey]standardRate{
	enums.SystemKeyGPSGridLayout:       {factor: decimal.RequireFromString("0.06"), description: "GPS grid layout"},
	enums.SystemKeyDataCollection:      {factor: decimal.RequireFromString("0.37"), description: "Data collection"},
	enums.SystemKeyDataProcessing:      {factor: decimal.RequireFromString("0.23"), description: "Data processing"},
	enums.SystemKeyEvaluationReporting: {factor: decimal.RequireFromString("0.34"), description: "Evaluation and reporting"},
}

var riskMultipliers = map[enums.RiskProfile]float64{
	enums.RiskProfileLow:    4,
	enums.RiskProfileMedium: 5,
	enums.RiskProfileHigh:   7,
}

// RateFactor returns the per-unit rate factor of a standard line.
// Unknown keys are a programming error and panic.
func RateFactor(key enums.SystemKey) float64 {
	return lookupRate(key).factor.InexactFloat64()
}

// StandardDescription is the default description of a standard line.
func StandardDescription(key enums.SystemKey) string {
	return lookupRate(key).description
}

// RiskMultiplier returns the multiplier for a risk profile. Unknown profiles panic.
func RiskMultiplier(risk enums.RiskProfile) float64 {
	m, ok := riskMultipliers[risk]
	if !ok {
		panic(fmt.Sprintf("pricing: unknown risk profile %q", risk))
	}
	return m
}

func lookupRate(key enums.SystemKey) standardRate {
	rate, ok := standardRates[key]
	if !ok {
		panic(fmt.Sprintf("pricing: unknown system key %q", key))
	}
	return rate
}
