package pricing

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/quotation-engine/pkg/enums"
	"github.com/angelmondragon/quotation-engine/pkg/types"
)

var half = decimal.NewFromFloat(0.5)

var areaUnitLabels = map[string]struct{}{
	types.AreaUnitUOM: {},
	"sqm":             {},
	"m2":              {},
	"m²":              {},
}

// Calculator binds the pure pricing functions to the configured exchange rate.
type Calculator struct {
	jmdPerUSD float64
}

// NewCalculator returns a calculator converting JMD totals at jmdPerUSD.
func NewCalculator(jmdPerUSD float64) (*Calculator, error) {
	if jmdPerUSD <= 0 {
		return nil, errors.New("exchange rate must be positive")
	}
	return &Calculator{jmdPerUSD: jmdPerUSD}, nil
}

// ExchangeRate is the JMD amount of one USD.
func (c *Calculator) ExchangeRate() float64 {
	return c.jmdPerUSD
}

// Totals computes the quote totals at the calculator's exchange rate.
func (c *Calculator) Totals(items []types.LineItem, params types.QuoteParameters) types.QuoteTotals {
	return Totals(items, params, c.jmdPerUSD)
}

// EffectiveFactor scales the service factor by the risk multiplier relative to the low-risk baseline.
func EffectiveFactor(serviceFactor float64, risk enums.RiskProfile) float64 {
	return serviceFactor * RiskMultiplier(risk) / baselineMultiplier
}

// UnitPrice is effectiveFactor times the key's rate factor, rounded half-up to a whole currency unit.
// The product is taken in decimal so that exact halves like 92.5 are not lost to binary error.
func UnitPrice(key enums.SystemKey, effectiveFactor float64) float64 {
	product := decimal.NewFromFloat(effectiveFactor).Mul(lookupRate(key).factor)
	return RoundHalfUp(product).InexactFloat64()
}

// RoundHalfUp rounds to the nearest integer with .5 going towards positive infinity.
func RoundHalfUp(value decimal.Decimal) decimal.Decimal {
	return value.Add(half).Floor()
}

// DefaultStandardLine builds the generated row for a standard key.
func DefaultStandardLine(key enums.SystemKey, surveyAreaSqm, effectiveFactor float64) types.LineItem {
	k := key
	return types.LineItem{
		ID:          uuid.NewString(),
		SystemKey:   &k,
		Description: StandardDescription(key),
		Quantity:    surveyAreaSqm,
		UnitPrice:   UnitPrice(key, effectiveFactor),
		UOM:         types.AreaUnitUOM,
		Category:    enums.LineItemCategoryProfessionalService,
	}
}

// StandardLines generates one row per standard key from the parameters.
func StandardLines(params types.QuoteParameters) []types.LineItem {
	eff := EffectiveFactor(params.ServiceFactor, params.RiskProfile)
	keys := enums.SystemKeys()
	lines := make([]types.LineItem, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, DefaultStandardLine(key, params.SurveyAreaSqm, eff))
	}
	return lines
}

// RecalculateStandardLines refreshes the unit price of every standard row and its
// quantity when the row is measured in area units. Custom rows are returned unchanged.
// The input slice is not modified.
func RecalculateStandardLines(items []types.LineItem, params types.QuoteParameters) []types.LineItem {
	eff := EffectiveFactor(params.ServiceFactor, params.RiskProfile)
	out := make([]types.LineItem, len(items))
	for i, item := range items {
		out[i] = item
		if item.SystemKey == nil {
			continue
		}
		generated := DefaultStandardLine(*item.SystemKey, params.SurveyAreaSqm, eff)
		out[i].UnitPrice = generated.UnitPrice
		if IsAreaUnit(item.UOM) {
			out[i].Quantity = generated.Quantity
		}
	}
	return out
}

// IsAreaUnit reports whether a unit-of-measure label denotes the survey area unit.
func IsAreaUnit(uom string) bool {
	_, ok := areaUnitLabels[strings.ToLower(strings.TrimSpace(uom))]
	return ok
}
