package pricing

import (
	"math"

	"github.com/angelmondragon/quotation-engine/pkg/types"
)

// Totals derives the quote totals. Arithmetic keeps full float precision;
// rounding happens only when amounts are formatted for display.
func Totals(items []types.LineItem, params types.QuoteParameters, jmdPerUSD float64) types.QuoteTotals {
	var lineSubtotal float64
	for _, item := range items {
		lineSubtotal += item.Amount()
	}
	initiation := params.ClearanceCost + params.MobilizationCost + params.AccommodationCost
	subtotal := lineSubtotal + initiation
	total := math.Max(0, subtotal-params.DiscountAmount)

	var usd float64
	if jmdPerUSD > 0 {
		usd = total / jmdPerUSD
	}
	prepay := total * params.PrepaymentPct / 100

	return types.QuoteTotals{
		LineSubtotal:    lineSubtotal,
		InitiationTotal: initiation,
		Subtotal:        subtotal,
		Total:           total,
		USDTotal:        usd,
		PrepayAmount:    prepay,
		BalanceAmount:   total - prepay,
	}
}
