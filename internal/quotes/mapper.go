package quotes

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/quotation-engine/pkg/db/models"
	"github.com/angelmondragon/quotation-engine/pkg/types"
)

// money stores amounts with two decimal places; the numeric columns do the same.
func money(value float64) decimal.Decimal {
	return decimal.NewFromFloat(value).Round(2)
}

func toQuote(m *models.Quote) types.Quote {
	lines := make([]types.QuoteLineItem, 0, len(m.LineItems))
	for _, item := range m.LineItems {
		lines = append(lines, types.QuoteLineItem{
			ID:          item.ID.String(),
			Description: item.Description,
			Quantity:    item.Quantity.InexactFloat64(),
			UnitPrice:   item.UnitPrice.InexactFloat64(),
			UOM:         item.UOM,
			Category:    item.Category,
			SortOrder:   item.SortOrder,
		})
	}

	quote := types.Quote{
		ID:                 m.ID.String(),
		RequestID:          m.RequestID.String(),
		Status:             m.Status,
		ServiceFactor:      m.ServiceFactor.InexactFloat64(),
		RiskProfile:        m.RiskProfile,
		RiskMultiplier:     m.RiskMultiplier.InexactFloat64(),
		AreaDiscountedSqm:  m.AreaDiscountedSqm.InexactFloat64(),
		ClearanceCost:      m.ClearanceCost.InexactFloat64(),
		MobilizationCost:   m.MobilizationCost.InexactFloat64(),
		AccommodationCost:  m.AccommodationCost.InexactFloat64(),
		ServiceHeadCount:   m.ServiceHeadCount,
		DataCollectionDays: m.DataCollectionDays.InexactFloat64(),
		EvaluationDays:     m.EvaluationDays.InexactFloat64(),
		EstimatedWeeks:     m.EstimatedWeeks.InexactFloat64(),
		DiscountAmount:     m.DiscountAmount.InexactFloat64(),
		PrepaymentPct:      m.PrepaymentPct.InexactFloat64(),
		LineItems:          lines,
		Totals: types.QuoteTotals{
			LineSubtotal:    m.LineSubtotal.InexactFloat64(),
			InitiationTotal: m.InitiationTotal.InexactFloat64(),
			Subtotal:        m.Subtotal.InexactFloat64(),
			Total:           m.Total.InexactFloat64(),
			USDTotal:        m.USDTotal.InexactFloat64(),
			PrepayAmount:    m.PrepayAmount.InexactFloat64(),
			BalanceAmount:   m.BalanceAmount.InexactFloat64(),
		},
		RejectionReason: m.RejectionReason,
		SubmittedAt:     m.SubmittedAt,
		DecidedAt:       m.DecidedAt,
	}
	if m.Notes != nil {
		quote.Notes = *m.Notes
	}
	return quote
}
