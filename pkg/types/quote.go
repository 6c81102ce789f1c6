package types

import (
	"time"

	"github.com/angelmondragon/quotation-engine/pkg/enums"
)

// AreaUnitUOM is the unit label for rows whose quantity follows the survey area.
const AreaUnitUOM = "area unit"

// QuoteParameters are the per-request pricing inputs edited while a quote is built.
type QuoteParameters struct {
	SurveyAreaSqm      float64           `json:"surveyAreaSqm"`
	ServiceFactor      float64           `json:"serviceFactor"`
	RiskProfile        enums.RiskProfile `json:"riskProfile"`
	AreaDiscountedSqm  float64           `json:"areaDiscountedSqm"`
	ServiceHeadCount   int               `json:"serviceHeadCount"`
	ClearanceCost      float64           `json:"clearanceCost"`
	MobilizationCost   float64           `json:"mobilizationCost"`
	AccommodationCost  float64           `json:"accommodationCost"`
	DataCollectionDays float64           `json:"dataCollectionDays"`
	EvaluationDays     float64           `json:"evaluationDays"`
	EstimatedWeeks     float64           `json:"estimatedWeeks"`
	DiscountAmount     float64           `json:"discountAmount"`
	PrepaymentPct      float64           `json:"prepaymentPct"`
	AdminNotes         string            `json:"adminNotes"`
}

// DefaultQuoteParameters returns the parameters a fresh quote starts from.
func DefaultQuoteParameters() QuoteParameters {
	return QuoteParameters{
		RiskProfile:      enums.RiskProfileLow,
		ServiceHeadCount: 1,
	}
}

// LineItem is one priced row of a quote. SystemKey is nil for custom rows.
type LineItem struct {
	ID          string                 `json:"id"`
	SystemKey   *enums.SystemKey       `json:"systemKey,omitempty"`
	Description string                 `json:"description"`
	Quantity    float64                `json:"quantity"`
	UnitPrice   float64                `json:"unitPrice"`
	UOM         string                 `json:"uom"`
	Category    enums.LineItemCategory `json:"category"`
}

// IsStandard reports whether the row is regenerable from the quote parameters.
func (l LineItem) IsStandard() bool {
	return l.SystemKey != nil
}

// Amount is quantity times unit price.
func (l LineItem) Amount() float64 {
	return l.Quantity * l.UnitPrice
}

// QuoteTotals are derived from line items and parameters; they are never edited directly.
type QuoteTotals struct {
	LineSubtotal    float64 `json:"lineSubtotal"`
	InitiationTotal float64 `json:"initiationTotal"`
	Subtotal        float64 `json:"subtotal"`
	Total           float64 `json:"total"`
	USDTotal        float64 `json:"usdTotal"`
	PrepayAmount    float64 `json:"prepayAmount"`
	BalanceAmount   float64 `json:"balanceAmount"`
}

// QuoteLineItem is a frozen row of a submitted quote.
type QuoteLineItem struct {
	ID          string                 `json:"id"`
	Description string                 `json:"description"`
	Quantity    float64                `json:"quantity"`
	UnitPrice   float64                `json:"unitPrice"`
	UOM         string                 `json:"uom"`
	Category    enums.LineItemCategory `json:"category"`
	SortOrder   int                    `json:"sortOrder"`
}

// Quote is the server-of-record document created by a submission.
type Quote struct {
	ID                 string            `json:"id"`
	RequestID          string            `json:"requestId"`
	Status             enums.QuoteStatus `json:"status"`
	ServiceFactor      float64           `json:"serviceFactor"`
	RiskProfile        enums.RiskProfile `json:"riskProfile"`
	RiskMultiplier     float64           `json:"riskMultiplier"`
	AreaDiscountedSqm  float64           `json:"areaDiscountedSqm"`
	ClearanceCost      float64           `json:"clearanceAccessCost"`
	MobilizationCost   float64           `json:"mobilizationCost"`
	AccommodationCost  float64           `json:"accommodationCost"`
	ServiceHeadCount   int               `json:"serviceHeadCount"`
	DataCollectionDays float64           `json:"dataCollectionDays"`
	EvaluationDays     float64           `json:"evaluationDays"`
	EstimatedWeeks     float64           `json:"estimatedWeeks"`
	DiscountAmount     float64           `json:"discountAmount"`
	PrepaymentPct      float64           `json:"prepaymentPct"`
	Notes              string            `json:"notes,omitempty"`
	LineItems          []QuoteLineItem   `json:"lineItems"`
	Totals             QuoteTotals       `json:"totals"`
	RejectionReason    *string           `json:"rejectionReason,omitempty"`
	SubmittedAt        time.Time         `json:"submittedAt"`
	DecidedAt          *time.Time        `json:"decidedAt,omitempty"`
}

// SubmitQuoteLineItem is a row of the submission body.
type SubmitQuoteLineItem struct {
	Description string  `json:"description" validate:"max=500"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	UOM         string  `json:"uom"`
	Category    string  `json:"category" validate:"required,oneof=initiation professional_service other"`
	SortOrder   int     `json:"sortOrder" validate:"gte=0"`
}

// SubmitQuoteRequest is the body of POST /quotes/{requestId}.
type SubmitQuoteRequest struct {
	ServiceFactor       float64               `json:"serviceFactor" validate:"gte=0"`
	RiskProfile         string                `json:"riskProfile" validate:"required,oneof=low medium high"`
	RiskMultiplier      float64               `json:"riskMultiplier" validate:"gte=0"`
	AreaDiscountedSqm   float64               `json:"areaDiscountedSqm" validate:"gte=0"`
	ClearanceAccessCost float64               `json:"clearanceAccessCost" validate:"gte=0"`
	MobilizationCost    float64               `json:"mobilizationCost" validate:"gte=0"`
	AccommodationCost   float64               `json:"accommodationCost" validate:"gte=0"`
	ServiceHeadCount    int                   `json:"serviceHeadCount" validate:"gte=1"`
	DataCollectionDays  float64               `json:"dataCollectionDays" validate:"gte=0"`
	EvaluationDays      float64               `json:"evaluationDays" validate:"gte=0"`
	EstimatedWeeks      float64               `json:"estimatedWeeks" validate:"gte=0"`
	DiscountAmount      float64               `json:"discountAmount" validate:"gte=0"`
	PrepaymentPct       float64               `json:"prepaymentPct" validate:"gte=0,lte=100"`
	Notes               string                `json:"notes"`
	LineItems           []SubmitQuoteLineItem `json:"lineItems" validate:"dive"`
}

// RejectQuoteRequest is the body of POST /quotes/{requestId}/reject.
type RejectQuoteRequest struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=2000"`
}

// NewSubmitQuoteRequest flattens the editor state into the submission body.
// Rows keep their editor order through SortOrder.
func NewSubmitQuoteRequest(params QuoteParameters, items []LineItem, riskMultiplier float64) SubmitQuoteRequest {
	lines := make([]SubmitQuoteLineItem, 0, len(items))
	for i, item := range items {
		lines = append(lines, SubmitQuoteLineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			UOM:         item.UOM,
			Category:    string(item.Category),
			SortOrder:   i,
		})
	}
	return SubmitQuoteRequest{
		ServiceFactor:       params.ServiceFactor,
		RiskProfile:         string(params.RiskProfile),
		RiskMultiplier:      riskMultiplier,
		AreaDiscountedSqm:   params.AreaDiscountedSqm,
		ClearanceAccessCost: params.ClearanceCost,
		MobilizationCost:    params.MobilizationCost,
		AccommodationCost:   params.AccommodationCost,
		ServiceHeadCount:    params.ServiceHeadCount,
		DataCollectionDays:  params.DataCollectionDays,
		EvaluationDays:      params.EvaluationDays,
		EstimatedWeeks:      params.EstimatedWeeks,
		DiscountAmount:      params.DiscountAmount,
		PrepaymentPct:       params.PrepaymentPct,
		Notes:               params.AdminNotes,
		LineItems:           lines,
	}
}

// Parameters rebuilds the pricing inputs carried by a submission.
// The survey area is not part of the body; totals never depend on it.
func (r SubmitQuoteRequest) Parameters() QuoteParameters {
	return QuoteParameters{
		ServiceFactor:      r.ServiceFactor,
		RiskProfile:        enums.RiskProfile(r.RiskProfile),
		AreaDiscountedSqm:  r.AreaDiscountedSqm,
		ServiceHeadCount:   r.ServiceHeadCount,
		ClearanceCost:      r.ClearanceAccessCost,
		MobilizationCost:   r.MobilizationCost,
		AccommodationCost:  r.AccommodationCost,
		DataCollectionDays: r.DataCollectionDays,
		EvaluationDays:     r.EvaluationDays,
		EstimatedWeeks:     r.EstimatedWeeks,
		DiscountAmount:     r.DiscountAmount,
		PrepaymentPct:      r.PrepaymentPct,
		AdminNotes:         r.Notes,
	}
}
