package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/quotation-engine/pkg/enums"
)

// Quote freezes the pricing inputs and server-computed totals of a submission.
// There is at most one quote per service request.
type Quote struct {
	ID                 uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RequestID          uuid.UUID         `gorm:"column:request_id;type:uuid;not null;uniqueIndex"`
	Status             enums.QuoteStatus `gorm:"column:status;type:quote_status;not null;default:'submitted'"`
	ServiceFactor      decimal.Decimal   `gorm:"column:service_factor;type:numeric(14,2);not null"`
	RiskProfile        enums.RiskProfile `gorm:"column:risk_profile;type:risk_profile;not null"`
	RiskMultiplier     decimal.Decimal   `gorm:"column:risk_multiplier;type:numeric(6,2);not null"`
	AreaDiscountedSqm  decimal.Decimal   `gorm:"column:area_discounted_sqm;type:numeric(14,2);not null;default:0"`
	ClearanceCost      decimal.Decimal   `gorm:"column:clearance_access_cost;type:numeric(14,2);not null;default:0"`
	MobilizationCost   decimal.Decimal   `gorm:"column:mobilization_cost;type:numeric(14,2);not null;default:0"`
	AccommodationCost  decimal.Decimal   `gorm:"column:accommodation_cost;type:numeric(14,2);not null;default:0"`
	ServiceHeadCount   int               `gorm:"column:service_head_count;not null;default:1"`
	DataCollectionDays decimal.Decimal   `gorm:"column:data_collection_days;type:numeric(8,2);not null;default:0"`
	EvaluationDays     decimal.Decimal   `gorm:"column:evaluation_days;type:numeric(8,2);not null;default:0"`
	EstimatedWeeks     decimal.Decimal   `gorm:"column:estimated_weeks;type:numeric(8,2);not null;default:0"`
	DiscountAmount     decimal.Decimal   `gorm:"column:discount_amount;type:numeric(14,2);not null;default:0"`
	PrepaymentPct      decimal.Decimal   `gorm:"column:prepayment_pct;type:numeric(5,2);not null;default:0"`
	LineSubtotal       decimal.Decimal   `gorm:"column:line_subtotal;type:numeric(16,2);not null"`
	InitiationTotal    decimal.Decimal   `gorm:"column:initiation_total;type:numeric(16,2);not null"`
	Subtotal           decimal.Decimal   `gorm:"column:subtotal;type:numeric(16,2);not null"`
	Total              decimal.Decimal   `gorm:"column:total;type:numeric(16,2);not null"`
	ExchangeRate       decimal.Decimal   `gorm:"column:exchange_rate;type:numeric(10,4);not null"`
	USDTotal           decimal.Decimal   `gorm:"column:usd_total;type:numeric(16,2);not null"`
	PrepayAmount       decimal.Decimal   `gorm:"column:prepay_amount;type:numeric(16,2);not null"`
	BalanceAmount      decimal.Decimal   `gorm:"column:balance_amount;type:numeric(16,2);not null"`
	Notes              *string           `gorm:"column:notes"`
	RejectionReason    *string           `gorm:"column:rejection_reason"`
	SubmittedBy        uuid.UUID         `gorm:"column:submitted_by;type:uuid;not null"`
	DecidedBy          *uuid.UUID        `gorm:"column:decided_by;type:uuid"`
	SubmittedAt        time.Time         `gorm:"column:submitted_at;not null"`
	DecidedAt          *time.Time        `gorm:"column:decided_at"`
	LineItems          []QuoteLineItem   `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// QuoteLineItem is one frozen row of a quote, ordered by SortOrder.
type QuoteLineItem struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	QuoteID     uuid.UUID              `gorm:"column:quote_id;type:uuid;not null"`
	Description string                 `gorm:"column:description;not null;default:''"`
	Quantity    decimal.Decimal        `gorm:"column:quantity;type:numeric(14,2);not null"`
	UnitPrice   decimal.Decimal        `gorm:"column:unit_price;type:numeric(14,2);not null"`
	UOM         string                 `gorm:"column:uom;not null;default:''"`
	Category    enums.LineItemCategory `gorm:"column:category;type:line_item_category;not null"`
	SortOrder   int                    `gorm:"column:sort_order;not null;default:0"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
}
