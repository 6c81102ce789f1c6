package quotes

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/quotation-engine/internal/pricing"
	"github.com/angelmondragon/quotation-engine/internal/validation"
	"github.com/angelmondragon/quotation-engine/pkg/db"
	"github.com/angelmondragon/quotation-engine/pkg/db/models"
	"github.com/angelmondragon/quotation-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/quotation-engine/pkg/errors"
	"github.com/angelmondragon/quotation-engine/pkg/logger"
	"github.com/angelmondragon/quotation-engine/pkg/metrics"
	"github.com/angelmondragon/quotation-engine/pkg/outbox"
	"github.com/angelmondragon/quotation-engine/pkg/outbox/payloads"
	"github.com/angelmondragon/quotation-engine/pkg/types"
)

const (
	transitionSubmit = "submit"
	transitionAccept = "accept"
	transitionReject = "reject"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Actor is the authenticated user performing an operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// SubmitInput carries a decoded submission body.
type SubmitInput struct {
	RequestID uuid.UUID
	Actor     Actor
	Body      types.SubmitQuoteRequest
}

// DecisionInput carries an accept or reject. Reason is ignored on accept.
type DecisionInput struct {
	RequestID uuid.UUID
	Actor     Actor
	Reason    *string
}

// Service implements the server side of the quote lifecycle.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (types.Quote, error)
	Accept(ctx context.Context, input DecisionInput) (types.Quote, error)
	Reject(ctx context.Context, input DecisionInput) (types.Quote, error)
	Get(ctx context.Context, requestID uuid.UUID) (types.Quote, error)
}

type ServiceParams struct {
	DB         txRunner
	Repository *Repository
	Outbox     eventEmitter
	Calculator *pricing.Calculator
	Logger     *logger.Logger
	Metrics    *metrics.QuoteMetrics
	Now        func() time.Time
}

type service struct {
	db      txRunner
	repo    *Repository
	outbox  eventEmitter
	calc    *pricing.Calculator
	logg    *logger.Logger
	metrics *metrics.QuoteMetrics
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.DB == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "database is required")
	case params.Repository == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "quote repository is required")
	case params.Outbox == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox service is required")
	case params.Calculator == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "pricing calculator is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:      params.DB,
		repo:    params.Repository,
		outbox:  params.Outbox,
		calc:    params.Calculator,
		logg:    logg,
		metrics: params.Metrics,
		now:     func() time.Time { return now().UTC() },
	}, nil
}

// Submit recomputes totals from the submitted rows and persists the quote. The
// client's totals are never trusted.
func (s *service) Submit(ctx context.Context, input SubmitInput) (quote types.Quote, err error) {
	defer func() { s.metrics.ObserveTransition(transitionSubmit, err) }()

	if input.Actor.Role != enums.UserRoleAdmin {
		return types.Quote{}, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can submit quotes")
	}
	params, items, err := decodeSubmission(input.Body)
	if err != nil {
		return types.Quote{}, err
	}
	if err := validation.Validate(items, params); err != nil {
		return types.Quote{}, err
	}
	totals := s.calc.Totals(items, params)

	now := s.now()
	record := buildQuote(input, params, totals, s.calc.ExchangeRate(), now)

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := repo.LockRequest(ctx, input.RequestID)
		if err != nil {
			return requestLookupError(err)
		}
		exists, err := repo.ExistsForRequest(ctx, input.RequestID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing quote")
		}
		if exists {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "a quote was already submitted for this request")
		}
		if err := repo.Create(ctx, record); err != nil {
			if db.IsUniqueViolation(err, "quotes_request_id_key") {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "a quote was already submitted for this request")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create quote")
		}
		if err := repo.UpdateRequestStatus(ctx, request.ID, enums.RequestStatusQuoteSubmitted); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request status")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventQuoteSubmitted,
			AggregateType: enums.AggregateQuote,
			AggregateID:   record.ID,
			Actor:         &outbox.ActorRef{UserID: input.Actor.UserID, Role: string(input.Actor.Role)},
			Version:       payloads.Version,
			OccurredAt:    now,
			Data: payloads.QuoteSubmittedEvent{
				QuoteID:      record.ID,
				RequestID:    request.ID,
				ClientUserID: request.ClientUserID,
				SubmittedBy:  input.Actor.UserID,
				Total:        record.Total.StringFixed(2),
				USDTotal:     record.USDTotal.StringFixed(2),
				SubmittedAt:  now,
			},
		})
	})
	if err != nil {
		return types.Quote{}, err
	}

	logCtx := s.logg.WithFields(s.logg.WithQuoteRequestID(ctx, input.RequestID.String()), map[string]any{
		"quote_id": record.ID.String(),
		"total":    record.Total.StringFixed(2),
	})
	s.logg.Info(logCtx, "quote submitted")
	return toQuote(record), nil
}

func (s *service) Accept(ctx context.Context, input DecisionInput) (quote types.Quote, err error) {
	defer func() { s.metrics.ObserveTransition(transitionAccept, err) }()
	input.Reason = nil
	return s.decide(ctx, input, enums.QuoteStatusAccepted)
}

func (s *service) Reject(ctx context.Context, input DecisionInput) (quote types.Quote, err error) {
	defer func() { s.metrics.ObserveTransition(transitionReject, err) }()
	if input.Reason != nil {
		trimmed := strings.TrimSpace(*input.Reason)
		input.Reason = &trimmed
		if trimmed == "" {
			input.Reason = nil
		}
	}
	return s.decide(ctx, input, enums.QuoteStatusRejected)
}

// decide moves a submitted quote to a terminal status. Only the request's client
// or an admin may decide.
func (s *service) decide(ctx context.Context, input DecisionInput, status enums.QuoteStatus) (types.Quote, error) {
	now := s.now()
	var decided *models.Quote
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := repo.LockRequest(ctx, input.RequestID)
		if err != nil {
			return requestLookupError(err)
		}
		if input.Actor.Role != enums.UserRoleAdmin && input.Actor.UserID != request.ClientUserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the requesting client can decide on this quote")
		}
		quote, err := repo.FindByRequestID(ctx, input.RequestID)
		if err != nil {
			return quoteLookupError(err)
		}
		if quote.Status != enums.QuoteStatusSubmitted {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot %s a quote that is %s", decisionVerb(status), quote.Status)
		}

		applied, err := repo.ApplyDecision(ctx, quote.ID, Decision{
			Status:    status,
			Reason:    input.Reason,
			DecidedBy: input.Actor.UserID,
			DecidedAt: now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update quote")
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "quote was decided concurrently")
		}
		if err := repo.UpdateRequestStatus(ctx, request.ID, requestStatusFor(status)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request status")
		}

		quote.Status = status
		quote.RejectionReason = input.Reason
		quote.DecidedBy = &input.Actor.UserID
		quote.DecidedAt = &now
		decided = quote

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventFor(status),
			AggregateType: enums.AggregateQuote,
			AggregateID:   quote.ID,
			Actor:         &outbox.ActorRef{UserID: input.Actor.UserID, Role: string(input.Actor.Role)},
			Version:       payloads.Version,
			OccurredAt:    now,
			Data: payloads.QuoteDecidedEvent{
				QuoteID:      quote.ID,
				RequestID:    request.ID,
				ClientUserID: request.ClientUserID,
				SubmittedBy:  quote.SubmittedBy,
				Status:       status,
				Reason:       input.Reason,
				DecidedAt:    now,
			},
		})
	})
	if err != nil {
		return types.Quote{}, err
	}

	logCtx := s.logg.WithFields(s.logg.WithQuoteRequestID(ctx, input.RequestID.String()), map[string]any{
		"quote_id": decided.ID.String(),
		"status":   status,
	})
	s.logg.Info(logCtx, "quote decided")
	return toQuote(decided), nil
}

func (s *service) Get(ctx context.Context, requestID uuid.UUID) (types.Quote, error) {
	quote, err := s.repo.FindByRequestID(ctx, requestID)
	if err != nil {
		return types.Quote{}, quoteLookupError(err)
	}
	return toQuote(quote), nil
}

// decodeSubmission converts the wire body into pricing inputs, checking the closed
// enums the validator tags cannot express on their own. Amounts are cut to the
// stored precision here so validation and totals see what gets persisted.
func decodeSubmission(body types.SubmitQuoteRequest) (types.QuoteParameters, []types.LineItem, error) {
	risk, err := enums.ParseRiskProfile(body.RiskProfile)
	if err != nil {
		return types.QuoteParameters{}, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid risk profile")
	}
	if body.RiskMultiplier != 0 && body.RiskMultiplier != pricing.RiskMultiplier(risk) {
		return types.QuoteParameters{}, nil, pkgerrors.Newf(pkgerrors.CodeValidation, "risk multiplier %v does not match risk profile %s", body.RiskMultiplier, risk)
	}
	if body.PrepaymentPct < 0 || body.PrepaymentPct > 100 {
		return types.QuoteParameters{}, nil, pkgerrors.New(pkgerrors.CodeValidation, "prepayment percentage must be between 0 and 100")
	}

	items := make([]types.LineItem, 0, len(body.LineItems))
	for i, line := range body.LineItems {
		category, err := enums.ParseLineItemCategory(line.Category)
		if err != nil {
			return types.QuoteParameters{}, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid line item category")
		}
		items = append(items, types.LineItem{
			ID:          strconv.Itoa(i),
			Description: strings.TrimSpace(line.Description),
			Quantity:    money(line.Quantity).InexactFloat64(),
			UnitPrice:   money(line.UnitPrice).InexactFloat64(),
			UOM:         line.UOM,
			Category:    category,
		})
	}
	params := body.Parameters()
	for _, amount := range []*float64{&params.ClearanceCost, &params.MobilizationCost, &params.AccommodationCost, &params.DiscountAmount, &params.PrepaymentPct} {
		*amount = money(*amount).InexactFloat64()
	}
	return params, items, nil
}

func buildQuote(input SubmitInput, params types.QuoteParameters, totals types.QuoteTotals, rate float64, now time.Time) *models.Quote {
	body := input.Body
	lines := make([]models.QuoteLineItem, 0, len(body.LineItems))
	for _, line := range body.LineItems {
		lines = append(lines, models.QuoteLineItem{
			Description: strings.TrimSpace(line.Description),
			Quantity:    money(line.Quantity),
			UnitPrice:   money(line.UnitPrice),
			UOM:         line.UOM,
			Category:    enums.LineItemCategory(line.Category),
			SortOrder:   line.SortOrder,
		})
	}

	// Stored amounts derive from the rounded total so the split always adds up.
	total := money(totals.Total)
	prepay := total.Mul(money(params.PrepaymentPct)).Div(decimal.NewFromInt(100)).Round(2)
	exchangeRate := decimal.NewFromFloat(rate).Round(4)
	usd := decimal.Zero
	if exchangeRate.IsPositive() {
		usd = total.Div(exchangeRate).Round(2)
	}

	var notes *string
	if trimmed := strings.TrimSpace(params.AdminNotes); trimmed != "" {
		notes = &trimmed
	}

	return &models.Quote{
		ID:                 uuid.New(),
		RequestID:          input.RequestID,
		Status:             enums.QuoteStatusSubmitted,
		ServiceFactor:      money(params.ServiceFactor),
		RiskProfile:        params.RiskProfile,
		RiskMultiplier:     money(pricing.RiskMultiplier(params.RiskProfile)),
		AreaDiscountedSqm:  money(params.AreaDiscountedSqm),
		ClearanceCost:      money(params.ClearanceCost),
		MobilizationCost:   money(params.MobilizationCost),
		AccommodationCost:  money(params.AccommodationCost),
		ServiceHeadCount:   params.ServiceHeadCount,
		DataCollectionDays: money(params.DataCollectionDays),
		EvaluationDays:     money(params.EvaluationDays),
		EstimatedWeeks:     money(params.EstimatedWeeks),
		DiscountAmount:     money(params.DiscountAmount),
		PrepaymentPct:      money(params.PrepaymentPct),
		LineSubtotal:       money(totals.LineSubtotal),
		InitiationTotal:    money(totals.InitiationTotal),
		Subtotal:           money(totals.Subtotal),
		Total:              total,
		ExchangeRate:       exchangeRate,
		USDTotal:           usd,
		PrepayAmount:       prepay,
		BalanceAmount:      total.Sub(prepay),
		Notes:              notes,
		SubmittedBy:        input.Actor.UserID,
		SubmittedAt:        now,
		LineItems:          lines,
	}
}

func requestLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "service request not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load service request")
}

func quoteLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no quote has been submitted for this request")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote")
}

func decisionVerb(status enums.QuoteStatus) string {
	if status == enums.QuoteStatusAccepted {
		return transitionAccept
	}
	return transitionReject
}

func eventFor(status enums.QuoteStatus) enums.OutboxEventType {
	if status == enums.QuoteStatusAccepted {
		return enums.EventQuoteAccepted
	}
	return enums.EventQuoteRejected
}

func requestStatusFor(status enums.QuoteStatus) enums.RequestStatus {
	if status == enums.QuoteStatusAccepted {
		return enums.RequestStatusQuoteAccepted
	}
	return enums.RequestStatusQuoteRejected
}
