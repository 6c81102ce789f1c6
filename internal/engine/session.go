package engine

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/quotation-engine/internal/drafts"
	"github.com/angelmondragon/quotation-engine/internal/lineitems"
	"github.com/angelmondragon/quotation-engine/internal/pricing"
	"github.com/angelmondragon/quotation-engine/internal/validation"
	"github.com/angelmondragon/quotation-engine/pkg/backend"
	"github.com/angelmondragon/quotation-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/quotation-engine/pkg/errors"
	"github.com/angelmondragon/quotation-engine/pkg/logger"
	"github.com/angelmondragon/quotation-engine/pkg/metrics"
	"github.com/angelmondragon/quotation-engine/pkg/types"
)

// Transition names used for metrics and logs.
const (
	TransitionSubmit = "submit"
	TransitionAccept = "accept"
	TransitionReject = "reject"
)

// Backend is the quote service surface the session transitions through.
type Backend interface {
	SubmitQuote(ctx context.Context, requestID string, req types.SubmitQuoteRequest) (types.Quote, error)
	AcceptQuote(ctx context.Context, requestID string) (types.Quote, error)
	RejectQuote(ctx context.Context, requestID string, reason *string) (types.Quote, error)
	GetQuote(ctx context.Context, requestID string) (types.Quote, error)
}

// DraftPort persists the building state. Save must not block.
type DraftPort interface {
	Save(requestID string, draft drafts.Draft)
	Load(ctx context.Context, requestID string) (drafts.Draft, bool, error)
	Clear(ctx context.Context, requestID string) error
}

// Params wires a Session.
type Params struct {
	RequestID  string
	Backend    Backend
	Drafts     DraftPort
	Calculator *pricing.Calculator
	Logger     *logger.Logger
	Metrics    *metrics.QuoteMetrics
	Now        func() time.Time
}

// Session holds one service request's quote while it is built and through its decision.
// All methods are safe for concurrent use.
type Session struct {
	requestID  string
	backend    Backend
	drafts     DraftPort
	calculator *pricing.Calculator
	logg       *logger.Logger
	metrics    *metrics.QuoteMetrics
	now        func() time.Time

	mu       sync.Mutex
	state    enums.QuoteStatus
	params   types.QuoteParameters
	items    lineitems.List
	quote    *types.Quote
	inFlight string
}

// NewSession returns a session in the building state with default parameters.
func NewSession(p Params) (*Session, error) {
	if strings.TrimSpace(p.RequestID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id is required")
	}
	if p.Backend == nil {
		return nil, errors.New("quote backend required")
	}
	if p.Drafts == nil {
		return nil, errors.New("draft port required")
	}
	if p.Calculator == nil {
		return nil, errors.New("pricing calculator required")
	}
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &Session{
		requestID:  p.RequestID,
		backend:    p.Backend,
		drafts:     p.Drafts,
		calculator: p.Calculator,
		logg:       logg,
		metrics:    p.Metrics,
		now:        now,
		state:      enums.QuoteStatusBuilding,
		params:     types.DefaultQuoteParameters(),
	}, nil
}

func (s *Session) RequestID() string {
	return s.requestID
}

func (s *Session) State() enums.QuoteStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Parameters() types.QuoteParameters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

func (s *Session) Items() []types.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Items()
}

// Totals are recomputed from the current rows and parameters on every call.
func (s *Session) Totals() types.QuoteTotals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calculator.Totals(s.items.Items(), s.params)
}

// Validate runs the pre-submission rules against the current state.
func (s *Session) Validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return validation.Validate(s.items.Items(), s.params)
}

// Quote returns the server-of-record quote once one exists.
func (s *Session) Quote() (types.Quote, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quote == nil {
		return types.Quote{}, false
	}
	return *s.quote, true
}

// SetParameters replaces the pricing inputs. Standard rows are not touched until
// RecalculateStandardLines is called.
func (s *Session) SetParameters(params types.QuoteParameters) error {
	if !params.RiskProfile.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid risk profile %q", params.RiskProfile)
	}
	return s.mutate("edit", func() error {
		s.params = params
		return nil
	})
}

// AddItem appends an empty row of the given category and returns it.
func (s *Session) AddItem(category enums.LineItemCategory) (types.LineItem, error) {
	var added types.LineItem
	err := s.mutate("edit", func() error {
		next, item, err := s.items.Add(category)
		if err != nil {
			return err
		}
		s.items = next
		added = item
		return nil
	})
	return added, err
}

// UpdateItem sets one field of a row. See lineitems.List.Update for accepted values.
func (s *Session) UpdateItem(id string, field lineitems.Field, value any) error {
	return s.mutate("edit", func() error {
		next, err := s.items.Update(id, field, value)
		if err != nil {
			return err
		}
		s.items = next
		return nil
	})
}

func (s *Session) RemoveItem(id string) error {
	return s.mutate("edit", func() error {
		s.items = s.items.Remove(id)
		return nil
	})
}

// RecalculateStandardLines refreshes standard rows from the current parameters.
func (s *Session) RecalculateStandardLines() error {
	return s.mutate("recalculate", func() error {
		s.items = s.items.Replace(pricing.RecalculateStandardLines(s.items.Items(), s.params))
		return nil
	})
}

// Restore loads the saved draft, or starts from defaults without one. When the
// restored parameters carry a survey area and there are no rows yet, the standard
// lines are generated. It reports whether a draft was found.
func (s *Session) Restore(ctx context.Context, defaults types.QuoteParameters) (bool, error) {
	draft, found, err := s.drafts.Load(ctx, s.requestID)
	if err != nil {
		return false, err
	}
	err = s.mutate("restore", func() error {
		params := defaults
		items := []types.LineItem(nil)
		if found {
			params = draft.Parameters
			items = draft.LineItems
		}
		if !params.RiskProfile.IsValid() {
			params.RiskProfile = enums.RiskProfileLow
		}
		if len(items) == 0 && params.SurveyAreaSqm > 0 {
			items = pricing.StandardLines(params)
		}
		s.params = params
		s.items = lineitems.New(items)
		return nil
	})
	return found, err
}

// Discard drops the draft and resets the session to an empty building quote.
func (s *Session) Discard(ctx context.Context) error {
	s.mu.Lock()
	if err := s.editableLocked("discard"); err != nil {
		s.mu.Unlock()
		return err
	}
	s.params = types.DefaultQuoteParameters()
	s.items = lineitems.List{}
	s.mu.Unlock()
	return s.drafts.Clear(ctx, s.requestID)
}

// Refresh adopts the quote the service already holds for this request, if any.
func (s *Session) Refresh(ctx context.Context) error {
	quote, err := s.backend.GetQuote(ctx, s.requestID)
	if err != nil {
		if backend.StatusCode(err) == http.StatusNotFound {
			return nil
		}
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight != "" {
		return stateError("refresh", s.state)
	}
	s.adoptLocked(quote)
	return nil
}

// Submit validates the building quote and sends it to the service. On any failure
// the session stays in building and the draft is kept.
func (s *Session) Submit(ctx context.Context) (quote types.Quote, err error) {
	ctx = s.logg.WithQuoteRequestID(ctx, s.requestID)
	defer func() { s.metrics.ObserveTransition(TransitionSubmit, err) }()

	s.mu.Lock()
	if err := s.editableLocked(TransitionSubmit); err != nil {
		s.mu.Unlock()
		return types.Quote{}, err
	}
	items := s.items.Items()
	params := s.params
	if err := validation.Validate(items, params); err != nil {
		s.mu.Unlock()
		return types.Quote{}, err
	}
	s.inFlight = TransitionSubmit
	s.mu.Unlock()

	body := types.NewSubmitQuoteRequest(params, items, pricing.RiskMultiplier(params.RiskProfile))
	quote, err = s.backend.SubmitQuote(ctx, s.requestID, body)

	s.mu.Lock()
	s.inFlight = ""
	if err != nil {
		s.mu.Unlock()
		s.logg.Warn(ctx, "quote submit failed: "+err.Error())
		return types.Quote{}, err
	}
	s.adoptLocked(quote)
	s.state = enums.QuoteStatusSubmitted
	s.mu.Unlock()

	if clearErr := s.drafts.Clear(ctx, s.requestID); clearErr != nil {
		s.logg.Error(ctx, "clear draft after submit", clearErr)
	}
	s.logg.Info(ctx, "quote submitted")
	return quote, nil
}

// Accept records the client's acceptance of the submitted quote.
func (s *Session) Accept(ctx context.Context) (types.Quote, error) {
	return s.decide(ctx, TransitionAccept, enums.QuoteStatusAccepted, func(ctx context.Context) (types.Quote, error) {
		return s.backend.AcceptQuote(ctx, s.requestID)
	})
}

// Reject records the client's rejection. A blank reason is sent as absent.
func (s *Session) Reject(ctx context.Context, reason string) (types.Quote, error) {
	var reasonPtr *string
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		reasonPtr = &trimmed
	}
	return s.decide(ctx, TransitionReject, enums.QuoteStatusRejected, func(ctx context.Context) (types.Quote, error) {
		return s.backend.RejectQuote(ctx, s.requestID, reasonPtr)
	})
}

func (s *Session) decide(ctx context.Context, transition string, target enums.QuoteStatus, call func(context.Context) (types.Quote, error)) (quote types.Quote, err error) {
	ctx = s.logg.WithQuoteRequestID(ctx, s.requestID)
	defer func() { s.metrics.ObserveTransition(transition, err) }()

	s.mu.Lock()
	if s.state != enums.QuoteStatusSubmitted || s.inFlight != "" {
		state := s.state
		s.mu.Unlock()
		return types.Quote{}, stateError(transition, state)
	}
	s.inFlight = transition
	s.mu.Unlock()

	quote, err = call(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = ""
	if err != nil {
		s.logg.Warn(ctx, "quote "+transition+" failed: "+err.Error())
		return types.Quote{}, err
	}
	s.adoptLocked(quote)
	s.state = target
	s.logg.Info(ctx, "quote "+string(target))
	return quote, nil
}

// mutate applies fn in the building state and queues an autosave of the result.
func (s *Session) mutate(op string, fn func() error) error {
	s.mu.Lock()
	if err := s.editableLocked(op); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := fn(); err != nil {
		s.mu.Unlock()
		return err
	}
	draft := drafts.Draft{
		RequestID:  s.requestID,
		Parameters: s.params,
		LineItems:  s.items.Items(),
		SavedAt:    s.now().UTC(),
	}
	s.mu.Unlock()

	s.drafts.Save(s.requestID, draft)
	return nil
}

func (s *Session) editableLocked(op string) error {
	if s.inFlight != "" {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot %s while %s is in progress", op, s.inFlight)
	}
	if s.state != enums.QuoteStatusBuilding {
		return stateError(op, s.state)
	}
	return nil
}

func (s *Session) adoptLocked(quote types.Quote) {
	q := quote
	s.quote = &q
	if quote.Status.IsValid() && quote.Status != enums.QuoteStatusBuilding {
		s.state = quote.Status
	}
}
