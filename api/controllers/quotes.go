package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/quotation-engine/api/middleware"
	"github.com/angelmondragon/quotation-engine/api/responses"
	"github.com/angelmondragon/quotation-engine/api/validators"
	"github.com/angelmondragon/quotation-engine/internal/quotes"
	pkgerrors "github.com/angelmondragon/quotation-engine/pkg/errors"
	"github.com/angelmondragon/quotation-engine/pkg/logger"
	"github.com/angelmondragon/quotation-engine/pkg/types"
)

const (
	maxNotesLen       = 4000
	maxDescriptionLen = 500
	maxReasonLen      = 2000
)

func sanitizeSubmission(body *types.SubmitQuoteRequest) {
	body.Notes = validators.SanitizeText(body.Notes, maxNotesLen)
	for i := range body.LineItems {
		body.LineItems[i].Description = validators.SanitizeText(body.LineItems[i].Description, maxDescriptionLen)
	}
}

// SubmitQuote handles POST /api/quotes/{requestId}. Totals are recomputed
// server side from the submitted rows.
func SubmitQuote(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quote service unavailable"))
			return
		}

		requestID, actor, err := quoteTarget(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body types.SubmitQuoteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sanitizeSubmission(&body)

		ctx := logg.WithQuoteRequestID(r.Context(), requestID.String())
		quote, err := svc.Submit(ctx, quotes.SubmitInput{
			RequestID: requestID,
			Actor:     actor,
			Body:      body,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, quote)
	}
}

// AcceptQuote handles POST /api/quotes/{requestId}/accept.
func AcceptQuote(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quote service unavailable"))
			return
		}

		requestID, actor, err := quoteTarget(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body struct{}
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithQuoteRequestID(r.Context(), requestID.String())
		quote, err := svc.Accept(ctx, quotes.DecisionInput{RequestID: requestID, Actor: actor})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

// RejectQuote handles POST /api/quotes/{requestId}/reject with an optional reason.
func RejectQuote(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quote service unavailable"))
			return
		}

		requestID, actor, err := quoteTarget(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body types.RejectQuoteRequest
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.Reason = validators.SanitizeOptionalText(body.Reason, maxReasonLen)

		ctx := logg.WithQuoteRequestID(r.Context(), requestID.String())
		quote, err := svc.Reject(ctx, quotes.DecisionInput{
			RequestID: requestID,
			Actor:     actor,
			Reason:    body.Reason,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

// GetQuote handles GET /api/quotes/{requestId}.
func GetQuote(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quote service unavailable"))
			return
		}

		requestID, _, err := quoteTarget(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Get(r.Context(), requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

func quoteTarget(r *http.Request) (uuid.UUID, quotes.Actor, error) {
	userID, role, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return uuid.Nil, quotes.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	requestID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "requestId")))
	if err != nil {
		return uuid.Nil, quotes.Actor{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request id")
	}
	return requestID, quotes.Actor{UserID: userID, Role: role}, nil
}
