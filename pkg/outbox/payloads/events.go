package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/quotation-engine/pkg/enums"
)

// Version is the current payload schema version for quote events.
const Version = 1

// QuoteSubmittedEvent is emitted when a quote is persisted for a service request.
type QuoteSubmittedEvent struct {
	QuoteID      uuid.UUID `json:"quote_id"`
	RequestID    uuid.UUID `json:"request_id"`
	ClientUserID uuid.UUID `json:"client_user_id"`
	SubmittedBy  uuid.UUID `json:"submitted_by"`
	Total        string    `json:"total"`
	USDTotal     string    `json:"usd_total"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// QuoteDecidedEvent is emitted when the client accepts or rejects a quote.
type QuoteDecidedEvent struct {
	QuoteID      uuid.UUID         `json:"quote_id"`
	RequestID    uuid.UUID         `json:"request_id"`
	ClientUserID uuid.UUID         `json:"client_user_id"`
	SubmittedBy  uuid.UUID         `json:"submitted_by"`
	Status       enums.QuoteStatus `json:"status"`
	Reason       *string           `json:"reason,omitempty"`
	DecidedAt    time.Time         `json:"decided_at"`
}
