package registry

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/angelmondragon/quotation-engine/pkg/config"
	"github.com/angelmondragon/quotation-engine/pkg/db/models"
	"github.com/angelmondragon/quotation-engine/pkg/enums"
	"github.com/angelmondragon/quotation-engine/pkg/outbox"
)

// Route says which aggregate an event belongs to and where it is published.
type Route struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
}

// ResolvedEvent is an outbox row with its envelope and typed payload decoded.
type ResolvedEvent struct {
	Route    Route
	Envelope outbox.PayloadEnvelope
	Payload  any
}

// EventRegistry checks outbox rows against the known routes and decodes them
// with the same decoders the consumers use.
type EventRegistry struct {
	routes   map[enums.OutboxEventType]Route
	decoders *DecoderRegistry
}

// NewEventRegistry sends every quote lifecycle event to the notification topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.NotificationTopic == "" {
		return nil, errors.New("notification topic is required")
	}
	reg := &EventRegistry{
		routes:   make(map[enums.OutboxEventType]Route),
		decoders: NewQuoteDecoders(),
	}
	for _, eventType := range []enums.OutboxEventType{
		enums.EventQuoteSubmitted,
		enums.EventQuoteAccepted,
		enums.EventQuoteRejected,
	} {
		reg.routes[eventType] = Route{
			EventType:     eventType,
			AggregateType: enums.AggregateQuote,
			Topic:         cfg.NotificationTopic,
		}
	}
	return reg, nil
}

// Resolve fails with a NonRetryableError for any row that can never be published.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	route, ok := r.routes[event.EventType]
	switch {
	case !ok:
		return nil, permanent("unsupported event type %s", event.EventType)
	case route.AggregateType != event.AggregateType:
		return nil, permanent("aggregate mismatch: expected %s got %s", route.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, permanent("missing aggregate_id")
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, permanent("decode envelope: %w", err)
	}
	if data := bytes.TrimSpace(envelope.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, permanent("payload missing for %s", event.EventType)
	}

	payload, err := r.decoders.Decode(event.EventType, envelope.Version, envelope.Data)
	if err != nil {
		return nil, permanent("decode %s payload: %w", event.EventType, err)
	}
	return &ResolvedEvent{Route: route, Envelope: envelope, Payload: payload}, nil
}
