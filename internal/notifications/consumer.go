package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/quotation-engine/internal/pricing"
	"github.com/angelmondragon/quotation-engine/pkg/db/models"
	"github.com/angelmondragon/quotation-engine/pkg/enums"
	"github.com/angelmondragon/quotation-engine/pkg/logger"
	"github.com/angelmondragon/quotation-engine/pkg/outbox"
	"github.com/angelmondragon/quotation-engine/pkg/outbox/payloads"
	"github.com/angelmondragon/quotation-engine/pkg/outbox/registry"
)

// ConsumerName scopes the idempotency keys written by the quote notification consumer.
const ConsumerName = "quote-notifications"

type notificationWriter interface {
	Create(ctx context.Context, notification *models.Notification) (bool, error)
}

type processedMarker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	Release(ctx context.Context, consumer, eventID string) error
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// Consumer turns quote lifecycle events into in-app notifications.
type Consumer struct {
	repo         notificationWriter
	subscription receiver
	idempotency  processedMarker
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

// NewConsumer builds a quote notification consumer.
func NewConsumer(repo notificationWriter, subscription receiver, marker processedMarker, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if marker == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  marker,
		decoders:     registry.NewQuoteDecoders(),
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg.ID, msg.Attributes, msg.Data).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	nack bool
}

var (
	ack  = processResult{}
	nack = processResult{nack: true}
)

func (c *Consumer) process(ctx context.Context, messageID string, attrs map[string]string, data []byte) processResult {
	eventType := enums.OutboxEventType(attrs["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": string(eventType),
	})

	if !eventType.IsValid() {
		c.logg.Info(logCtx, "skipping unknown event type")
		return ack
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return ack
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return ack
	}
	logCtx = c.logg.WithField(logCtx, "event_id", envelope.EventID)

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, ConsumerName, envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return nack
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return ack
	}

	payload, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		return ack
	}

	notification, err := buildNotification(eventID, eventType, payload)
	if err != nil {
		c.logg.Error(logCtx, "notification not built", err)
		return ack
	}
	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"user_id":           notification.UserID.String(),
		"notification_type": string(notification.Type),
	})

	created, err := c.repo.Create(ctx, notification)
	if err != nil {
		c.logg.Error(logCtx, "notification insert failed", err)
		if relErr := c.idempotency.Release(ctx, ConsumerName, envelope.EventID); relErr != nil {
			c.logg.Error(logCtx, "idempotency release failed", relErr)
		}
		return nack
	}
	if !created {
		c.logg.Info(logCtx, "notification already delivered")
		return ack
	}
	c.logg.Info(logCtx, "user notified of quote event")
	return ack
}

// buildNotification addresses submissions to the requesting client and decisions
// to the admin who submitted the quote.
func buildNotification(eventID uuid.UUID, eventType enums.OutboxEventType, payload any) (*models.Notification, error) {
	switch event := payload.(type) {
	case *payloads.QuoteSubmittedEvent:
		if event.ClientUserID == uuid.Nil {
			return nil, fmt.Errorf("client user id missing")
		}
		return &models.Notification{
			UserID:  event.ClientUserID,
			EventID: &eventID,
			Type:    enums.NotificationTypeQuoteSubmitted,
			Title:   "Quote ready for review",
			Message: fmt.Sprintf("A quote of %s (%s) is ready for your request.",
				formatTotal(event.Total, enums.CurrencyJMD), formatTotal(event.USDTotal, enums.CurrencyUSD)),
			Link: quoteLink(event.RequestID),
		}, nil
	case *payloads.QuoteDecidedEvent:
		if event.SubmittedBy == uuid.Nil {
			return nil, fmt.Errorf("submitter id missing")
		}
		title := "Quote accepted"
		message := "The client accepted the quote."
		if eventType == enums.EventQuoteRejected {
			title = "Quote rejected"
			message = "The client rejected the quote."
			if event.Reason != nil && strings.TrimSpace(*event.Reason) != "" {
				message = fmt.Sprintf("The client rejected the quote. Reason: %s", strings.TrimSpace(*event.Reason))
			}
		}
		return &models.Notification{
			UserID:  event.SubmittedBy,
			EventID: &eventID,
			Type:    enums.NotificationTypeQuoteDecision,
			Title:   title,
			Message: message,
			Link:    quoteLink(event.RequestID),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported payload %T", payload)
	}
}

func formatTotal(raw string, currency enums.Currency) string {
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return currency.String() + " " + raw
	}
	return pricing.FormatAmount(value.InexactFloat64(), currency)
}

func quoteLink(requestID uuid.UUID) *string {
	link := fmt.Sprintf("/requests/%s/quote", requestID)
	return &link
}
