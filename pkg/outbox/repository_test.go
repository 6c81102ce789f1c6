package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/quotation-engine/pkg/db/models"
	"github.com/angelmondragon/quotation-engine/pkg/enums"
	"github.com/angelmondragon/quotation-engine/pkg/logger"
	"github.com/angelmondragon/quotation-engine/pkg/outbox/payloads"
)

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)

	events := `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload BLOB NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`
	dlq := `
CREATE TABLE IF NOT EXISTS outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json BLOB NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(events).Error)
	require.NoError(t, db.Exec(dlq).Error)
	return db
}

func insertEvent(t *testing.T, db *gorm.DB, created time.Time, attempts int) models.OutboxEvent {
	t.Helper()
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventQuoteSubmitted,
		AggregateType: enums.AggregateQuote,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1}`),
		CreatedAt:     created,
		AttemptCount:  attempts,
	}
	require.NoError(t, NewRepository(db).Insert(db, event))
	return event
}

func TestServiceEmitWritesEnvelope(t *testing.T) {
	db := setupOutboxTestDB(t)
	svc := NewService(NewRepository(db), logger.New(logger.Options{ServiceName: "outbox-test", Output: io.Discard}))

	quoteID := uuid.New()
	actor := &ActorRef{UserID: uuid.New(), Role: "admin"}
	occurred := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err := svc.Emit(context.Background(), db, DomainEvent{
		EventType:     enums.EventQuoteSubmitted,
		AggregateType: enums.AggregateQuote,
		AggregateID:   quoteID,
		Actor:         actor,
		OccurredAt:    occurred,
		Data: payloads.QuoteSubmittedEvent{
			QuoteID: quoteID,
			Total:   "146500.00",
		},
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, quoteID, rows[0].AggregateID)
	assert.Equal(t, enums.EventQuoteSubmitted, rows[0].EventType)
	assert.Nil(t, rows[0].PublishedAt)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, payloads.Version, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	assert.True(t, envelope.OccurredAt.Equal(occurred))
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, actor.UserID, envelope.Actor.UserID)

	var data payloads.QuoteSubmittedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, "146500.00", data.Total)
}

func TestServiceEmitRejectsInvalidEvents(t *testing.T) {
	db := setupOutboxTestDB(t)
	svc := NewService(NewRepository(db), nil)

	err := svc.Emit(context.Background(), nil, DomainEvent{EventType: enums.EventQuoteSubmitted, AggregateType: enums.AggregateQuote})
	assert.Error(t, err)

	err = svc.Emit(context.Background(), db, DomainEvent{EventType: "order_created", AggregateType: enums.AggregateQuote})
	assert.ErrorIs(t, err, ErrInvalidEvent)

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestServiceEmitDefaultsVersionAndTime(t *testing.T) {
	db := setupOutboxTestDB(t)
	svc := NewService(NewRepository(db), nil)
	fixed := time.Date(2026, 4, 2, 8, 30, 0, 0, time.FixedZone("EST", -5*3600))
	svc.now = func() time.Time { return fixed }

	require.NoError(t, svc.Emit(context.Background(), db, DomainEvent{
		EventType:     enums.EventQuoteAccepted,
		AggregateType: enums.AggregateQuote,
		AggregateID:   uuid.New(),
		Data:          map[string]string{"status": "accepted"},
	}))

	var row models.OutboxEvent
	require.NoError(t, db.First(&row).Error)
	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.True(t, envelope.OccurredAt.Equal(fixed))
	assert.Equal(t, time.UTC, envelope.OccurredAt.Location())
}

func TestFetchUnpublishedForPublishOrdersAndFilters(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	second := insertEvent(t, db, base.Add(2*time.Minute), 0)
	first := insertEvent(t, db, base.Add(time.Minute), 1)
	insertEvent(t, db, base, 5) // exhausted
	published := insertEvent(t, db, base.Add(3*time.Minute), 0)
	require.NoError(t, repo.MarkPublishedTx(db, published.ID))

	rows, err := repo.FetchUnpublishedForPublish(db, 10, 5)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, first.ID, rows[0].ID)
	assert.Equal(t, second.ID, rows[1].ID)

	limited, err := repo.FetchUnpublishedForPublish(db, 1, 5)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, first.ID, limited[0].ID)

	_, err = repo.FetchUnpublishedForPublish(nil, 1, 5)
	assert.Error(t, err)
}

func TestMarkFailedAndTerminal(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	event := insertEvent(t, db, time.Now().UTC(), 0)

	require.NoError(t, repo.MarkFailedTx(db, event.ID, errors.New("publish timeout")))
	require.NoError(t, repo.MarkFailedTx(db, event.ID, errors.New("publish timeout again")))

	var row models.OutboxEvent
	require.NoError(t, db.First(&row, "id = ?", event.ID).Error)
	assert.Equal(t, 2, row.AttemptCount)
	require.NotNil(t, row.LastError)
	assert.Equal(t, "publish timeout again", *row.LastError)

	require.NoError(t, repo.MarkTerminalTx(db, event.ID, errors.New(strings.Repeat("x", 2000)), 10))
	require.NoError(t, db.First(&row, "id = ?", event.ID).Error)
	assert.Equal(t, 10, row.AttemptCount)
	assert.Len(t, *row.LastError, maxDLQErrorLen)

	rows, err := repo.FetchUnpublishedForPublish(db, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDLQRepositoryInsertAndFind(t *testing.T) {
	db := setupOutboxTestDB(t)
	dlq := NewDLQRepository(db)
	event := insertEvent(t, db, time.Now().UTC(), 3)

	msg := strings.Repeat("e", maxDLQErrorLen+50)
	require.NoError(t, dlq.InsertTx(db, models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
	}))

	found, err := dlq.FindByEventID(context.Background(), event.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, found.ErrorReason)
	assert.Len(t, *found.ErrorMessage, maxDLQErrorLen)
	assert.JSONEq(t, string(event.Payload), string(found.Payload))

	missing, err := dlq.FindByEventID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Error(t, dlq.InsertTx(nil, models.OutboxDLQ{}))
}

func TestDeletePublishedBeforeKeepsPendingRows(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	published := insertEvent(t, db, cutoff.Add(-72*time.Hour), 0)
	require.NoError(t, db.Model(&models.OutboxEvent{}).Where("id = ?", published.ID).
		Update("published_at", cutoff.Add(-48*time.Hour)).Error)
	deadLettered := insertEvent(t, db, cutoff.Add(-72*time.Hour), 10)
	pending := insertEvent(t, db, cutoff.Add(-72*time.Hour), 3)
	recentDead := insertEvent(t, db, cutoff.Add(time.Hour), 10)

	deleted, err := repo.DeletePublishedBefore(context.Background(), db, cutoff, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var remaining []models.OutboxEvent
	require.NoError(t, db.Find(&remaining).Error)
	ids := []uuid.UUID{}
	for _, row := range remaining {
		ids = append(ids, row.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{pending.ID, recentDead.ID}, ids)
	assert.NotContains(t, ids, deadLettered.ID)
}

func TestTruncateDLQErrorKeepsRunesWhole(t *testing.T) {
	msg := strings.Repeat("a", maxDLQErrorLen-1) + "é tail"
	got := truncateDLQError(msg)
	assert.True(t, utf8.ValidString(got))
	assert.Len(t, got, maxDLQErrorLen-1)

	entry := NewDLQEntry(models.OutboxEvent{ID: uuid.New(), AttemptCount: 4}, enums.OutboxDLQReasonNonRetryable, errors.New("unknown event type"), time.Unix(0, 0))
	require.NotNil(t, entry.ErrorMessage)
	assert.Equal(t, "unknown event type", *entry.ErrorMessage)
	assert.Equal(t, 4, entry.AttemptCount)
}
