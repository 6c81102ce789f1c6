package quotes

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/quotation-engine/internal/repo"
	"github.com/angelmondragon/quotation-engine/pkg/db/models"
	"github.com/angelmondragon/quotation-engine/pkg/enums"
)

// Repository persists service requests and their quotes.
type Repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{base: r.base.WithTx(tx)}
}

// LockRequest loads the service request with a row lock so concurrent submissions
// and decisions for the same request serialize.
func (r *Repository) LockRequest(ctx context.Context, requestID uuid.UUID) (*models.ServiceRequest, error) {
	var request models.ServiceRequest
	err := r.base.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", requestID).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *Repository) CreateRequest(ctx context.Context, request *models.ServiceRequest) error {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	return r.base.DB(ctx).Create(request).Error
}

func (r *Repository) UpdateRequestStatus(ctx context.Context, requestID uuid.UUID, status enums.RequestStatus) error {
	return r.base.DB(ctx).
		Model(&models.ServiceRequest{}).
		Where("id = ?", requestID).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()}).Error
}

// FindByRequestID returns the quote with its line items in sort order, or
// gorm.ErrRecordNotFound.
func (r *Repository) FindByRequestID(ctx context.Context, requestID uuid.UUID) (*models.Quote, error) {
	var quote models.Quote
	err := r.base.DB(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("request_id = ?", requestID).
		First(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// ExistsForRequest reports whether a quote was already submitted for the request.
func (r *Repository) ExistsForRequest(ctx context.Context, requestID uuid.UUID) (bool, error) {
	var count int64
	if err := r.base.DB(ctx).Model(&models.Quote{}).Where("request_id = ?", requestID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts the quote and its line items.
func (r *Repository) Create(ctx context.Context, quote *models.Quote) error {
	if quote == nil {
		return errors.New("quote is required")
	}
	if quote.ID == uuid.Nil {
		quote.ID = uuid.New()
	}
	for i := range quote.LineItems {
		if quote.LineItems[i].ID == uuid.Nil {
			quote.LineItems[i].ID = uuid.New()
		}
		quote.LineItems[i].QuoteID = quote.ID
	}
	return r.base.DB(ctx).Create(quote).Error
}

// Decision is the state a submitted quote moves to when the client decides.
type Decision struct {
	Status    enums.QuoteStatus
	Reason    *string
	DecidedBy uuid.UUID
	DecidedAt time.Time
}

// ApplyDecision updates the quote only while it is still submitted. It reports
// false when another decision got there first.
func (r *Repository) ApplyDecision(ctx context.Context, quoteID uuid.UUID, decision Decision) (bool, error) {
	result := r.base.DB(ctx).
		Model(&models.Quote{}).
		Where("id = ? AND status = ?", quoteID, enums.QuoteStatusSubmitted).
		Updates(map[string]any{
			"status":           decision.Status,
			"rejection_reason": decision.Reason,
			"decided_by":       decision.DecidedBy,
			"decided_at":       decision.DecidedAt,
			"updated_at":       decision.DecidedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
