package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/quotation-engine/pkg/db/models"
	pkgerrors "github.com/angelmondragon/quotation-engine/pkg/errors"
	"github.com/angelmondragon/quotation-engine/pkg/pagination"
)

// Service is the inbox a signed-in user reads quote lifecycle notices from.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

type ListParams struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// query resolves the page size and decodes the opaque cursor.
func (p ListParams) query() (listNotificationsParams, error) {
	q := listNotificationsParams{
		UserID:     p.UserID,
		Limit:      pagination.NormalizeLimit(p.Limit),
		UnreadOnly: p.UnreadOnly,
	}
	if err := requireUser(p.UserID); err != nil {
		return q, err
	}
	if p.Cursor == "" {
		return q, nil
	}
	cursor, err := pagination.ParseCursor(p.Cursor)
	if err != nil {
		return q, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	q.Cursor = cursor
	return q, nil
}

// ListResult is one page, newest first. Cursor is empty on the last page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

type inbox struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &inbox{repo: repo, clock: func() time.Time { return time.Now().UTC() }}, nil
}

func requireUser(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	return nil
}

func (s *inbox) List(ctx context.Context, params ListParams) (*ListResult, error) {
	q, err := params.query()
	if err != nil {
		return nil, err
	}
	rows, next, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	page := &ListResult{Items: rows}
	if next != nil {
		page.Cursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}

func (s *inbox) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	res, err := s.repo.MarkRead(ctx, userID, notificationID, s.clock())
	switch {
	case err != nil:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	case !res.Found:
		// Someone else's notification looks the same as a missing one.
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *inbox) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}
	n, err := s.repo.MarkAllRead(ctx, userID, s.clock())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark all notifications read")
	}
	return n, nil
}
