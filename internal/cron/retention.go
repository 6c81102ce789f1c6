package cron

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

const (
	defaultRetentionDays = 30
	day                  = 24 * time.Hour
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type readNotificationPurger interface {
	DeleteReadBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type outboxPurger interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, terminalAttempts int) (int64, error)
}

// retentionJob deletes rows older than a cutoff inside one transaction.
type retentionJob struct {
	name          string
	db            txRunner
	retentionDays int
	purge         func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
	now           func() time.Time
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) cutoff() time.Time {
	return j.now().UTC().Add(-time.Duration(j.retentionDays) * day)
}

func (j *retentionJob) Run(ctx context.Context) (int64, error) {
	cutoff := j.cutoff()
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.purge(ctx, tx, cutoff)
		deleted = rows
		return err
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

type NotificationCleanupJobParams struct {
	DB            txRunner
	Repository    readNotificationPurger
	RetentionDays int
}

// NewNotificationCleanupJob removes read notifications older than the retention
// window. Unread notifications are kept regardless of age.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.DB == nil {
		return nil, errors.New("db runner required")
	}
	if params.Repository == nil {
		return nil, errors.New("notifications repository required")
	}
	return &retentionJob{
		name:          "notification-cleanup",
		db:            params.DB,
		retentionDays: retentionOrDefault(params.RetentionDays),
		purge:         params.Repository.DeleteReadBefore,
		now:           time.Now,
	}, nil
}

type OutboxRetentionJobParams struct {
	DB            txRunner
	Repository    outboxPurger
	RetentionDays int
	// TerminalAttempts is the publisher's attempt ceiling. Unpublished rows at the
	// ceiling have been dead-lettered and are purged too.
	TerminalAttempts int
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.DB == nil {
		return nil, errors.New("db runner required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository required")
	}
	if params.TerminalAttempts <= 0 {
		return nil, errors.New("terminal attempt count must be positive")
	}
	terminal := params.TerminalAttempts
	return &retentionJob{
		name:          "outbox-retention",
		db:            params.DB,
		retentionDays: retentionOrDefault(params.RetentionDays),
		purge: func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
			return params.Repository.DeletePublishedBefore(ctx, tx, cutoff, terminal)
		},
		now: time.Now,
	}, nil
}

func retentionOrDefault(days int) int {
	if days <= 0 {
		return defaultRetentionDays
	}
	return days
}
