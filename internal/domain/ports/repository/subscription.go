package repository

import (
	"context"
	"time"

	"trading-academy/internal/domain/model"
)

// SubscriptionRepository is the port for signals subscriptions.
type SubscriptionRepository interface {
	// LockUser serializes subscription writes for one user until tx ends.
	LockUser(ctx context.Context, tx Tx, userID string) error

	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	// FindActiveByUser returns the ACTIVE row, whatever its period end.
	FindActiveByUser(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)
	// FindCurrentByUser returns the newest row in ACTIVE, PAST_DUE or GRACE_PERIOD.
	FindCurrentByUser(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)

	// ListDue returns rows in one of statuses whose period ended at or before now.
	ListDue(ctx context.Context, tx Tx, statuses []model.SubscriptionStatus, now time.Time, limit int) ([]*model.Subscription, error)
	// ListGraceExpired returns GRACE_PERIOD rows whose grace window closed before now.
	ListGraceExpired(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.Subscription, error)

	CountByStatus(ctx context.Context, tx Tx) (map[model.SubscriptionStatus]int, error)
}
