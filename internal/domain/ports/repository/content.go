package repository

import (
	"context"

	"trading-academy/internal/domain/model"
)

type ResourceRepository interface {
	Save(ctx context.Context, tx Tx, r *model.Resource) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Resource, error)
	List(ctx context.Context, tx Tx, premium bool) ([]*model.Resource, error)
}

type ResourcePurchaseRepository interface {
	Save(ctx context.Context, tx Tx, p *model.ResourcePurchase) error
	FindByPaymentIntent(ctx context.Context, tx Tx, intentID string) (*model.ResourcePurchase, error)
	FindPendingByUserAndResource(ctx context.Context, tx Tx, userID, resourceID string) (*model.ResourcePurchase, error)
	// CompletedResourceIDs lists resources the user has paid for.
	CompletedResourceIDs(ctx context.Context, tx Tx, userID string) ([]string, error)
}

type SignalRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Signal) error
	List(ctx context.Context, tx Tx, premium bool) ([]*model.Signal, error)
}
