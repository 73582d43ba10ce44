package repository

import (
	"context"

	"trading-academy/internal/domain/model"
)

type OrderRepository interface {
	Save(ctx context.Context, tx Tx, o *model.Order) error
	ListBySubscription(ctx context.Context, tx Tx, subscriptionID string) ([]*model.Order, error)
}
