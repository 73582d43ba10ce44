package repository

import (
	"context"

	"trading-academy/internal/domain/model"
)

// PaymentIntentRepository stores payment intents keyed by id. Rows are never
// deleted and Save overwrites the whole record.
type PaymentIntentRepository interface {
	Save(ctx context.Context, tx Tx, pi *model.PaymentIntent) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.PaymentIntent, error)
}
