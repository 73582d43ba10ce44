package memory

import (
	"context"

	"trading-academy/internal/domain"
	"trading-academy/internal/domain/model"
	"trading-academy/internal/domain/ports/repository"
)

var _ repository.PaymentIntentRepository = (*PaymentIntentRepo)(nil)

type PaymentIntentRepo struct{ s *Store }

func NewPaymentIntentRepo(s *Store) *PaymentIntentRepo { return &PaymentIntentRepo{s: s} }

func (r *PaymentIntentRepo) Save(ctx context.Context, tx repository.Tx, pi *model.PaymentIntent) error {
	if err := checkTx(tx); err != nil {
		return err
	}
	if pi == nil || pi.ID == "" {
		return domain.ErrInvalidArgument
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	put(tx, r.s.intents, pi.ID, pi.Clone())
	return nil
}

func (r *PaymentIntentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentIntent, error) {
	if err := checkTx(tx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	pi, ok := r.s.intents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return pi.Clone(), nil
}
