package memory

import (
	"context"
	"sort"

	"trading-academy/internal/domain"
	"trading-academy/internal/domain/model"
	"trading-academy/internal/domain/ports/repository"
)

var (
	_ repository.ResourceRepository         = (*ResourceRepo)(nil)
	_ repository.ResourcePurchaseRepository = (*PurchaseRepo)(nil)
	_ repository.SignalRepository           = (*SignalRepo)(nil)
	_ repository.OrderRepository            = (*OrderRepo)(nil)
)

type ResourceRepo struct{ s *Store }

func NewResourceRepo(s *Store) *ResourceRepo { return &ResourceRepo{s: s} }

func (r *ResourceRepo) Save(ctx context.Context, tx repository.Tx, res *model.Resource) error {
	if err := checkTx(tx); err != nil {
		return err
	}
	if res == nil || res.ID == "" {
		return domain.ErrInvalidArgument
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	put(tx, r.s.resources, res.ID, clone(res))
	return nil
}

func (r *ResourceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Resource, error) {
	if err := checkTx(tx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	res, ok := r.s.resources[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(res), nil
}

func (r *ResourceRepo) List(ctx context.Context, tx repository.Tx, premium bool) ([]*model.Resource, error) {
	if err := checkTx(tx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	out := []*model.Resource{}
	for _, res := range r.s.resources {
		if res.Premium == premium {
			out = append(out, clone(res))
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type PurchaseRepo struct{ s *Store }

func NewPurchaseRepo(s *Store) *PurchaseRepo { return &PurchaseRepo{s: s} }

func (r *PurchaseRepo) Save(ctx context.Context, tx repository.Tx, p *model.ResourcePurchase) error {
	if err := checkTx(tx); err != nil {
		return err
	}
	if p == nil || p.ID == "" {
		return domain.ErrInvalidArgument
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	put(tx, r.s.purchases, p.ID, clone(p))
	return nil
}

func (r *PurchaseRepo) FindByPaymentIntent(ctx context.Context, tx repository.Tx, intentID string) (*model.ResourcePurchase, error) {
	return r.find(tx, func(p *model.ResourcePurchase) bool {
		return intentID != "" && p.PaymentIntentID == intentID
	})
}

func (r *PurchaseRepo) FindPendingByUserAndResource(ctx context.Context, tx repository.Tx, userID, resourceID string) (*model.ResourcePurchase, error) {
	return r.find(tx, func(p *model.ResourcePurchase) bool {
		return p.UserID == userID && p.ResourceID == resourceID && p.Status == model.PurchasePending
	})
}

func (r *PurchaseRepo) CompletedResourceIDs(ctx context.Context, tx repository.Tx, userID string) ([]string, error) {
	if err := checkTx(tx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []string
	for _, p := range r.s.purchases {
		if p.UserID == userID && p.Status == model.PurchaseCompleted {
			out = append(out, p.ResourceID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *PurchaseRepo) find(tx repository.Tx, match func(*model.ResourcePurchase) bool) (*model.ResourcePurchase, error) {
	if err := checkTx(tx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var best *model.ResourcePurchase
	for _, p := range r.s.purchases {
		if match(p) && (best == nil || p.CreatedAt.After(best.CreatedAt)) {
			best = p
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	return clone(best), nil
}

type SignalRepo struct{ s *Store }

func NewSignalRepo(s *Store) *SignalRepo { return &SignalRepo{s: s} }

func (r *SignalRepo) Save(ctx context.Context, tx repository.Tx, sig *model.Signal) error {
	if err := checkTx(tx); err != nil {
		return err
	}
	if sig == nil || sig.ID == "" {
		return domain.ErrInvalidArgument
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	put(tx, r.s.signals, sig.ID, clone(sig))
	return nil
}

// List returns newest first.
func (r *SignalRepo) List(ctx context.Context, tx repository.Tx, premium bool) ([]*model.Signal, error) {
	if err := checkTx(tx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	out := []*model.Signal{}
	for _, sig := range r.s.signals {
		if sig.Premium == premium {
			out = append(out, clone(sig))
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type OrderRepo struct{ s *Store }

func NewOrderRepo(s *Store) *OrderRepo { return &OrderRepo{s: s} }

func (r *OrderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	if err := checkTx(tx); err != nil {
		return err
	}
	if o == nil || o.ID == "" {
		return domain.ErrInvalidArgument
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	put(tx, r.s.orders, o.ID, clone(o))
	return nil
}

func (r *OrderRepo) ListBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string) ([]*model.Order, error) {
	if err := checkTx(tx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	var out []*model.Order
	for _, o := range r.s.orders {
		if o.SubscriptionID == subscriptionID {
			out = append(out, clone(o))
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
