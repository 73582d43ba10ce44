package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"trading-academy/internal/domain"
	"trading-academy/internal/domain/model"
	"trading-academy/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*SubscriptionRepo)(nil)

type SubscriptionRepo struct{ s *Store }

func NewSubscriptionRepo(s *Store) *SubscriptionRepo { return &SubscriptionRepo{s: s} }

// LockUser is a no-op; TxManager already runs one transaction at a time.
func (r *SubscriptionRepo) LockUser(ctx context.Context, tx repository.Tx, userID string) error {
	return checkTx(tx)
}

// Save enforces one ACTIVE row per user like the Postgres partial index.
func (r *SubscriptionRepo) Save(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	if err := checkTx(tx); err != nil {
		return err
	}
	if sub == nil || sub.ID == "" || sub.UserID == "" {
		return domain.ErrInvalidArgument
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sub.Status == model.SubscriptionStatusActive {
		for _, other := range r.s.subs {
			if other.ID != sub.ID && other.UserID == sub.UserID && other.Status == model.SubscriptionStatusActive {
				return domain.ErrAlreadyExists
			}
		}
	}
	put(tx, r.s.subs, sub.ID, clone(sub))
	return nil
}

func (r *SubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	if err := checkTx(tx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sub, ok := r.s.subs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(sub), nil
}

func (r *SubscriptionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	return r.newest(tx, func(s *model.Subscription) bool {
		return s.UserID == userID && s.Status == model.SubscriptionStatusActive
	})
}

func (r *SubscriptionRepo) FindCurrentByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	return r.newest(tx, func(s *model.Subscription) bool {
		if s.UserID != userID {
			return false
		}
		switch s.Status {
		case model.SubscriptionStatusActive, model.SubscriptionStatusPastDue, model.SubscriptionStatusGracePeriod:
			return true
		}
		return false
	})
}

func (r *SubscriptionRepo) ListDue(ctx context.Context, tx repository.Tx, statuses []model.SubscriptionStatus, now time.Time, limit int) ([]*model.Subscription, error) {
	return r.list(tx, limit, func(s *model.Subscription) bool {
		return slices.Contains(statuses, s.Status) && !s.CurrentPeriodEnd.After(now)
	}, func(a, b *model.Subscription) bool {
		return a.CurrentPeriodEnd.Before(b.CurrentPeriodEnd)
	})
}

func (r *SubscriptionRepo) ListGraceExpired(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Subscription, error) {
	return r.list(tx, limit, func(s *model.Subscription) bool {
		return s.Status == model.SubscriptionStatusGracePeriod &&
			s.GracePeriodEndsAt != nil && s.GracePeriodEndsAt.Before(now)
	}, func(a, b *model.Subscription) bool {
		return a.GracePeriodEndsAt.Before(*b.GracePeriodEndsAt)
	})
}

func (r *SubscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	if err := checkTx(tx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[model.SubscriptionStatus]int)
	for _, s := range r.s.subs {
		out[s.Status]++
	}
	return out, nil
}

func (r *SubscriptionRepo) newest(tx repository.Tx, match func(*model.Subscription) bool) (*model.Subscription, error) {
	if err := checkTx(tx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var best *model.Subscription
	for _, s := range r.s.subs {
		if match(s) && (best == nil || s.CreatedAt.After(best.CreatedAt)) {
			best = s
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	return clone(best), nil
}

func (r *SubscriptionRepo) list(tx repository.Tx, limit int, match func(*model.Subscription) bool, less func(a, b *model.Subscription) bool) ([]*model.Subscription, error) {
	if err := checkTx(tx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	var out []*model.Subscription
	for _, s := range r.s.subs {
		if match(s) {
			out = append(out, clone(s))
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
