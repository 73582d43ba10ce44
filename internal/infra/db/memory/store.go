// Package memory holds process-local implementations of the repository and
// adapter ports. They back the service in dev mode and the use case tests.
package memory

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v4"

	"trading-academy/internal/domain"
	"trading-academy/internal/domain/model"
	"trading-academy/internal/domain/ports/repository"
)

// Store is the shared state behind every memory repository.
type Store struct {
	mu sync.RWMutex

	intents       map[string]*model.PaymentIntent
	users         map[string]*model.User
	subs          map[string]*model.Subscription
	mentorships   map[string]*model.MentorshipPayment
	enrollments   map[string]*model.CourseEnrollment
	registrations map[string]*model.EventRegistration
	resources     map[string]*model.Resource
	purchases     map[string]*model.ResourcePurchase
	signals       map[string]*model.Signal
	orders        map[string]*model.Order
}

func NewStore() *Store {
	s := &Store{}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.intents = map[string]*model.PaymentIntent{}
	s.users = map[string]*model.User{}
	s.subs = map[string]*model.Subscription{}
	s.mentorships = map[string]*model.MentorshipPayment{}
	s.enrollments = map[string]*model.CourseEnrollment{}
	s.registrations = map[string]*model.EventRegistration{}
	s.resources = map[string]*model.Resource{}
	s.purchases = map[string]*model.ResourcePurchase{}
	s.signals = map[string]*model.Signal{}
	s.orders = map[string]*model.Order{}
}

func clone[V any](v *V) *V {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

// -----------------------------
// Transactions
// -----------------------------

var _ repository.TransactionManager = (*TxManager)(nil)

// memTx is handed to callbacks running inside WithTx. It journals the
// previous value of every key it writes.
type memTx struct {
	undo []func()
}

// put stores v under key. Inside a transaction the old value is journaled so
// rollback can put back exactly the keys the transaction wrote. Callers hold
// the store write lock.
func put[V any](tx repository.Tx, m map[string]*V, key string, v *V) {
	if t, ok := tx.(*memTx); ok {
		old, had := m[key]
		t.undo = append(t.undo, func() {
			if had {
				m[key] = old
			} else {
				delete(m, key)
			}
		})
	}
	m[key] = v
}

// TxManager serializes transactions on one mutex. A failed transaction undoes
// only its own writes, so saves made outside any transaction meanwhile
// survive. WithTx is not reentrant.
type TxManager struct {
	mu    sync.Mutex
	store *Store
}

func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

func (m *TxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{}
	if err := fn(ctx, tx); err != nil {
		m.store.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		m.store.mu.Unlock()
		return err
	}
	return nil
}

func checkTx(tx repository.Tx) error {
	switch tx.(type) {
	case nil, *memTx:
		return nil
	default:
		return domain.ErrInvalidExecContext
	}
}
