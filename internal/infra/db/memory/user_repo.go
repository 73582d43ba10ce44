package memory

import (
	"context"
	"strings"

	"trading-academy/internal/domain"
	"trading-academy/internal/domain/model"
	"trading-academy/internal/domain/ports/repository"
)

var (
	_ repository.UserRepository       = (*UserRepo)(nil)
	_ repository.MentorshipRepository = (*MentorshipRepo)(nil)
)

type UserRepo struct{ s *Store }

func NewUserRepo(s *Store) *UserRepo { return &UserRepo{s: s} }

func (r *UserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if err := checkTx(tx); err != nil {
		return err
	}
	if u == nil || u.ID == "" {
		return domain.ErrInvalidArgument
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.users {
		if other.ID != u.ID && strings.EqualFold(other.Email, u.Email) {
			return domain.ErrAlreadyExists
		}
	}
	put(tx, r.s.users, u.ID, clone(u))
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	if err := checkTx(tx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(u), nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	if err := checkTx(tx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return clone(u), nil
		}
	}
	return nil, domain.ErrNotFound
}

type MentorshipRepo struct{ s *Store }

func NewMentorshipRepo(s *Store) *MentorshipRepo { return &MentorshipRepo{s: s} }

func (r *MentorshipRepo) Save(ctx context.Context, tx repository.Tx, m *model.MentorshipPayment) error {
	if err := checkTx(tx); err != nil {
		return err
	}
	if m == nil || m.ID == "" {
		return domain.ErrInvalidArgument
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	put(tx, r.s.mentorships, m.ID, clone(m))
	return nil
}

func (r *MentorshipRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.MentorshipPayment, error) {
	if err := checkTx(tx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.mentorships[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(m), nil
}

func (r *MentorshipRepo) HasCompleted(ctx context.Context, tx repository.Tx, userID string) (bool, error) {
	if err := checkTx(tx); err != nil {
		return false, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, m := range r.s.mentorships {
		if m.UserID == userID && m.Status == model.MentorshipCompleted {
			return true, nil
		}
	}
	return false, nil
}
