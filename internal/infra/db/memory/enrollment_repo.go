package memory

import (
	"context"
	"strings"

	"trading-academy/internal/domain"
	"trading-academy/internal/domain/model"
	"trading-academy/internal/domain/ports/repository"
)

var (
	_ repository.CourseEnrollmentRepository  = (*EnrollmentRepo)(nil)
	_ repository.EventRegistrationRepository = (*RegistrationRepo)(nil)
)

type EnrollmentRepo struct{ s *Store }

func NewEnrollmentRepo(s *Store) *EnrollmentRepo { return &EnrollmentRepo{s: s} }

// Create rejects a second enrollment for the same (user, course).
func (r *EnrollmentRepo) Create(ctx context.Context, tx repository.Tx, e *model.CourseEnrollment) error {
	if err := checkTx(tx); err != nil {
		return err
	}
	if e == nil || e.ID == "" || e.UserID == "" || e.CourseID == "" {
		return domain.ErrInvalidArgument
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.enrollments {
		if other.UserID == e.UserID && other.CourseID == e.CourseID {
			return domain.ErrAlreadyExists
		}
	}
	put(tx, r.s.enrollments, e.ID, clone(e))
	return nil
}

func (r *EnrollmentRepo) FindByUserAndCourse(ctx context.Context, tx repository.Tx, userID, courseID string) (*model.CourseEnrollment, error) {
	if err := checkTx(tx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, e := range r.s.enrollments {
		if e.UserID == userID && e.CourseID == courseID {
			return clone(e), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *EnrollmentRepo) CountByUserAndCourse(ctx context.Context, tx repository.Tx, userID, courseID string) (int, error) {
	if err := checkTx(tx); err != nil {
		return 0, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, e := range r.s.enrollments {
		if e.UserID == userID && e.CourseID == courseID {
			n++
		}
	}
	return n, nil
}

type RegistrationRepo struct{ s *Store }

func NewRegistrationRepo(s *Store) *RegistrationRepo { return &RegistrationRepo{s: s} }

func (r *RegistrationRepo) Save(ctx context.Context, tx repository.Tx, reg *model.EventRegistration) error {
	if err := checkTx(tx); err != nil {
		return err
	}
	if reg == nil || reg.ID == "" || reg.EventID == "" {
		return domain.ErrInvalidArgument
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	put(tx, r.s.registrations, reg.ID, clone(reg))
	return nil
}

func (r *RegistrationRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.EventRegistration, error) {
	if err := checkTx(tx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	reg, ok := r.s.registrations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(reg), nil
}

func (r *RegistrationRepo) FindByPaymentIntent(ctx context.Context, tx repository.Tx, intentID string) (*model.EventRegistration, error) {
	return r.newest(tx, func(reg *model.EventRegistration) bool {
		return intentID != "" && reg.PaymentIntentID == intentID
	})
}

func (r *RegistrationRepo) FindOpenByEventAndEmail(ctx context.Context, tx repository.Tx, eventID, email string) (*model.EventRegistration, error) {
	return r.newest(tx, func(reg *model.EventRegistration) bool {
		return reg.EventID == eventID && strings.EqualFold(reg.Email, email) &&
			reg.Status != model.RegistrationCancelled
	})
}

func (r *RegistrationRepo) newest(tx repository.Tx, match func(*model.EventRegistration) bool) (*model.EventRegistration, error) {
	if err := checkTx(tx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var best *model.EventRegistration
	for _, reg := range r.s.registrations {
		if match(reg) && (best == nil || reg.CreatedAt.After(best.CreatedAt)) {
			best = reg
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	return clone(best), nil
}
