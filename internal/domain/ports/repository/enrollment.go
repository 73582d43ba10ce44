package repository

import (
	"context"

	"trading-academy/internal/domain/model"
)

// CourseEnrollmentRepository enforces one enrollment per (user, course).
// Create returns domain.ErrAlreadyExists for a duplicate pair.
type CourseEnrollmentRepository interface {
	Create(ctx context.Context, tx Tx, e *model.CourseEnrollment) error
	FindByUserAndCourse(ctx context.Context, tx Tx, userID, courseID string) (*model.CourseEnrollment, error)
	CountByUserAndCourse(ctx context.Context, tx Tx, userID, courseID string) (int, error)
}

type EventRegistrationRepository interface {
	Save(ctx context.Context, tx Tx, r *model.EventRegistration) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.EventRegistration, error)
	FindByPaymentIntent(ctx context.Context, tx Tx, intentID string) (*model.EventRegistration, error)
	// FindOpenByEventAndEmail returns the newest non-cancelled registration.
	FindOpenByEventAndEmail(ctx context.Context, tx Tx, eventID, email string) (*model.EventRegistration, error)
}
