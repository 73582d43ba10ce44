package repository

import (
	"context"

	"trading-academy/internal/domain/model"
)

// -----------------------------
// Users
// -----------------------------

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.User, error)
}

// -----------------------------
// Mentorship payments
// -----------------------------

type MentorshipRepository interface {
	Save(ctx context.Context, tx Tx, m *model.MentorshipPayment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.MentorshipPayment, error)
	HasCompleted(ctx context.Context, tx Tx, userID string) (bool, error)
}
