package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trading-academy/internal/domain"
	"trading-academy/internal/domain/model"
	"trading-academy/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

func (r *PostgresUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if u == nil || u.ID == "" {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO users (id, email, name, role, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE SET email=$2, name=$3, role=$4;`
	_, err := execSQL(ctx, r.pool, tx, q, u.ID, strings.ToLower(u.Email), u.Name, string(u.Role), u.CreatedAt)
	return mapWriteErr(err)
}

func (r *PostgresUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	const q = `SELECT id, email, name, role, created_at FROM users WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *PostgresUserRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	const q = `SELECT id, email, name, role, created_at FROM users WHERE email=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &u.CreatedAt); err != nil {
		return nil, mapReadErr(err)
	}
	u.Role = model.Role(role)
	return &u, nil
}

// -----------------------------
// Mentorship payments
// -----------------------------

var _ repository.MentorshipRepository = (*mentorshipRepo)(nil)

type mentorshipRepo struct {
	pool *pgxpool.Pool
}

func NewMentorshipRepo(pool *pgxpool.Pool) *mentorshipRepo {
	return &mentorshipRepo{pool: pool}
}

func (r *mentorshipRepo) Save(ctx context.Context, tx repository.Tx, m *model.MentorshipPayment) error {
	if m == nil || m.ID == "" {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO mentorship_payments (id, user_id, amount, currency, status, payment_intent_id, created_at, completed_at)
VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7,$8)
ON CONFLICT (id) DO UPDATE SET
  status=$5, payment_intent_id=COALESCE(NULLIF($6,''), mentorship_payments.payment_intent_id), completed_at=$8;`
	_, err := execSQL(ctx, r.pool, tx, q, m.ID, m.UserID, m.Amount, m.Currency, string(m.Status), m.PaymentIntentID, m.CreatedAt, m.CompletedAt)
	return mapWriteErr(err)
}

func (r *mentorshipRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.MentorshipPayment, error) {
	const q = `
SELECT id, user_id, amount, currency, status, COALESCE(payment_intent_id,''), created_at, completed_at
  FROM mentorship_payments WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var m model.MentorshipPayment
	var status string
	if err := row.Scan(&m.ID, &m.UserID, &m.Amount, &m.Currency, &status, &m.PaymentIntentID, &m.CreatedAt, &m.CompletedAt); err != nil {
		return nil, mapReadErr(err)
	}
	m.Status = model.MentorshipPaymentStatus(status)
	return &m, nil
}

func (r *mentorshipRepo) HasCompleted(ctx context.Context, tx repository.Tx, userID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM mentorship_payments WHERE user_id=$1 AND status='completed');`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, mapReadErr(err)
	}
	return ok, nil
}
