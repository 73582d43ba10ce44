package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trading-academy/internal/domain"
	"trading-academy/internal/domain/model"
	"trading-academy/internal/domain/ports/repository"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, user_id, plan, status, current_period_start, current_period_end,
       failed_payment_count, grace_period_ends_at, canceled_at, cancel_reason, created_at, updated_at`

// LockUser takes a transaction-scoped advisory lock keyed by the user id.
// It only serializes anything inside a transaction.
func (r *subscriptionRepo) LockUser(ctx context.Context, tx repository.Tx, userID string) error {
	if _, ok := tx.(pgx.Tx); !ok {
		return domain.ErrInvalidExecContext
	}
	_, err := execSQL(ctx, r.pool, tx, `SELECT pg_advisory_xact_lock($1)`, hashToInt64("subscription:"+userID))
	if err != nil {
		return mapWriteErr(err)
	}
	return nil
}

// Save upserts a subscription. The partial unique index on ACTIVE rows turns a
// second ACTIVE row for the same user into domain.ErrAlreadyExists.
func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	if s == nil || s.ID == "" || s.UserID == "" {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO subscriptions (
  id, user_id, plan, status, current_period_start, current_period_end,
  failed_payment_count, grace_period_ends_at, canceled_at, cancel_reason, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  plan=$3, status=$4, current_period_start=$5, current_period_end=$6,
  failed_payment_count=$7, grace_period_ends_at=$8, canceled_at=$9, cancel_reason=$10, updated_at=$12;`

	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.UserID, string(s.Plan), string(s.Status), s.CurrentPeriodStart, s.CurrentPeriodEnd,
		s.FailedPaymentCount, s.GracePeriodEndsAt, s.CanceledAt, s.CancelReason, s.CreatedAt, s.UpdatedAt)
	return mapWriteErr(err)
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *subscriptionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + `
  FROM subscriptions
 WHERE user_id=$1 AND status='ACTIVE'
 ORDER BY created_at DESC
 LIMIT 1;`
	return r.queryOne(ctx, tx, q, userID)
}

func (r *subscriptionRepo) FindCurrentByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + `
  FROM subscriptions
 WHERE user_id=$1 AND status IN ('ACTIVE','PAST_DUE','GRACE_PERIOD')
 ORDER BY created_at DESC
 LIMIT 1;`
	return r.queryOne(ctx, tx, q, userID)
}

func (r *subscriptionRepo) ListDue(ctx context.Context, tx repository.Tx, statuses []model.SubscriptionStatus, now time.Time, limit int) ([]*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + `
  FROM subscriptions
 WHERE status = ANY($1) AND current_period_end <= $2
 ORDER BY current_period_end ASC
 LIMIT $3;`
	ss := make([]string, len(statuses))
	for i, s := range statuses {
		ss[i] = string(s)
	}
	return r.queryMany(ctx, tx, q, ss, now, limit)
}

func (r *subscriptionRepo) ListGraceExpired(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + `
  FROM subscriptions
 WHERE status='GRACE_PERIOD' AND grace_period_ends_at < $1
 ORDER BY grace_period_ends_at ASC
 LIMIT $2;`
	return r.queryMany(ctx, tx, q, now, limit)
}

func (r *subscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	const q = `SELECT status, COUNT(*) FROM subscriptions GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	defer rows.Close()

	counts := make(map[model.SubscriptionStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		counts[model.SubscriptionStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return counts, nil
}

func (r *subscriptionRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...any) (*model.Subscription, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) queryMany(ctx context.Context, tx repository.Tx, sql string, args ...any) ([]*model.Subscription, error) {
	rows, err := queryRows(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return collect(rows, func(rows pgx.Rows) (*model.Subscription, error) { return scanSubscription(rows) })
}

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	s := &model.Subscription{}
	var plan, status string
	if err := row.Scan(&s.ID, &s.UserID, &plan, &status, &s.CurrentPeriodStart, &s.CurrentPeriodEnd,
		&s.FailedPaymentCount, &s.GracePeriodEndsAt, &s.CanceledAt, &s.CancelReason, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, mapReadErr(err)
	}
	s.Plan = model.SubscriptionPlan(plan)
	s.Status = model.SubscriptionStatus(status)
	return s, nil
}
