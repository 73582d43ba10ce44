package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trading-academy/internal/domain"
	"trading-academy/internal/domain/model"
	"trading-academy/internal/domain/ports/repository"
)

// -----------------------------
// Resources
// -----------------------------

var _ repository.ResourceRepository = (*resourceRepo)(nil)

type resourceRepo struct {
	pool *pgxpool.Pool
}

func NewResourceRepo(pool *pgxpool.Pool) *resourceRepo {
	return &resourceRepo{pool: pool}
}

func (r *resourceRepo) Save(ctx context.Context, tx repository.Tx, res *model.Resource) error {
	if res == nil || res.ID == "" {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO resources (id, title, premium, price, currency)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE SET title=$2, premium=$3, price=$4, currency=$5;`
	_, err := execSQL(ctx, r.pool, tx, q, res.ID, res.Title, res.Premium, res.Price, res.Currency)
	return mapWriteErr(err)
}

func (r *resourceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Resource, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT id, title, premium, price, currency FROM resources WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	return scanResource(row)
}

func (r *resourceRepo) List(ctx context.Context, tx repository.Tx, premium bool) ([]*model.Resource, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT id, title, premium, price, currency FROM resources WHERE premium=$1 ORDER BY id;`, premium)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return collect(rows, func(rows pgx.Rows) (*model.Resource, error) { return scanResource(rows) })
}

func scanResource(row pgx.Row) (*model.Resource, error) {
	var res model.Resource
	if err := row.Scan(&res.ID, &res.Title, &res.Premium, &res.Price, &res.Currency); err != nil {
		return nil, mapReadErr(err)
	}
	return &res, nil
}

// -----------------------------
// Resource purchases
// -----------------------------

var _ repository.ResourcePurchaseRepository = (*purchaseRepo)(nil)

type purchaseRepo struct {
	pool *pgxpool.Pool
}

func NewPurchaseRepo(pool *pgxpool.Pool) *purchaseRepo {
	return &purchaseRepo{pool: pool}
}

const purchaseColumns = `id, user_id, resource_id, COALESCE(payment_intent_id,''), status, created_at, completed_at`

func (r *purchaseRepo) Save(ctx context.Context, tx repository.Tx, p *model.ResourcePurchase) error {
	if p == nil || p.ID == "" {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO resource_purchases (id, user_id, resource_id, payment_intent_id, status, created_at, completed_at)
VALUES ($1,$2,$3,NULLIF($4,''),$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET payment_intent_id=NULLIF($4,''), status=$5, completed_at=$7;`
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.UserID, p.ResourceID, p.PaymentIntentID, string(p.Status), p.CreatedAt, p.CompletedAt)
	return mapWriteErr(err)
}

func (r *purchaseRepo) FindByPaymentIntent(ctx context.Context, tx repository.Tx, intentID string) (*model.ResourcePurchase, error) {
	return r.queryOne(ctx, tx, `SELECT `+purchaseColumns+` FROM resource_purchases WHERE payment_intent_id=$1 LIMIT 1;`, intentID)
}

func (r *purchaseRepo) FindPendingByUserAndResource(ctx context.Context, tx repository.Tx, userID, resourceID string) (*model.ResourcePurchase, error) {
	return r.queryOne(ctx, tx, `SELECT `+purchaseColumns+`
  FROM resource_purchases
 WHERE user_id=$1 AND resource_id=$2 AND status='PENDING'
 ORDER BY created_at DESC LIMIT 1;`, userID, resourceID)
}

func (r *purchaseRepo) CompletedResourceIDs(ctx context.Context, tx repository.Tx, userID string) ([]string, error) {
	rows, err := queryRows(ctx, r.pool, tx, `
SELECT DISTINCT resource_id FROM resource_purchases WHERE user_id=$1 AND status='COMPLETED' ORDER BY resource_id;`, userID)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return collect(rows, func(rows pgx.Rows) (string, error) {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", domain.ErrReadDatabaseRow
		}
		return id, nil
	})
}

func (r *purchaseRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...any) (*model.ResourcePurchase, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}
	var p model.ResourcePurchase
	var status string
	if err := row.Scan(&p.ID, &p.UserID, &p.ResourceID, &p.PaymentIntentID, &status, &p.CreatedAt, &p.CompletedAt); err != nil {
		return nil, mapReadErr(err)
	}
	p.Status = model.PurchaseStatus(status)
	return &p, nil
}

// -----------------------------
// Signals
// -----------------------------

var _ repository.SignalRepository = (*signalRepo)(nil)

type signalRepo struct {
	pool *pgxpool.Pool
}

func NewSignalRepo(pool *pgxpool.Pool) *signalRepo {
	return &signalRepo{pool: pool}
}

func (r *signalRepo) Save(ctx context.Context, tx repository.Tx, s *model.Signal) error {
	if s == nil || s.ID == "" {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO signals (id, symbol, direction, premium, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE SET symbol=$2, direction=$3, premium=$4;`
	_, err := execSQL(ctx, r.pool, tx, q, s.ID, s.Symbol, s.Direction, s.Premium, s.CreatedAt)
	return mapWriteErr(err)
}

func (r *signalRepo) List(ctx context.Context, tx repository.Tx, premium bool) ([]*model.Signal, error) {
	rows, err := queryRows(ctx, r.pool, tx, `
SELECT id, symbol, direction, premium, created_at FROM signals WHERE premium=$1 ORDER BY created_at DESC LIMIT 200;`, premium)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return collect(rows, func(rows pgx.Rows) (*model.Signal, error) {
		var s model.Signal
		if err := rows.Scan(&s.ID, &s.Symbol, &s.Direction, &s.Premium, &s.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		return &s, nil
	})
}

// -----------------------------
// Orders
// -----------------------------

var _ repository.OrderRepository = (*orderRepo)(nil)

type orderRepo struct {
	pool *pgxpool.Pool
}

func NewOrderRepo(pool *pgxpool.Pool) *orderRepo {
	return &orderRepo{pool: pool}
}

func (r *orderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	if o == nil || o.ID == "" {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO orders (id, user_id, subscription_id, payment_intent_id, kind, amount, currency, status, failure_message, created_at)
VALUES ($1,$2,$3,NULLIF($4,''),$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET status=$8, failure_message=$9;`
	_, err := execSQL(ctx, r.pool, tx, q, o.ID, o.UserID, o.SubscriptionID, o.PaymentIntentID, string(o.Kind),
		o.Amount, o.Currency, string(o.Status), o.FailureMessage, o.CreatedAt)
	return mapWriteErr(err)
}

func (r *orderRepo) ListBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string) ([]*model.Order, error) {
	rows, err := queryRows(ctx, r.pool, tx, `
SELECT id, user_id, subscription_id, COALESCE(payment_intent_id,''), kind, amount, currency, status, failure_message, created_at
  FROM orders WHERE subscription_id=$1 ORDER BY created_at ASC;`, subscriptionID)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return collect(rows, func(rows pgx.Rows) (*model.Order, error) {
		var o model.Order
		var kind, status string
		if err := rows.Scan(&o.ID, &o.UserID, &o.SubscriptionID, &o.PaymentIntentID, &kind, &o.Amount, &o.Currency, &status, &o.FailureMessage, &o.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		o.Kind = model.OrderKind(kind)
		o.Status = model.OrderStatus(status)
		return &o, nil
	})
}
