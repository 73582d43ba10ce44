package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trading-academy/internal/domain"
	"trading-academy/internal/domain/model"
	"trading-academy/internal/domain/ports/repository"
)

var _ repository.PaymentIntentRepository = (*paymentIntentRepo)(nil)

type paymentIntentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentIntentRepo(pool *pgxpool.Pool) *paymentIntentRepo {
	return &paymentIntentRepo{pool: pool}
}

// Save upserts the whole intent. Nested objects are stored as JSONB.
func (r *paymentIntentRepo) Save(ctx context.Context, tx repository.Tx, pi *model.PaymentIntent) error {
	if pi == nil || pi.ID == "" {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO payment_intents (
  id, amount, currency, status, metadata, payment_method, last_payment_error, next_action, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  amount=$2, currency=$3, status=$4, metadata=$5, payment_method=$6,
  last_payment_error=$7, next_action=$8, updated_at=$10;`

	md, err := json.Marshal(pi.Metadata)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	pm, err := jsonOrNull(pi.PaymentMethod)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	perr, err := jsonOrNull(pi.LastPaymentError)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	next, err := jsonOrNull(pi.NextAction)
	if err != nil {
		return domain.ErrInvalidArgument
	}

	_, err = execSQL(ctx, r.pool, tx, q,
		pi.ID, pi.Amount, pi.Currency, string(pi.Status), md, pm, perr, next, pi.CreatedAt, pi.UpdatedAt)
	return mapWriteErr(err)
}

func (r *paymentIntentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentIntent, error) {
	const q = `
SELECT id, amount, currency, status, metadata, payment_method, last_payment_error, next_action, created_at, updated_at
  FROM payment_intents
 WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPaymentIntent(row)
}

func scanPaymentIntent(row pgx.Row) (*model.PaymentIntent, error) {
	var (
		pi                 model.PaymentIntent
		status             string
		md, pm, perr, next []byte
	)
	if err := row.Scan(&pi.ID, &pi.Amount, &pi.Currency, &status, &md, &pm, &perr, &next, &pi.CreatedAt, &pi.UpdatedAt); err != nil {
		return nil, mapReadErr(err)
	}
	pi.Status = model.PaymentIntentStatus(status)
	pi.Metadata = map[string]string{}
	if len(md) > 0 {
		if err := json.Unmarshal(md, &pi.Metadata); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	if len(pm) > 0 {
		pi.PaymentMethod = &model.PaymentMethod{}
		if err := json.Unmarshal(pm, pi.PaymentMethod); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	if len(perr) > 0 {
		pi.LastPaymentError = &model.PaymentError{}
		if err := json.Unmarshal(perr, pi.LastPaymentError); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	if len(next) > 0 {
		pi.NextAction = &model.NextAction{}
		if err := json.Unmarshal(next, pi.NextAction); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return &pi, nil
}

// jsonOrNull encodes v, mapping a nil pointer to SQL NULL.
func jsonOrNull[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
