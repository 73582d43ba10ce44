package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside a storage transaction and hands the
// transaction handle to fn as tx.
//
// USAGE
// tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
// // call repositories with the same ctx and tx
// sub, err := subs.FindActiveByUser(ctx, tx, userID)
// ...
// return err
// })
//
// The concrete type of tx is infra-defined (pgx.Tx for Postgres, a marker for
// the in-memory store). Repositories MUST accept a nil tx (non-transactional path).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
