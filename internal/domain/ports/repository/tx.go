package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle. Its concrete type is infra-defined
// (pgx.Tx for Postgres). Repositories accept nil for the non-transactional
// path and fall back to their own pool.
type Tx interface{}

// TransactionManager runs fn inside a database transaction, passing the
// handle via tx. If fn returns an error the transaction is rolled back,
// otherwise committed. Keep this interface small and stable.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
