package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle passed through repository calls. The
// concrete type is infra-defined (pgx.Tx for Postgres); repositories accept
// nil for the non-transactional path.
type Tx interface{}

// NoTX marks a non-transactional repository call.
var NoTX interface{}

// TransactionManager executes a function within a database transaction,
// handing the tx handle to the callback. Keeps transaction types out of the
// use-case interfaces while still letting repositories run
// SELECT ... FOR UPDATE under the caller's transaction.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
