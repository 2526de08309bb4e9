package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager serializes multi-record mutations. The postgres
// implementation wraps a pgx transaction; the memory implementation takes
// a store-wide write lock. Folder rename/delete cascades that rewrite many
// document locations always run under ExecTx so the read-then-write cycle
// cannot interleave with concurrent mutations.
type TransactionManager interface {
	// ExecTx executes a function within a transaction
	ExecTx(ctx context.Context, fn TxFn) error
}
