package store

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql the store implementations query
// through. Both *sql.DB and *sql.Tx satisfy it, so a store constructed on a
// plain connection can be rebound onto a transaction with WithTx and reuse
// the same queries unchanged.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
