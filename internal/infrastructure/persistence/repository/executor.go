package repository

import (
	"context"
	"database/sql"

	"github.com/worktally/attendance-backend/internal/infrastructure/persistence/sqlite"
)

// executor interface covers both *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// pickExecutor joins the caller's transaction when one is threaded through
// the context, otherwise runs against the bare connection pool
func pickExecutor(ctx context.Context, db *sql.DB) executor {
	if tx, ok := sqlite.TxFromContext(ctx); ok {
		return tx
	}
	return db
}
