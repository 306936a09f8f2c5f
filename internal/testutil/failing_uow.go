package testutil

import (
	"context"
	"database/sql"
	"strings"
	"sync/atomic"

	"github.com/alexanderramin/sitepilot/internal/db"
)

// FaultyUoW runs real SQLite transactions but fails the FailOn-th write
// (1-based) with Err, so callers can assert nothing partial was committed.
// When Match is set only statements containing it are counted. Reads always
// pass through.
type FaultyUoW struct {
	DB     *sql.DB
	FailOn int32
	Match  string
	Err    error

	writes atomic.Int32
}

// Writes reports how many counted statements have been attempted.
func (u *FaultyUoW) Writes() int { return int(u.writes.Load()) }

func (u *FaultyUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	return db.NewSQLiteUnitOfWork(u.DB).WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return fn(ctx, &faultyTx{DBTX: tx, uow: u})
	})
}

type faultyTx struct {
	db.DBTX
	uow *FaultyUoW
}

func (f *faultyTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if f.uow.Match == "" || strings.Contains(query, f.uow.Match) {
		if f.uow.writes.Add(1) == f.uow.FailOn {
			return nil, f.uow.Err
		}
	}
	return f.DBTX.ExecContext(ctx, query, args...)
}
