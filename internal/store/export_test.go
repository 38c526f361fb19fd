package store

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// DB exposes the internal *sql.DB for test helpers in store_test.
// This file only compiles during `go test`.
func (s *Store) DB() *sql.DB {
	return s.db
}

// FailExecAfter makes the nth exec whose SQL contains fragment fail with err.
// Earlier matching statements run normally.
func (s *Store) FailExecAfter(fragment string, n int, err error) {
	seen := 0
	s.hooks.exec = func(ctx context.Context, db execer, query string, args ...any) (sql.Result, error) {
		if strings.Contains(query, fragment) {
			seen++
			if seen >= n {
				return nil, err
			}
		}
		return db.ExecContext(ctx, query, args...)
	}
}

// FailCommit makes every commit fail with err after rolling back.
func (s *Store) FailCommit(err error) {
	s.hooks.commit = func(tx *sql.Tx) error {
		_ = tx.Rollback()
		return err
	}
}

// ResetHooks restores the default database calls.
func (s *Store) ResetHooks() {
	s.hooks = storeHooks{}
}

// SetNow overrides the clock used for import run timestamps.
func SetNow(fn func() time.Time) (restore func()) {
	orig := timeNow
	timeNow = fn
	return func() { timeNow = orig }
}
