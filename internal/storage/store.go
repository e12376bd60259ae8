package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"reddot-watch/newsdesk/internal/database"
	"reddot-watch/newsdesk/internal/errs"
)

// ErrSlugTaken is returned by InsertDraft when the slug already exists.
var ErrSlugTaken = errors.New("draft slug already exists")

// Store implements the pipeline repositories using sqlx.
type Store struct {
	db *database.DB
	queries
}

// Tx exposes the same repository methods bound to one transaction.
type Tx struct {
	queries
}

type queries struct {
	ext sqlx.ExtContext
}

// New creates a new store instance.
func New(db *database.DB) *Store {
	return &Store{db: db, queries: queries{ext: db.DB}}
}

// InTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&Tx{queries{ext: sqlTx}}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func notFound(entity string, id int64) error {
	return errs.Wrap(errs.ErrNotFound, entity, fmt.Sprintf("id %d", id), nil)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func (q queries) getContext(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.GetContext(ctx, q.ext, dest, query, args...)
}

func (q queries) selectContext(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, q.ext, dest, query, args...)
}
