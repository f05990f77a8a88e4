package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DBTX is satisfied by *sql.DB and *sql.Tx so every store can run inside or
// outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Set bundles the per-table stores over one DBTX.
type Set struct {
	Households *HouseholdStore
	Catalog    *CatalogStore
	Chores     *DailyChoreStore
	Points     *PointsStore
	Profiles   *ProfileStore
}

func NewSet(q DBTX) *Set {
	return &Set{
		Households: NewHouseholdStore(q),
		Catalog:    NewCatalogStore(q),
		Chores:     NewDailyChoreStore(q),
		Points:     NewPointsStore(q),
		Profiles:   NewProfileStore(q),
	}
}

// DB is the root store: a Set bound to the pool plus transaction support.
type DB struct {
	*Set
	db *sql.DB
}

func New(db *sql.DB) *DB {
	return &DB{Set: NewSet(db), db: db}
}

// InTx runs fn with a Set bound to a single transaction. The transaction is
// committed when fn returns nil and rolled back otherwise.
func (d *DB) InTx(ctx context.Context, fn func(tx *Set) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(NewSet(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY
// constraint failure.
func IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

type scanner interface{ Scan(...any) error }

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func now() time.Time {
	return time.Now().UTC()
}
