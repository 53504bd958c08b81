// Package storage opens the device's embedded SQLite store, applies the goose
// migrations and hands out repositories bound either to the database or to a
// transaction.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/finn/internal/dbx"
	"github.com/dmitrijs2005/finn/internal/device/repositories/actions"
	"github.com/dmitrijs2005/finn/internal/device/repositories/metadata"
	"github.com/dmitrijs2005/finn/internal/device/repositories/offline"
	"github.com/dmitrijs2005/finn/internal/device/storage/migrations"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Repositories groups the repositories over one handle.
type Repositories struct {
	Metadata metadata.Repository
	Actions  actions.Repository
	Offline  offline.Repository
}

func newRepositories(db dbx.DBTX) *Repositories {
	return &Repositories{
		Metadata: metadata.NewSQLiteRepository(db),
		Actions:  actions.NewSQLiteRepository(db),
		Offline:  offline.NewSQLiteRepository(db),
	}
}

// Store owns the database handle. It is safe for concurrent use; SQLite
// access is serialized through a single connection.
type Store struct {
	*Repositories
	db *sql.DB
}

// RunMigrations brings the schema up to date.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Open opens (creating when needed) the store at dsn and migrates it.
// Use ":memory:" for a throwaway store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{Repositories: newRepositories(db), db: db}, nil
}

// WithTx runs fn with repositories bound to one transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, r *Repositories) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, newRepositories(tx))
	})
}

// Wipe removes every persisted value: identity, keys, throttle state and the
// offline queue.
func (s *Store) Wipe(ctx context.Context) error {
	return s.WithTx(ctx, func(ctx context.Context, r *Repositories) error {
		if err := r.Offline.Clear(ctx); err != nil {
			return err
		}
		if err := r.Actions.Clear(ctx); err != nil {
			return err
		}
		return r.Metadata.Clear(ctx)
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
