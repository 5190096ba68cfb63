// Package serverstore is the server's authoritative store: per-user habits,
// completions and mood entries plus the idempotency ledger of applied
// operations. It runs on SQLite or PostgreSQL.
package serverstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/julianstephens/habitsync/internal/logger"
	"github.com/julianstephens/habitsync/internal/migration"
	"github.com/julianstephens/habitsync/migrations"
)

// ErrNotFound is returned when a row does not exist for the requesting user.
var ErrNotFound = errors.New("not found")

// Store owns the server database handle. Query methods are promoted from
// the embedded Queries.
type Store struct {
	*Queries
	db     *sql.DB
	driver migration.Driver
}

// Open connects to the database and applies pending migrations. For sqlite
// the dsn is a file path.
func Open(driver, dsn string) (*Store, error) {
	var (
		db  *sql.DB
		err error
		d   = migration.Driver(driver)
	)
	switch d {
	case migration.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(dsn), 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		db, err = sql.Open("sqlite", dsn+"?_pragma=busy_timeout(5000)")
		if err == nil {
			db.SetMaxOpenConns(1)
		}
	case migration.DriverPostgres:
		db, err = sql.Open("postgres", dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q (want sqlite or postgres)", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{Queries: newQueries(db, d), db: db, driver: d}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	sub, err := fs.Sub(migrations.FS, string(s.driver))
	if err != nil {
		return fmt.Errorf("failed to access %s migrations: %w", s.driver, err)
	}
	runner := migration.NewRunner(s.db, sub, s.driver)
	if _, err := runner.ApplyMigrations(func(msg string) { logger.Info(msg, "driver", s.driver) }); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Store) Driver() migration.Driver {
	return s.driver
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn in one transaction, committing when fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(newQueries(tx, s.driver)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries builds statements with the placeholder style of the driver.
type Queries struct {
	db DBTX
	sb sq.StatementBuilderType
}

func newQueries(db DBTX, driver migration.Driver) *Queries {
	var format sq.PlaceholderFormat = sq.Question
	if driver == migration.DriverPostgres {
		format = sq.Dollar
	}
	return &Queries{db: db, sb: sq.StatementBuilder.PlaceholderFormat(format)}
}

type sqlizer interface {
	ToSql() (string, []interface{}, error)
}

func (q *Queries) exec(ctx context.Context, b sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return q.db.ExecContext(ctx, query, args...)
}

func (q *Queries) query(ctx context.Context, b sqlizer) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return q.db.QueryContext(ctx, query, args...)
}

func (q *Queries) queryRow(ctx context.Context, b sqlizer) (*sql.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return q.db.QueryRowContext(ctx, query, args...), nil
}
