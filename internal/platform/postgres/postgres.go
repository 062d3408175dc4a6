// Package postgres opens the relational store, applies the embedded schema
// and provides the transaction and error helpers postgres stores share.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"parish/pkg/platform/sentinel"
	"parish/pkg/platform/tx"
)

// Supported database/sql driver names.
const (
	DriverPQ  = "postgres"
	DriverPGX = "pgx"
)

const uniqueViolation = "23505"

const migrationDir = "migrations"

//go:embed migrations/*.sql
var migrationFS embed.FS

// Open connects with driver and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	if driver == "" {
		driver = DriverPQ
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// Migrations lists the embedded migration files in apply order.
func Migrations() ([]string, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()
	if err := useEmbeddedMigrations(nil); err != nil {
		return nil, err
	}
	migrations, err := goose.CollectMigrations(migrationDir, 0, goose.MaxVersion)
	if err != nil {
		return nil, fmt.Errorf("collect migrations: %w", err)
	}
	names := make([]string, 0, len(migrations))
	for _, m := range migrations {
		names = append(names, path.Base(m.Source))
	}
	return names, nil
}

// Migrate applies the embedded migrations goose has not recorded yet. Progress
// is logged through logger when it is non-nil.
func Migrate(ctx context.Context, db *sqlx.DB, logger *slog.Logger) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()
	if err := useEmbeddedMigrations(logger); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db.DB, migrationDir); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// MigrationStatus logs the applied state of every embedded migration.
func MigrationStatus(ctx context.Context, db *sqlx.DB, logger *slog.Logger) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()
	if err := useEmbeddedMigrations(logger); err != nil {
		return err
	}
	if err := goose.StatusContext(ctx, db.DB, migrationDir); err != nil {
		return fmt.Errorf("migration status: %w", err)
	}
	return nil
}

// goose keeps its filesystem, dialect and logger in package state.
var gooseMu sync.Mutex

func useEmbeddedMigrations(logger *slog.Logger) error {
	goose.SetBaseFS(migrationFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if logger == nil {
		goose.SetLogger(goose.NopLogger())
	} else {
		goose.SetLogger(gooseLogger{logger: logger})
	}
	return nil
}

// gooseLogger adapts slog to goose.Logger.
type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrations")
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrations")
	os.Exit(1)
}

// RunInTx runs fn inside a transaction bounded by timeout. fn receives the
// bounded context and must use it for every statement. The transaction commits
// when fn returns nil and rolls back otherwise.
func RunInTx(ctx context.Context, db *sqlx.DB, timeout time.Duration, fn func(ctx context.Context, sqlTx *sqlx.Tx) error) error {
	ctx, cancel, err := tx.Bound(ctx, timeout)
	if err != nil {
		return err
	}
	defer cancel()

	sqlTx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(ctx, sqlTx); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// AdvisoryXactLock takes a transaction-scoped advisory lock on key. Holders of
// the same key serialize until their transactions end.
func AdvisoryXactLock(ctx context.Context, sqlTx *sqlx.Tx, key string) error {
	_, err := sqlTx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key)
	if err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	return nil
}

// AdvisoryXactLocks takes the advisory locks for keys in sorted order, once
// each, so transactions locking overlapping key sets cannot deadlock.
func AdvisoryXactLocks(ctx context.Context, sqlTx *sqlx.Tx, keys []string) error {
	sorted := slices.Compact(slices.Sorted(slices.Values(keys)))
	for _, key := range sorted {
		if err := AdvisoryXactLock(ctx, sqlTx, key); err != nil {
			return err
		}
	}
	return nil
}

// IsUniqueViolation reports whether err is a unique constraint violation from
// either supported driver.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}

// RequireRow maps a write that touched no rows to sentinel.ErrNotFound.
func RequireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// IsNoRows reports whether err is sql.ErrNoRows.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
