package main

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	dutyservice "parish/internal/duty/service"
	entrystore "parish/internal/duty/store/entry"
	"parish/internal/platform/postgres"
)

// dutyPostgresTx runs duty mutations in a database transaction holding an
// advisory lock per priest, so concurrent check-then-insert sequences for one
// priest serialize across server instances.
type dutyPostgresTx struct {
	db      *sqlx.DB
	timeout time.Duration
}

func newDutyPostgresTx(db *sqlx.DB, timeout time.Duration) *dutyPostgresTx {
	return &dutyPostgresTx{db: db, timeout: timeout}
}

func (t *dutyPostgresTx) RunInTx(ctx context.Context, lockKeys []string, fn func(ctx context.Context, store dutyservice.Store) error) error {
	return postgres.RunInTx(ctx, t.db, t.timeout, func(ctx context.Context, sqlTx *sqlx.Tx) error {
		if err := postgres.AdvisoryXactLocks(ctx, sqlTx, lockKeys); err != nil {
			return err
		}
		return fn(ctx, entrystore.NewPostgresTx(sqlTx))
	})
}
