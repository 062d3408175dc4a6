package main

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	familyservice "parish/internal/family/service"
	familystore "parish/internal/family/store/family"
	invitationstore "parish/internal/family/store/invitation"
	memberstore "parish/internal/family/store/member"
	"parish/internal/platform/postgres"
	userstore "parish/internal/users/store/user"
)

// familyPostgresTx binds every membership store to one transaction so a
// failed step rolls back the user linkage and relationship rows together.
type familyPostgresTx struct {
	db      *sqlx.DB
	timeout time.Duration
}

func newFamilyPostgresTx(db *sqlx.DB, timeout time.Duration) *familyPostgresTx {
	return &familyPostgresTx{db: db, timeout: timeout}
}

func (t *familyPostgresTx) RunInTx(ctx context.Context, lockKeys []string, fn func(ctx context.Context, stores familyservice.Stores) error) error {
	return postgres.RunInTx(ctx, t.db, t.timeout, func(ctx context.Context, sqlTx *sqlx.Tx) error {
		if err := postgres.AdvisoryXactLocks(ctx, sqlTx, lockKeys); err != nil {
			return err
		}
		return fn(ctx, familyservice.Stores{
			Families:    familystore.NewPostgresTx(sqlTx),
			Invitations: invitationstore.NewPostgresTx(sqlTx),
			Members:     memberstore.NewPostgresTx(sqlTx),
			Users:       userstore.NewPostgresTx(sqlTx),
		})
	})
}
