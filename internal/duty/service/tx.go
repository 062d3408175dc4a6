package service

import (
	"context"
	"time"

	id "parish/pkg/domain"
	"parish/pkg/platform/tx"
)

// EntryStoreTx provides a transactional boundary for duty mutations. Callers
// name the priests whose calendars they read and write; implementations
// serialize holders of the same keys.
type EntryStoreTx interface {
	RunInTx(ctx context.Context, lockKeys []string, fn func(ctx context.Context, store Store) error) error
}

// memoryEntryTx serializes per priest with a sharded mutex. Writes are not
// rolled back on error, so fn must validate before it writes.
type memoryEntryTx struct {
	lock  *tx.ShardedLock
	store Store
}

// NewMemoryTx returns the in-process runner used with the in-memory store.
func NewMemoryTx(store Store, timeout time.Duration) EntryStoreTx {
	return &memoryEntryTx{lock: tx.NewShardedLock(timeout), store: store}
}

func (t *memoryEntryTx) RunInTx(ctx context.Context, lockKeys []string, fn func(ctx context.Context, store Store) error) error {
	return t.lock.Run(ctx, lockKeys, func(ctx context.Context) error {
		return fn(ctx, t.store)
	})
}

// PriestLockKey is the lock key guarding one priest's calendar.
func PriestLockKey(priestID id.UserID) string {
	return "duty:priest:" + priestID.String()
}
