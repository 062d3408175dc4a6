package service

import (
	"context"
	"time"

	id "parish/pkg/domain"
	"parish/pkg/platform/tx"
)

// Stores bundles the stores a membership transaction touches.
type Stores struct {
	Families    FamilyStore
	Invitations InvitationStore
	Members     MemberStore
	Users       UserStore
}

// StoresTx provides a transactional boundary for membership mutations.
// Holders of the same lock keys serialize.
type StoresTx interface {
	RunInTx(ctx context.Context, lockKeys []string, fn func(ctx context.Context, stores Stores) error) error
}

// memoryStoresTx serializes with a sharded mutex. Writes are not rolled back
// on error, so fn must validate before it writes.
type memoryStoresTx struct {
	lock   *tx.ShardedLock
	stores Stores
}

// NewMemoryTx returns the in-process runner used with the in-memory stores.
func NewMemoryTx(stores Stores, timeout time.Duration) StoresTx {
	return &memoryStoresTx{lock: tx.NewShardedLock(timeout), stores: stores}
}

func (t *memoryStoresTx) RunInTx(ctx context.Context, lockKeys []string, fn func(ctx context.Context, stores Stores) error) error {
	return t.lock.Run(ctx, lockKeys, func(ctx context.Context) error {
		return fn(ctx, t.stores)
	})
}

// UserLockKey guards a user's family linkage.
func UserLockKey(userID id.UserID) string {
	return "family:user:" + userID.String()
}

// FamilyLockKey guards a family's membership.
func FamilyLockKey(familyID id.FamilyID) string {
	return "family:" + familyID.String()
}

// InvitationLockKey guards one invitation's state.
func InvitationLockKey(invitationID id.InvitationID) string {
	return "family:invitation:" + invitationID.String()
}
