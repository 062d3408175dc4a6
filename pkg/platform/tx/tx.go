// Package tx holds the pieces shared by transaction runners: timeout bounding
// and the sharded lock used by in-memory stores to serialize check-then-write
// sequences per key.
package tx

import (
	"context"
	"slices"
	"sync"
	"time"

	dErrors "parish/pkg/domain-errors"
)

// DefaultTimeout bounds a transaction when the caller's context has no deadline.
const DefaultTimeout = 5 * time.Second

const numShards = 128

// Bound applies timeout to ctx unless it already carries a deadline. It
// returns a timeout-coded error when ctx is already done.
func Bound(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc, error) {
	if err := ctx.Err(); err != nil {
		return ctx, func() {}, dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, cancel, nil
}

// ShardedLock serializes work per key across a fixed set of mutexes.
type ShardedLock struct {
	shards  [numShards]sync.Mutex
	timeout time.Duration
}

// NewShardedLock returns a lock whose Run calls are bounded by timeout.
func NewShardedLock(timeout time.Duration) *ShardedLock {
	return &ShardedLock{timeout: timeout}
}

// Run executes fn while holding the shards for keys. Shards are taken in
// ascending order so overlapping key sets cannot deadlock.
func (l *ShardedLock) Run(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	ctx, cancel, err := Bound(ctx, l.timeout)
	if err != nil {
		return err
	}
	defer cancel()

	for _, idx := range l.shardsFor(keys) {
		l.shards[idx].Lock()
		defer l.shards[idx].Unlock()
	}

	// the wait for the shards may have outlived the deadline
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(ctx)
}

func (l *ShardedLock) shardsFor(keys []string) []uint32 {
	seen := make(map[uint32]struct{}, len(keys))
	out := make([]uint32, 0, len(keys))
	for _, k := range keys {
		idx := hash(k) % numShards
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, idx)
	}
	slices.Sort(out)
	return out
}

// hash is FNV-1a.
func hash(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
