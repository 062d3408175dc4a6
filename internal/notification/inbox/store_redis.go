package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"parish/internal/notification"
	id "parish/pkg/domain"
	"parish/pkg/platform/sentinel"
	"parish/pkg/requestcontext"
)

const keyPrefix = "parish:inbox:"

// RedisStore keeps each inbox in a capped redis list, newest first.
type RedisStore struct {
	client redis.UniversalClient
	cap    int64
}

func NewRedisStore(client redis.UniversalClient, capacity int64) *RedisStore {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &RedisStore{client: client, cap: capacity}
}

func inboxKey(userID id.UserID) string {
	return keyPrefix + userID.String()
}

func (s *RedisStore) Push(ctx context.Context, item *notification.InboxItem) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal inbox item: %w", err)
	}
	key := inboxKey(item.UserID)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, s.cap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push inbox item: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, userID id.UserID, limit int) ([]*notification.InboxItem, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	raw, err := s.client.LRange(ctx, inboxKey(userID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	out := make([]*notification.InboxItem, 0, len(raw))
	for _, r := range raw {
		var item notification.InboxItem
		if err := json.Unmarshal([]byte(r), &item); err != nil {
			return nil, fmt.Errorf("decode inbox item: %w", err)
		}
		out = append(out, &item)
	}
	return out, nil
}

// MarkRead rewrites the matching list element in place. The key is watched
// so a concurrent push or trim retries the read-modify-write.
func (s *RedisStore) MarkRead(ctx context.Context, userID id.UserID, itemID string) (*notification.InboxItem, error) {
	key := inboxKey(userID)
	var marked *notification.InboxItem
	txf := func(tx *redis.Tx) error {
		raw, err := tx.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			return err
		}
		for i, r := range raw {
			var item notification.InboxItem
			if err := json.Unmarshal([]byte(r), &item); err != nil {
				return fmt.Errorf("decode inbox item: %w", err)
			}
			if item.ID != itemID {
				continue
			}
			if item.ReadAt != nil {
				marked = &item
				return nil
			}
			now := requestcontext.Now(ctx)
			item.ReadAt = &now
			payload, err := json.Marshal(&item)
			if err != nil {
				return fmt.Errorf("marshal inbox item: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.LSet(ctx, key, int64(i), payload)
				return nil
			})
			if err != nil {
				return err
			}
			marked = &item
			return nil
		}
		return sentinel.ErrNotFound
	}

	for attempt := 0; attempt < 3; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return marked, nil
	}
	return nil, fmt.Errorf("mark inbox item read: %w", redis.TxFailedErr)
}
