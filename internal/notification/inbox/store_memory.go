package inbox

import (
	"context"
	"sync"

	"parish/internal/notification"
	id "parish/pkg/domain"
	"parish/pkg/platform/sentinel"
	"parish/pkg/requestcontext"
)

// InMemoryStore keeps capped per-user inboxes in process.
type InMemoryStore struct {
	mu    sync.RWMutex
	cap   int
	items map[id.UserID][]*notification.InboxItem
}

func NewInMemoryStore(capacity int) *InMemoryStore {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &InMemoryStore{cap: capacity, items: make(map[id.UserID][]*notification.InboxItem)}
}

func clone(item *notification.InboxItem) *notification.InboxItem {
	c := *item
	if item.ReadAt != nil {
		t := *item.ReadAt
		c.ReadAt = &t
	}
	return &c
}

func (s *InMemoryStore) Push(_ context.Context, item *notification.InboxItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append([]*notification.InboxItem{clone(item)}, s.items[item.UserID]...)
	if len(list) > s.cap {
		list = list[:s.cap]
	}
	s.items[item.UserID] = list
	return nil
}

func (s *InMemoryStore) List(_ context.Context, userID id.UserID, limit int) ([]*notification.InboxItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.items[userID]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	out := make([]*notification.InboxItem, 0, len(list))
	for _, item := range list {
		out = append(out, clone(item))
	}
	return out, nil
}

func (s *InMemoryStore) MarkRead(ctx context.Context, userID id.UserID, itemID string) (*notification.InboxItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items[userID] {
		if item.ID != itemID {
			continue
		}
		if item.ReadAt == nil {
			now := requestcontext.Now(ctx)
			item.ReadAt = &now
		}
		return clone(item), nil
	}
	return nil, sentinel.ErrNotFound
}
