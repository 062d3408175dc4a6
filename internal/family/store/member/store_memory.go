package member

import (
	"context"
	"sort"
	"sync"

	"parish/internal/family/models"
	id "parish/pkg/domain"
	"parish/pkg/platform/sentinel"
)

type pairKey struct {
	user, related id.UserID
}

// InMemoryStore keeps relationship rows in process memory. A directed pair
// of users appears at most once.
type InMemoryStore struct {
	mu      sync.RWMutex
	members map[id.MemberID]*models.Member
	pairs   map[pairKey]id.MemberID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		members: make(map[id.MemberID]*models.Member),
		pairs:   make(map[pairKey]id.MemberID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, m *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{m.UserID, m.RelatedUserID}
	if _, ok := s.pairs[key]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.members[m.ID]; ok {
		return sentinel.ErrConflict
	}
	c := *m
	s.members[m.ID] = &c
	s.pairs[key] = m.ID
	return nil
}

// ListByFamily returns the family's rows ordered by creation.
func (s *InMemoryStore) ListByFamily(_ context.Context, familyID id.FamilyID) ([]*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Member
	for _, m := range s.members {
		if m.FamilyID == familyID {
			c := *m
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].UserID.String() < out[j].UserID.String()
	})
	return out, nil
}

// DeleteByUser removes every row on either side of userID and reports how
// many were removed.
func (s *InMemoryStore) DeleteByUser(_ context.Context, userID id.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for memberID, m := range s.members {
		if m.Involves(userID) {
			delete(s.members, memberID)
			delete(s.pairs, pairKey{m.UserID, m.RelatedUserID})
			n++
		}
	}
	return n, nil
}
