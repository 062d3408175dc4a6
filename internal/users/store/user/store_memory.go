package user

import (
	"context"
	"sort"
	"strings"
	"sync"

	"parish/internal/users/models"
	id "parish/pkg/domain"
	"parish/pkg/platform/sentinel"
)

// InMemoryStore keeps users in process memory. Returned users are copies.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[id.UserID]*models.User
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{users: make(map[id.UserID]*models.User)}
}

func clone(u *models.User) *models.User {
	c := *u
	if u.FamilyID != nil {
		fid := *u.FamilyID
		c.FamilyID = &fid
	}
	return &c
}

func (s *InMemoryStore) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return sentinel.ErrConflict
	}
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return sentinel.ErrConflict
		}
	}
	s.users[u.ID] = clone(u)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(u), nil
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return clone(u), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) Update(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.users[u.ID] = clone(u)
	return nil
}

// ListByFamily returns the family's users, head first then by name.
func (s *InMemoryStore) ListByFamily(_ context.Context, familyID id.FamilyID) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.User
	for _, u := range s.users {
		if u.InFamily(familyID) {
			out = append(out, clone(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsFamilyHead != out[j].IsFamilyHead {
			return out[i].IsFamilyHead
		}
		return out[i].FullName() < out[j].FullName()
	})
	return out, nil
}

// ListPriests returns active priests ordered by name.
func (s *InMemoryStore) ListPriests(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.User
	for _, u := range s.users {
		if u.IsPriest && u.IsActive() {
			out = append(out, clone(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName() < out[j].FullName() })
	return out, nil
}

func (s *InMemoryStore) CountByFamily(_ context.Context, familyID id.FamilyID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, u := range s.users {
		if u.InFamily(familyID) {
			n++
		}
	}
	return n, nil
}
