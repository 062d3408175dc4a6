package family

import (
	"context"
	"sync"

	"parish/internal/family/models"
	id "parish/pkg/domain"
	"parish/pkg/platform/sentinel"
)

// InMemoryStore keeps families in process memory.
type InMemoryStore struct {
	mu       sync.RWMutex
	families map[id.FamilyID]*models.Family
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{families: make(map[id.FamilyID]*models.Family)}
}

func (s *InMemoryStore) Create(_ context.Context, f *models.Family) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.families[f.ID]; ok {
		return sentinel.ErrConflict
	}
	c := *f
	s.families[f.ID] = &c
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, familyID id.FamilyID) (*models.Family, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.families[familyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *f
	return &c, nil
}

func (s *InMemoryStore) Update(_ context.Context, f *models.Family) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.families[f.ID]; !ok {
		return sentinel.ErrNotFound
	}
	c := *f
	s.families[f.ID] = &c
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, familyID id.FamilyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.families[familyID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.families, familyID)
	return nil
}
