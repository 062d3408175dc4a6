package entry

import (
	"context"
	"sort"
	"sync"

	"parish/internal/duty/models"
	id "parish/pkg/domain"
	"parish/pkg/platform/sentinel"
)

// InMemoryStore keeps duty entries in process memory. It enforces the same
// one-scheduled-entry-per-slot rule as the postgres partial unique index.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[id.DutyEntryID]*models.DutyEntry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[id.DutyEntryID]*models.DutyEntry)}
}

func clone(e *models.DutyEntry) *models.DutyEntry {
	c := *e
	return &c
}

func (s *InMemoryStore) Create(_ context.Context, e *models.DutyEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.ID]; ok {
		return sentinel.ErrConflict
	}
	if s.slotTaken(e) {
		return sentinel.ErrConflict
	}
	s.entries[e.ID] = clone(e)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, entryID id.DutyEntryID) (*models.DutyEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[entryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(e), nil
}

func (s *InMemoryStore) Update(_ context.Context, e *models.DutyEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if s.slotTaken(e) {
		return sentinel.ErrConflict
	}
	s.entries[e.ID] = clone(e)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, entryID id.DutyEntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entryID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.entries, entryID)
	return nil
}

// ListScheduled returns the priest's scheduled entries on date ordered by time.
func (s *InMemoryStore) ListScheduled(_ context.Context, priestID id.UserID, date models.Date) ([]*models.DutyEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.DutyEntry
	for _, e := range s.entries {
		if e.PriestID == priestID && e.Date.Equal(date) && e.IsScheduled() {
			out = append(out, clone(e))
		}
	}
	sortByCalendar(out)
	return out, nil
}

// ListForPriest returns the priest's entries inside filter ordered by date
// then time.
func (s *InMemoryStore) ListForPriest(_ context.Context, priestID id.UserID, filter models.ListFilter) ([]*models.DutyEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.DutyEntry
	for _, e := range s.entries {
		if e.PriestID != priestID {
			continue
		}
		if !filter.From.IsZero() && e.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && e.Date.After(filter.To) {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		out = append(out, clone(e))
	}
	sortByCalendar(out)
	return out, nil
}

// slotTaken reports whether another scheduled entry holds e's slot. Callers
// hold the write lock.
func (s *InMemoryStore) slotTaken(e *models.DutyEntry) bool {
	if !e.IsScheduled() {
		return false
	}
	for _, other := range s.entries {
		if other.ID == e.ID || !other.IsScheduled() {
			continue
		}
		if other.PriestID == e.PriestID && other.Date.Equal(e.Date) && other.Time == e.Time {
			return true
		}
	}
	return false
}

func sortByCalendar(entries []*models.DutyEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].Time < entries[j].Time
	})
}
