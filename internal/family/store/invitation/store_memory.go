package invitation

import (
	"context"
	"sort"
	"sync"

	"parish/internal/family/models"
	id "parish/pkg/domain"
	"parish/pkg/platform/sentinel"
)

// InMemoryStore keeps invitations in process memory. It allows one pending
// invitation per family and invitee, like the postgres partial index.
type InMemoryStore struct {
	mu          sync.RWMutex
	invitations map[id.InvitationID]*models.Invitation
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{invitations: make(map[id.InvitationID]*models.Invitation)}
}

func clone(inv *models.Invitation) *models.Invitation {
	c := *inv
	if inv.RespondedAt != nil {
		at := *inv.RespondedAt
		c.RespondedAt = &at
	}
	return &c
}

func (s *InMemoryStore) Create(_ context.Context, inv *models.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invitations[inv.ID]; ok {
		return sentinel.ErrConflict
	}
	if inv.IsPending() && s.pendingLocked(inv.FamilyID, inv.InviteeID) != nil {
		return sentinel.ErrConflict
	}
	s.invitations[inv.ID] = clone(inv)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, invitationID id.InvitationID) (*models.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invitations[invitationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(inv), nil
}

// FindByIDForUpdate is FindByID; callers serialize through the transaction
// runner's lock.
func (s *InMemoryStore) FindByIDForUpdate(ctx context.Context, invitationID id.InvitationID) (*models.Invitation, error) {
	return s.FindByID(ctx, invitationID)
}

func (s *InMemoryStore) Update(_ context.Context, inv *models.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invitations[inv.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.invitations[inv.ID] = clone(inv)
	return nil
}

// FindPending returns the pending invitation for (familyID, inviteeID).
func (s *InMemoryStore) FindPending(_ context.Context, familyID id.FamilyID, inviteeID id.UserID) (*models.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv := s.pendingLocked(familyID, inviteeID)
	if inv == nil {
		return nil, sentinel.ErrNotFound
	}
	return clone(inv), nil
}

// ListPendingForInvitee returns pending invitations addressed to inviteeID,
// newest first.
func (s *InMemoryStore) ListPendingForInvitee(_ context.Context, inviteeID id.UserID) ([]*models.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Invitation
	for _, inv := range s.invitations {
		if inv.InviteeID == inviteeID && inv.IsPending() {
			out = append(out, clone(inv))
		}
	}
	newestFirst(out)
	return out, nil
}

// ListByFamily returns every invitation the family has sent, newest first.
func (s *InMemoryStore) ListByFamily(_ context.Context, familyID id.FamilyID) ([]*models.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Invitation
	for _, inv := range s.invitations {
		if inv.FamilyID == familyID {
			out = append(out, clone(inv))
		}
	}
	newestFirst(out)
	return out, nil
}

func (s *InMemoryStore) pendingLocked(familyID id.FamilyID, inviteeID id.UserID) *models.Invitation {
	for _, inv := range s.invitations {
		if inv.FamilyID == familyID && inv.InviteeID == inviteeID && inv.IsPending() {
			return inv
		}
	}
	return nil
}

func newestFirst(invs []*models.Invitation) {
	sort.Slice(invs, func(i, j int) bool { return invs[i].CreatedAt.After(invs[j].CreatedAt) })
}
