package inbox

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"parish/internal/notification"
	id "parish/pkg/domain"
	"parish/pkg/platform/sentinel"
	"parish/pkg/requestcontext"
)

// StoreSuite runs the same behaviour against every Store implementation.
type StoreSuite struct {
	suite.Suite
	newStore func(capacity int) Store
	ctx      context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(capacity int) Store { return NewInMemoryStore(capacity) }})
}

func (s *StoreSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC))
}

func (s *StoreSuite) push(store Store, userID id.UserID, n int) {
	ch := NewChannel(store)
	for i := 0; i < n; i++ {
		s.Require().NoError(ch.Deliver(s.ctx, notification.Notification{
			RecipientID: userID,
			Kind:        notification.KindDutyAssigned,
			Subject:     fmt.Sprintf("duty %d", i),
		}))
	}
}

func (s *StoreSuite) TestNewestFirstAndCapped() {
	store := s.newStore(3)
	user := id.NewUserID()
	s.push(store, user, 5)

	items, err := store.List(s.ctx, user, 0)
	s.Require().NoError(err)
	s.Require().Len(items, 3)
	s.Equal("duty 4", items[0].Subject)
	s.Equal("duty 2", items[2].Subject)
	s.False(items[0].IsRead())

	limited, err := store.List(s.ctx, user, 1)
	s.Require().NoError(err)
	s.Len(limited, 1)

	other, err := store.List(s.ctx, id.NewUserID(), 0)
	s.Require().NoError(err)
	s.Empty(other)
}

func (s *StoreSuite) TestMarkRead() {
	store := s.newStore(10)
	user := id.NewUserID()
	s.push(store, user, 2)
	items, err := store.List(s.ctx, user, 0)
	s.Require().NoError(err)

	marked, err := store.MarkRead(s.ctx, user, items[1].ID)
	s.Require().NoError(err)
	s.True(marked.IsRead())

	again, err := store.MarkRead(s.ctx, user, items[1].ID)
	s.Require().NoError(err)
	s.True(again.ReadAt.Equal(*marked.ReadAt))

	items, err = store.List(s.ctx, user, 0)
	s.Require().NoError(err)
	s.False(items[0].IsRead())
	s.True(items[1].IsRead())

	_, err = store.MarkRead(s.ctx, id.NewUserID(), items[0].ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
