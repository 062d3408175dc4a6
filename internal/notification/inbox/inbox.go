// Package inbox keeps in-app notifications per user.
package inbox

import (
	"context"

	"github.com/google/uuid"

	"parish/internal/notification"
	id "parish/pkg/domain"
	"parish/pkg/requestcontext"
)

// DefaultCap bounds how many items a user's inbox keeps.
const DefaultCap = 100

// Store persists inbox items newest first.
type Store interface {
	Push(ctx context.Context, item *notification.InboxItem) error
	List(ctx context.Context, userID id.UserID, limit int) ([]*notification.InboxItem, error)
	// MarkRead returns sentinel.ErrNotFound when the user has no such item.
	MarkRead(ctx context.Context, userID id.UserID, itemID string) (*notification.InboxItem, error)
}

// Channel stores notifications in the recipient's inbox.
type Channel struct {
	store Store
}

func NewChannel(store Store) *Channel {
	return &Channel{store: store}
}

func (c *Channel) Name() string { return "inbox" }

func (c *Channel) Deliver(ctx context.Context, n notification.Notification) error {
	return c.store.Push(ctx, &notification.InboxItem{
		ID:        uuid.NewString(),
		UserID:    n.RecipientID,
		Kind:      n.Kind,
		Subject:   n.Subject,
		Data:      n.Data,
		CreatedAt: requestcontext.Now(ctx),
	})
}
