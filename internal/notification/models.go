package notification

import (
	"time"

	id "parish/pkg/domain"
)

// Kind names a notification template and event type.
type Kind string

const (
	KindDutyAssigned       Kind = "duty_assigned"
	KindDutyUpdated        Kind = "duty_updated"
	KindDutyCancelled      Kind = "duty_cancelled"
	KindFamilyInvitation   Kind = "family_invitation"
	KindInvitationAccepted Kind = "invitation_accepted"
	KindInvitationRejected Kind = "invitation_rejected"
	KindMemberRemoved      Kind = "family_member_removed"
)

// Notification is one message for one recipient. Data feeds the templates
// and the event payload.
type Notification struct {
	RecipientID id.UserID         `json:"recipient_id"`
	Email       string            `json:"email"`
	Name        string            `json:"name"`
	Kind        Kind              `json:"kind"`
	Subject     string            `json:"subject"`
	Data        map[string]string `json:"data,omitempty"`
}

// InboxItem is an in-app notification.
type InboxItem struct {
	ID        string            `json:"id"`
	UserID    id.UserID         `json:"user_id"`
	Kind      Kind              `json:"kind"`
	Subject   string            `json:"subject"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	ReadAt    *time.Time        `json:"read_at,omitempty"`
}

func (i *InboxItem) IsRead() bool {
	return i.ReadAt != nil
}
