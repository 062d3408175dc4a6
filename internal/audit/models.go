package audit

import "time"

// Category groups events by who consumes them.
type Category string

const (
	CategoryScheduling Category = "scheduling"
	CategoryMembership Category = "membership"
	CategoryDirectory  Category = "directory"
)

// EventName identifies an audited action.
type EventName string

const (
	EventUserCreated       EventName = "user_created"
	EventUserStatusChanged EventName = "user_status_changed"

	EventDutyScheduled        EventName = "duty_scheduled"
	EventDutyUpdated          EventName = "duty_updated"
	EventDutyCompleted        EventName = "duty_completed"
	EventDutyCancelled        EventName = "duty_cancelled"
	EventDutyDeleted          EventName = "duty_deleted"
	EventDutyConflictRejected EventName = "duty_conflict_rejected"

	EventFamilyCreated      EventName = "family_created"
	EventFamilyUpdated      EventName = "family_updated"
	EventInvitationSent     EventName = "family_invitation_sent"
	EventInvitationAccepted EventName = "family_invitation_accepted"
	EventInvitationRejected EventName = "family_invitation_rejected"
	EventMemberRemoved      EventName = "family_member_removed"
	EventMemberLeft         EventName = "family_member_left"
	EventFamilyDissolved    EventName = "family_dissolved"
)

// Event is emitted from services to record key actions. It is transport
// agnostic so stores and sinks can fan out.
type Event struct {
	ID        int64     `db:"id" json:"id"`
	Category  Category  `db:"category" json:"category"`
	Timestamp time.Time `db:"occurred_at" json:"timestamp"`
	ActorID   string    `db:"actor_id" json:"actor_id,omitempty"`
	UserID    string    `db:"user_id" json:"user_id,omitempty"`
	Subject   string    `db:"subject" json:"subject,omitempty"`
	Action    string    `db:"action" json:"action"`
	Reason    string    `db:"reason" json:"reason,omitempty"`
	RequestID string    `db:"request_id" json:"request_id,omitempty"`
	ClientIP  string    `db:"client_ip" json:"client_ip,omitempty"`
	Device    string    `db:"device" json:"device,omitempty"`
}
