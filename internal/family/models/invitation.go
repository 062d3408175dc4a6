package models

import (
	"time"

	id "parish/pkg/domain"
	dErrors "parish/pkg/domain-errors"
)

// InvitationStatus is the state of a family invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRejected InvitationStatus = "rejected"
)

func (s InvitationStatus) IsValid() bool {
	switch s {
	case InvitationPending, InvitationAccepted, InvitationRejected:
		return true
	}
	return false
}

// IsTerminal reports whether the invitation has been answered.
func (s InvitationStatus) IsTerminal() bool {
	return s == InvitationAccepted || s == InvitationRejected
}

// CanTransitionTo allows pending -> accepted | rejected only.
func (s InvitationStatus) CanTransitionTo(next InvitationStatus) bool {
	return s == InvitationPending && next.IsTerminal()
}

// Invitation asks a user to join the inviter's family.
//
// Invariants:
//   - InviterID != InviteeID
//   - RespondedAt is set exactly when Status is terminal
//   - Accepted and rejected are terminal
type Invitation struct {
	ID           id.InvitationID  `db:"id" json:"id"`
	FamilyID     id.FamilyID      `db:"family_id" json:"family_id"`
	InviterID    id.UserID        `db:"inviter_id" json:"inviter_id"`
	InviteeID    id.UserID        `db:"invitee_id" json:"invitee_id"`
	Relationship Relationship     `db:"relationship" json:"relationship"`
	Status       InvitationStatus `db:"status" json:"status"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	RespondedAt  *time.Time       `db:"responded_at" json:"responded_at"`
}

// NewInvitation builds a pending invitation.
func NewInvitation(invitationID id.InvitationID, familyID id.FamilyID, inviterID, inviteeID id.UserID, rel Relationship, now time.Time) (*Invitation, error) {
	inv := &Invitation{
		ID:           invitationID,
		FamilyID:     familyID,
		InviterID:    inviterID,
		InviteeID:    inviteeID,
		Relationship: rel,
		Status:       InvitationPending,
		CreatedAt:    now,
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return inv, nil
}

func (i *Invitation) Validate() error {
	switch {
	case i.ID.IsNil():
		return dErrors.New(dErrors.CodeInvariantViolation, "invitation id is required")
	case i.FamilyID.IsNil():
		return dErrors.New(dErrors.CodeInvariantViolation, "family is required")
	case i.InviterID.IsNil() || i.InviteeID.IsNil():
		return dErrors.New(dErrors.CodeInvariantViolation, "inviter and invitee are required")
	case i.InviterID == i.InviteeID:
		return dErrors.New(dErrors.CodeInvariantViolation, "users cannot invite themselves")
	case !i.Relationship.IsValid():
		return dErrors.New(dErrors.CodeInvariantViolation, "relationship is invalid")
	case !i.Status.IsValid():
		return dErrors.New(dErrors.CodeInvariantViolation, "status is invalid")
	case (i.RespondedAt != nil) != i.Status.IsTerminal():
		return dErrors.New(dErrors.CodeInvariantViolation, "responded_at must be set exactly when answered")
	}
	return nil
}

func (i *Invitation) IsPending() bool {
	return i.Status == InvitationPending
}

// Respond moves a pending invitation to next.
func (i *Invitation) Respond(next InvitationStatus, now time.Time) error {
	if !i.Status.CanTransitionTo(next) {
		return dErrors.New(dErrors.CodeInvalidState, "invitation has already been "+string(i.Status))
	}
	i.Status = next
	at := now
	i.RespondedAt = &at
	return nil
}
