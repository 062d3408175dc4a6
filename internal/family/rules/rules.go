// Package rules holds the family membership predicates. They are pure
// functions over plain user and invitation records and report outcomes as
// Verdict values; callers decide how a denial surfaces.
package rules

import (
	"time"

	"parish/internal/family/models"
	usermodels "parish/internal/users/models"
	id "parish/pkg/domain"
	dErrors "parish/pkg/domain-errors"
)

// Verdict is the outcome of one rule. Code classifies a denial.
type Verdict struct {
	OK     bool
	Reason string
	Code   dErrors.Code
}

func allow() Verdict {
	return Verdict{OK: true}
}

func deny(code dErrors.Code, reason string) Verdict {
	return Verdict{Code: code, Reason: reason}
}

// Err converts a denial into a domain error, or nil when allowed.
func (v Verdict) Err() error {
	if v.OK {
		return nil
	}
	return dErrors.New(v.Code, v.Reason)
}

const (
	ReasonNotHead          = "Only the head of a family can invite members."
	ReasonInviteeInFamily  = "This user already belongs to a family."
	ReasonInviteeHasRole   = "Administrators, staff and priests cannot join a family."
	ReasonInviteeInactive  = "This user account is not active."
	ReasonInviterNoFamily  = "The inviting member no longer belongs to a family."
	ReasonOtherFamily      = "You already belong to a different family."
	ReasonNotFamilyHead    = "Only the head of this family can remove members."
	ReasonRemoveSelf       = "Family heads leave the family instead of removing themselves."
	ReasonHeadNotAlone     = "A family head can only leave when they are the last member."
	ReasonNoFamily         = "You do not belong to a family."
	ReasonAlreadyResponded = "This invitation has already been answered."
)

// CanInvite allows only a family head who has a family.
func CanInvite(inviter *usermodels.User) Verdict {
	if inviter == nil || !inviter.IsFamilyHead || inviter.FamilyID == nil {
		return deny(dErrors.CodeForbidden, ReasonNotHead)
	}
	return allow()
}

// CanBeInvited rejects users already in a family, holders of any parish role
// and inactive accounts.
func CanBeInvited(invitee *usermodels.User) Verdict {
	switch {
	case invitee.HasParishRole():
		return deny(dErrors.CodeRuleViolation, ReasonInviteeHasRole)
	case invitee.FamilyID != nil:
		return deny(dErrors.CodeRuleViolation, ReasonInviteeInFamily)
	case !invitee.IsActive():
		return deny(dErrors.CodeRuleViolation, ReasonInviteeInactive)
	}
	return allow()
}

// CanTransition allows pending -> accepted | rejected only.
func CanTransition(from, to models.InvitationStatus) Verdict {
	if !from.CanTransitionTo(to) {
		return deny(dErrors.CodeInvalidState, ReasonAlreadyResponded)
	}
	return allow()
}

// AcceptPlan lists the writes that accepting an invitation requires.
type AcceptPlan struct {
	FamilyID id.FamilyID
	// UpdateInvitee is false when the invitee is already linked to the
	// family; only missing relationship rows are added then.
	UpdateInvitee bool
	Members       []*models.Member
}

// Apply links invitee to the plan's family as a plain member.
func (p AcceptPlan) Apply(invitee *usermodels.User, now time.Time) {
	if p.UpdateInvitee {
		invitee.JoinFamily(p.FamilyID, usermodels.FamilyRoleMember, now)
	}
}

// OnAccept plans the acceptance of inv. It fails when the inviter no longer
// belongs to the inviting family or the invitee belongs to a different one.
func OnAccept(inv *models.Invitation, inviter, invitee *usermodels.User, now time.Time) (AcceptPlan, Verdict) {
	if v := CanTransition(inv.Status, models.InvitationAccepted); !v.OK {
		return AcceptPlan{}, v
	}
	if inviter == nil || !inviter.InFamily(inv.FamilyID) {
		return AcceptPlan{}, deny(dErrors.CodeRuleViolation, ReasonInviterNoFamily)
	}
	familyID := inv.FamilyID
	if invitee.HasParishRole() {
		return AcceptPlan{}, deny(dErrors.CodeRuleViolation, ReasonInviteeHasRole)
	}
	if invitee.FamilyID != nil && *invitee.FamilyID != familyID {
		return AcceptPlan{}, deny(dErrors.CodeRuleViolation, ReasonOtherFamily)
	}
	return AcceptPlan{
		FamilyID:      familyID,
		UpdateInvitee: !invitee.InFamily(familyID),
		Members:       models.NewMemberPair(familyID, inviter.ID, invitee.ID, inv.Relationship, now),
	}, allow()
}

// CanRemove allows the head of target's family to remove anyone but
// themselves.
func CanRemove(actor, target *usermodels.User) Verdict {
	if actor.ID == target.ID {
		return deny(dErrors.CodeForbidden, ReasonRemoveSelf)
	}
	if !actor.IsFamilyHead || actor.FamilyID == nil || !target.InFamily(*actor.FamilyID) {
		return deny(dErrors.CodeForbidden, ReasonNotFamilyHead)
	}
	return allow()
}

// CanLeave lets non-heads leave at any time and heads only as the sole
// member. memberCount counts users linked to the family, the leaver included.
func CanLeave(user *usermodels.User, memberCount int) Verdict {
	if user.FamilyID == nil {
		return deny(dErrors.CodeInvalidState, ReasonNoFamily)
	}
	if user.IsFamilyHead && memberCount > 1 {
		return deny(dErrors.CodeRuleViolation, ReasonHeadNotAlone)
	}
	return allow()
}

// CanManage allows the family head to edit family details.
func CanManage(actor *usermodels.User) Verdict {
	if actor.FamilyID == nil {
		return deny(dErrors.CodeNotFound, ReasonNoFamily)
	}
	if !actor.IsFamilyHead {
		return deny(dErrors.CodeForbidden, "Only the head of the family can change its details.")
	}
	return allow()
}
