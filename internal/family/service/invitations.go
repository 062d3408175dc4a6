package service

import (
	"context"
	"errors"

	"parish/internal/audit"
	"parish/internal/family/models"
	"parish/internal/family/rules"
	"parish/internal/notification"
	usermodels "parish/internal/users/models"
	id "parish/pkg/domain"
	dErrors "parish/pkg/domain-errors"
	"parish/pkg/platform/sentinel"
	"parish/pkg/platform/validation"
	"parish/pkg/requestcontext"
)

const reasonAlreadyInvited = "An invitation is already pending for this user."

// Invite sends an invitation from the actor's family to another user. The
// invitee is checked before anything is stored.
func (s *Service) Invite(ctx context.Context, actorID id.UserID, req *models.InviteRequest) (*models.Invitation, error) {
	ctx, span := tracer.Start(ctx, "family.Invite")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	rel, ok := models.ParseRelationship(req.Relationship)
	if !ok {
		return nil, validation.Field("relationship", "The selected relationship is invalid.")
	}
	inviter, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if v := rules.CanInvite(inviter); !v.OK {
		return nil, s.denied("invite", v.Err())
	}
	invitee, err := s.resolveInvitee(ctx, req)
	if err != nil {
		return nil, err
	}
	if invitee.ID == inviter.ID {
		return nil, validation.Field(inviteeField(req), "You cannot invite yourself.")
	}
	if v := rules.CanBeInvited(invitee); !v.OK {
		return nil, s.denied("invite", v.Err())
	}

	familyID := *inviter.FamilyID
	inv, err := models.NewInvitation(id.NewInvitationID(), familyID, inviter.ID, invitee.ID, rel, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, dErrors.Message(err))
	}

	var family *models.Family
	err = s.tx.RunInTx(ctx, []string{FamilyLockKey(familyID), UserLockKey(invitee.ID)}, func(ctx context.Context, stores Stores) error {
		f, err := stores.Families.FindByID(ctx, familyID)
		if err != nil {
			return err
		}
		family = f
		if _, err := stores.Invitations.FindPending(ctx, familyID, invitee.ID); err == nil {
			return s.denied("invite", dErrors.New(dErrors.CodeRuleViolation, reasonAlreadyInvited))
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}
		if err := stores.Invitations.Create(ctx, inv); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return s.denied("invite", dErrors.New(dErrors.CodeRuleViolation, reasonAlreadyInvited))
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, "family not found", "failed to create invitation")
	}

	if s.metrics != nil {
		s.metrics.IncrementInvitationSent()
	}
	s.logAudit(ctx, audit.EventInvitationSent, invitee.ID,
		"family_id", familyID.String(),
		"invitation_id", inv.ID.String(),
		"relationship", string(rel),
	)
	s.notify(ctx, notification.KindFamilyInvitation, "You have been invited to join a family", invitee, map[string]string{
		"invitation_id": inv.ID.String(),
		"family_name":   family.Name,
		"inviter_name":  inviter.FullName(),
		"relationship":  string(rel),
	})
	return inv, nil
}

// Accept joins the actor to the inviting family and records the
// relationship in both directions. Answering twice fails with invalid_state.
func (s *Service) Accept(ctx context.Context, actorID id.UserID, invitationID id.InvitationID) (*models.Invitation, error) {
	ctx, span := tracer.Start(ctx, "family.Accept")
	defer span.End()

	inv, err := s.invitationFor(ctx, actorID, invitationID)
	if err != nil {
		return nil, err
	}

	var inviter *usermodels.User
	keys := []string{InvitationLockKey(invitationID), UserLockKey(actorID), FamilyLockKey(inv.FamilyID)}
	err = s.tx.RunInTx(ctx, keys, func(ctx context.Context, stores Stores) error {
		current, err := stores.Invitations.FindByIDForUpdate(ctx, invitationID)
		if err != nil {
			return err
		}
		if v := rules.CanTransition(current.Status, models.InvitationAccepted); !v.OK {
			return s.denied("accept", v.Err())
		}
		invitee, err := loadActorFrom(ctx, stores.Users, actorID)
		if err != nil {
			return err
		}
		inviter, err = stores.Users.FindByID(ctx, current.InviterID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}
		now := requestcontext.Now(ctx)
		plan, v := rules.OnAccept(current, inviter, invitee, now)
		if !v.OK {
			return s.denied("accept", v.Err())
		}
		if plan.UpdateInvitee {
			plan.Apply(invitee, now)
			if err := stores.Users.Update(ctx, invitee); err != nil {
				return err
			}
		}
		for _, m := range plan.Members {
			if err := stores.Members.Create(ctx, m); err != nil && !errors.Is(err, sentinel.ErrConflict) {
				return err
			}
		}
		if err := current.Respond(models.InvitationAccepted, now); err != nil {
			return err
		}
		if err := stores.Invitations.Update(ctx, current); err != nil {
			return err
		}
		inv = current
		return nil
	})
	if err != nil {
		return nil, translate(err, "invitation not found", "failed to accept invitation")
	}

	if s.metrics != nil {
		s.metrics.IncrementAnswered(string(models.InvitationAccepted))
	}
	s.logAudit(ctx, audit.EventInvitationAccepted, actorID,
		"family_id", inv.FamilyID.String(),
		"invitation_id", inv.ID.String(),
	)
	if invitee, err := s.stores.Users.FindByID(ctx, actorID); err == nil {
		s.notify(ctx, notification.KindInvitationAccepted, "Your family invitation was accepted", inviter, map[string]string{
			"invitation_id": inv.ID.String(),
			"invitee_name":  invitee.FullName(),
			"relationship":  string(inv.Relationship),
		})
	}
	return inv, nil
}

// Reject declines a pending invitation addressed to the actor.
func (s *Service) Reject(ctx context.Context, actorID id.UserID, invitationID id.InvitationID) (*models.Invitation, error) {
	ctx, span := tracer.Start(ctx, "family.Reject")
	defer span.End()

	inv, err := s.invitationFor(ctx, actorID, invitationID)
	if err != nil {
		return nil, err
	}
	err = s.tx.RunInTx(ctx, []string{InvitationLockKey(invitationID)}, func(ctx context.Context, stores Stores) error {
		current, err := stores.Invitations.FindByIDForUpdate(ctx, invitationID)
		if err != nil {
			return err
		}
		if v := rules.CanTransition(current.Status, models.InvitationRejected); !v.OK {
			return s.denied("reject", v.Err())
		}
		if err := current.Respond(models.InvitationRejected, requestcontext.Now(ctx)); err != nil {
			return err
		}
		if err := stores.Invitations.Update(ctx, current); err != nil {
			return err
		}
		inv = current
		return nil
	})
	if err != nil {
		return nil, translate(err, "invitation not found", "failed to reject invitation")
	}

	if s.metrics != nil {
		s.metrics.IncrementAnswered(string(models.InvitationRejected))
	}
	s.logAudit(ctx, audit.EventInvitationRejected, actorID,
		"family_id", inv.FamilyID.String(),
		"invitation_id", inv.ID.String(),
	)
	inviter, ierr := s.stores.Users.FindByID(ctx, inv.InviterID)
	invitee, eerr := s.stores.Users.FindByID(ctx, actorID)
	if ierr == nil && eerr == nil {
		s.notify(ctx, notification.KindInvitationRejected, "Your family invitation was declined", inviter, map[string]string{
			"invitation_id": inv.ID.String(),
			"invitee_name":  invitee.FullName(),
		})
	}
	return inv, nil
}

// invitationFor loads an invitation addressed to actorID. Invitations
// addressed to someone else are reported as missing.
func (s *Service) invitationFor(ctx context.Context, actorID id.UserID, invitationID id.InvitationID) (*models.Invitation, error) {
	inv, err := s.stores.Invitations.FindByID(ctx, invitationID)
	if err != nil {
		return nil, translate(err, "invitation not found", "failed to load invitation")
	}
	if inv.InviteeID != actorID {
		return nil, dErrors.New(dErrors.CodeNotFound, "invitation not found")
	}
	return inv, nil
}

func (s *Service) resolveInvitee(ctx context.Context, req *models.InviteRequest) (*usermodels.User, error) {
	var (
		u   *usermodels.User
		err error
	)
	if req.InviteeID != "" {
		userID, perr := id.ParseUserID(req.InviteeID)
		if perr != nil {
			return nil, validation.Field("invitee_id", "The selected user is invalid.")
		}
		u, err = s.stores.Users.FindByID(ctx, userID)
	} else {
		u, err = s.stores.Users.FindByEmail(ctx, req.InviteeEmail)
	}
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, validation.Field(inviteeField(req), "The selected user is invalid.")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load invitee")
	}
	return u, nil
}

func inviteeField(req *models.InviteRequest) string {
	if req.InviteeID != "" {
		return "invitee_id"
	}
	return "invitee_email"
}
