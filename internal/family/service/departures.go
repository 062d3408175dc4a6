package service

import (
	"context"

	"parish/internal/audit"
	"parish/internal/family/rules"
	"parish/internal/notification"
	usermodels "parish/internal/users/models"
	id "parish/pkg/domain"
	dErrors "parish/pkg/domain-errors"
	"parish/pkg/requestcontext"
)

// RemoveMember unlinks targetID from the actor's family and drops every
// relationship row that mentions them. Only the head may remove members.
func (s *Service) RemoveMember(ctx context.Context, actorID, targetID id.UserID) error {
	ctx, span := tracer.Start(ctx, "family.RemoveMember")
	defer span.End()

	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return err
	}
	if actor.FamilyID == nil {
		return s.denied("remove", dErrors.New(dErrors.CodeForbidden, rules.ReasonNotFamilyHead))
	}
	familyID := *actor.FamilyID

	var target *usermodels.User
	err = s.tx.RunInTx(ctx, []string{FamilyLockKey(familyID), UserLockKey(targetID)}, func(ctx context.Context, stores Stores) error {
		t, err := stores.Users.FindByID(ctx, targetID)
		if err != nil {
			return err
		}
		if v := rules.CanRemove(actor, t); !v.OK {
			return s.denied("remove", v.Err())
		}
		t.ClearFamily(requestcontext.Now(ctx))
		if err := stores.Users.Update(ctx, t); err != nil {
			return err
		}
		if _, err := stores.Members.DeleteByUser(ctx, t.ID); err != nil {
			return err
		}
		target = t
		return nil
	})
	if err != nil {
		return translate(err, "member not found", "failed to remove member")
	}

	if s.metrics != nil {
		s.metrics.IncrementDeparted("removed")
	}
	s.logAudit(ctx, audit.EventMemberRemoved, targetID, "family_id", familyID.String())
	s.notify(ctx, notification.KindMemberRemoved, "You have been removed from your family", target, map[string]string{
		"family_id": familyID.String(),
	})
	return nil
}

// Leave unlinks the actor from their family. A head may only leave as the
// last member, which dissolves the family.
func (s *Service) Leave(ctx context.Context, actorID id.UserID) error {
	ctx, span := tracer.Start(ctx, "family.Leave")
	defer span.End()

	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return err
	}
	if actor.FamilyID == nil {
		return s.denied("leave", rules.CanLeave(actor, 0).Err())
	}
	familyID := *actor.FamilyID

	var dissolved bool
	err = s.tx.RunInTx(ctx, []string{FamilyLockKey(familyID), UserLockKey(actorID)}, func(ctx context.Context, stores Stores) error {
		u, err := loadActorFrom(ctx, stores.Users, actorID)
		if err != nil {
			return err
		}
		if !u.InFamily(familyID) {
			return s.denied("leave", dErrors.New(dErrors.CodeInvalidState, rules.ReasonNoFamily))
		}
		count, err := stores.Users.CountByFamily(ctx, familyID)
		if err != nil {
			return err
		}
		if v := rules.CanLeave(u, count); !v.OK {
			return s.denied("leave", v.Err())
		}
		dissolved = u.IsFamilyHead
		u.ClearFamily(requestcontext.Now(ctx))
		if err := stores.Users.Update(ctx, u); err != nil {
			return err
		}
		if _, err := stores.Members.DeleteByUser(ctx, u.ID); err != nil {
			return err
		}
		if dissolved {
			return stores.Families.Delete(ctx, familyID)
		}
		return nil
	})
	if err != nil {
		return translate(err, "family not found", "failed to leave family")
	}

	if s.metrics != nil {
		s.metrics.IncrementDeparted("left")
	}
	s.logAudit(ctx, audit.EventMemberLeft, actorID, "family_id", familyID.String())
	if dissolved {
		s.logAudit(ctx, audit.EventFamilyDissolved, actorID, "family_id", familyID.String())
	}
	return nil
}
