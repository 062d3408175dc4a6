package service

import (
	"context"

	"parish/internal/audit"
	"parish/internal/family/models"
	"parish/internal/family/rules"
	usermodels "parish/internal/users/models"
	id "parish/pkg/domain"
	dErrors "parish/pkg/domain-errors"
	"parish/pkg/requestcontext"
)

// Create starts a family with the actor as its head.
func (s *Service) Create(ctx context.Context, actorID id.UserID, req *models.CreateFamilyRequest) (*models.View, error) {
	ctx, span := tracer.Start(ctx, "family.Create")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	f, err := models.NewFamily(id.NewFamilyID(), req.Name, req.Address, req.Phone, req.Email, now)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, dErrors.Message(err))
	}

	err = s.tx.RunInTx(ctx, []string{UserLockKey(actorID), FamilyLockKey(f.ID)}, func(ctx context.Context, stores Stores) error {
		actor, err := loadActorFrom(ctx, stores.Users, actorID)
		if err != nil {
			return err
		}
		if actor.HasParishRole() {
			return s.denied("create", dErrors.New(dErrors.CodeForbidden, rules.ReasonInviteeHasRole))
		}
		if actor.HasFamily() {
			return s.denied("create", dErrors.New(dErrors.CodeRuleViolation, rules.ReasonInviteeInFamily))
		}
		if err := stores.Families.Create(ctx, f); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create family")
		}
		actor.JoinFamily(f.ID, usermodels.FamilyRoleHead, now)
		if err := stores.Users.Update(ctx, actor); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to link family head")
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, "user not found", "failed to create family")
	}

	if s.metrics != nil {
		s.metrics.IncrementFamilyCreated()
	}
	s.logAudit(ctx, audit.EventFamilyCreated, actorID, "family_id", f.ID.String())
	return s.view(ctx, f.ID)
}

// Update changes the contact details of the actor's family. Only the head
// may do so.
func (s *Service) Update(ctx context.Context, actorID id.UserID, req *models.UpdateFamilyRequest) (*models.Family, error) {
	ctx, span := tracer.Start(ctx, "family.Update")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if v := rules.CanManage(actor); !v.OK {
		return nil, s.denied("update", v.Err())
	}
	familyID := *actor.FamilyID

	var updated *models.Family
	err = s.tx.RunInTx(ctx, []string{FamilyLockKey(familyID)}, func(ctx context.Context, stores Stores) error {
		f, err := stores.Families.FindByID(ctx, familyID)
		if err != nil {
			return err
		}
		req.Apply(f)
		f.UpdatedAt = requestcontext.Now(ctx)
		if err := f.Validate(); err != nil {
			return dErrors.New(dErrors.CodeValidation, dErrors.Message(err))
		}
		if err := stores.Families.Update(ctx, f); err != nil {
			return err
		}
		updated = f
		return nil
	})
	if err != nil {
		return nil, translate(err, "family not found", "failed to update family")
	}

	s.logAudit(ctx, audit.EventFamilyUpdated, actorID, "family_id", familyID.String())
	return updated, nil
}
