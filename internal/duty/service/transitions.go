package service

import (
	"context"

	"parish/internal/audit"
	"parish/internal/duty/models"
	"parish/internal/notification"
	id "parish/pkg/domain"
	"parish/pkg/requestcontext"
)

// Complete marks a scheduled entry as done. The assigned priest may complete
// their own duty; anyone else needs management rights.
func (s *Service) Complete(ctx context.Context, actorID id.UserID, entryID id.DutyEntryID) (*models.DutyEntry, error) {
	return s.transition(ctx, actorID, entryID, models.StatusCompleted)
}

// Cancel withdraws a scheduled entry and frees its slot.
func (s *Service) Cancel(ctx context.Context, actorID id.UserID, entryID id.DutyEntryID) (*models.DutyEntry, error) {
	return s.transition(ctx, actorID, entryID, models.StatusCancelled)
}

func (s *Service) transition(ctx context.Context, actorID id.UserID, entryID id.DutyEntryID, next models.Status) (*models.DutyEntry, error) {
	ctx, span := tracer.Start(ctx, "duty.Transition")
	defer span.End()

	current, err := s.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}
	ownDuty := next == models.StatusCompleted && current.PriestID == actorID
	if !ownDuty {
		if _, err := s.requireManager(ctx, actorID); err != nil {
			return nil, err
		}
	}

	var updated *models.DutyEntry
	err = s.tx.RunInTx(ctx, []string{PriestLockKey(current.PriestID)}, func(ctx context.Context, store Store) error {
		e, err := store.FindByID(ctx, entryID)
		if err != nil {
			return err
		}
		// Both the permission and the lock key were derived from current.
		if e.PriestID != current.PriestID {
			return errChangedConcurrently()
		}
		if err := e.Transition(next, requestcontext.Now(ctx)); err != nil {
			return err
		}
		if err := store.Update(ctx, e); err != nil {
			return err
		}
		updated = e
		return nil
	})
	if err != nil {
		return nil, translateStoreErr(err, "failed to change duty status")
	}

	if s.metrics != nil {
		s.metrics.IncrementTransition(string(next))
	}
	event := audit.EventDutyCompleted
	if next == models.StatusCancelled {
		event = audit.EventDutyCancelled
	}
	s.logAudit(ctx, event, updated.PriestID, "", "entry_id", updated.ID.String())
	if next == models.StatusCancelled {
		if priest, err := s.users.FindByID(ctx, updated.PriestID); err == nil {
			s.notify(ctx, notification.KindDutyCancelled, "Duty cancelled", priest, updated)
		}
	}
	return updated, nil
}

// Delete removes an entry regardless of status.
func (s *Service) Delete(ctx context.Context, actorID id.UserID, entryID id.DutyEntryID) error {
	ctx, span := tracer.Start(ctx, "duty.Delete")
	defer span.End()

	if _, err := s.requireManager(ctx, actorID); err != nil {
		return err
	}
	current, err := s.Get(ctx, entryID)
	if err != nil {
		return err
	}
	err = s.tx.RunInTx(ctx, []string{PriestLockKey(current.PriestID)}, func(ctx context.Context, store Store) error {
		return store.Delete(ctx, entryID)
	})
	if err != nil {
		return translateStoreErr(err, "failed to delete duty")
	}
	s.logAudit(ctx, audit.EventDutyDeleted, current.PriestID, "", "entry_id", entryID.String())
	return nil
}
