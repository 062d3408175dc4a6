package service

import (
	"context"
	"errors"
	"time"

	"parish/internal/audit"
	"parish/internal/duty/checker"
	"parish/internal/duty/models"
	"parish/internal/notification"
	usermodels "parish/internal/users/models"
	id "parish/pkg/domain"
	dErrors "parish/pkg/domain-errors"
	"parish/pkg/platform/sentinel"
	"parish/pkg/platform/validation"
	"parish/pkg/requestcontext"
)

// Schedule creates a duty entry after the priest and conflict checks. The
// check and the insert run under the priest's lock so two concurrent
// schedules cannot both pass the check.
func (s *Service) Schedule(ctx context.Context, actorID id.UserID, req *models.ScheduleRequest) (*models.DutyEntry, error) {
	ctx, span := tracer.Start(ctx, "duty.Schedule")
	defer span.End()

	actor, err := s.requireManager(ctx, actorID)
	if err != nil {
		return nil, err
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	priestID, date, at, err := req.Slot()
	if err != nil {
		return nil, err
	}
	priest, err := s.requirePriest(ctx, priestID)
	if err != nil {
		return nil, err
	}
	if err := s.requireNotPast(ctx, date); err != nil {
		return nil, err
	}

	entry, err := models.NewDutyEntry(id.NewDutyEntryID(), priestID, date, at, req.Description, req.Notes, actor.ID, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, dErrors.Message(err))
	}

	err = s.tx.RunInTx(ctx, []string{PriestLockKey(priestID)}, func(ctx context.Context, store Store) error {
		res, err := s.check(ctx, store, checker.Request{PriestID: priestID, Date: date, Time: at})
		if err != nil {
			return err
		}
		if res.Conflict {
			return s.conflictError(ctx, res, priestID)
		}
		if err := store.Create(ctx, entry); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return s.conflictError(ctx, checker.ExactConflict(), priestID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create duty entry")
		}
		return nil
	})
	if err != nil {
		return nil, translateStoreErr(err, "failed to schedule duty")
	}

	if s.metrics != nil {
		s.metrics.IncrementScheduled()
	}
	s.logAudit(ctx, audit.EventDutyScheduled, priestID, "",
		"entry_id", entry.ID.String(),
		"date", entry.Date.String(),
		"time", entry.Time.String(),
	)
	s.notify(ctx, notification.KindDutyAssigned, "New duty assigned", priest, entry)
	return entry, nil
}

// Update edits a scheduled entry. Moving it to another priest, date or time
// re-runs the conflict check excluding the entry itself.
func (s *Service) Update(ctx context.Context, actorID id.UserID, entryID id.DutyEntryID, req *models.UpdateRequest) (*models.DutyEntry, error) {
	ctx, span := tracer.Start(ctx, "duty.Update")
	defer span.End()

	if _, err := s.requireManager(ctx, actorID); err != nil {
		return nil, err
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if req.IsEmpty() {
		return current, nil
	}

	change, err := s.resolveChange(ctx, current, req)
	if err != nil {
		return nil, err
	}

	keys := []string{PriestLockKey(current.PriestID)}
	if change.priest != nil && change.priest.ID != current.PriestID {
		keys = append(keys, PriestLockKey(change.priest.ID))
	}

	var updated *models.DutyEntry
	err = s.tx.RunInTx(ctx, keys, func(ctx context.Context, store Store) error {
		e, err := store.FindByID(ctx, entryID)
		if err != nil {
			return err
		}
		if e.PriestID != current.PriestID {
			return errChangedConcurrently()
		}
		if !e.IsScheduled() {
			return dErrors.New(dErrors.CodeInvalidState, "Only scheduled duties can be edited.")
		}
		change.apply(e, requestcontext.Now(ctx))
		if err := e.Validate(); err != nil {
			return dErrors.New(dErrors.CodeValidation, dErrors.Message(err))
		}

		if req.MovesSlot() {
			res, err := s.check(ctx, store, checker.Request{PriestID: e.PriestID, Date: e.Date, Time: e.Time, ExcludeEntryID: &e.ID})
			if err != nil {
				return err
			}
			if res.Conflict {
				return s.conflictError(ctx, res, e.PriestID)
			}
		}
		if err := store.Update(ctx, e); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return s.conflictError(ctx, checker.ExactConflict(), e.PriestID)
			}
			return err
		}
		updated = e
		return nil
	})
	if err != nil {
		return nil, translateStoreErr(err, "failed to update duty")
	}

	s.logAudit(ctx, audit.EventDutyUpdated, updated.PriestID, "",
		"entry_id", updated.ID.String(),
		"date", updated.Date.String(),
		"time", updated.Time.String(),
	)
	switch {
	case change.priest != nil && change.priest.ID != current.PriestID:
		s.notify(ctx, notification.KindDutyAssigned, "New duty assigned", change.priest, updated)
	case req.MovesSlot():
		if priest, err := s.users.FindByID(ctx, updated.PriestID); err == nil {
			s.notify(ctx, notification.KindDutyUpdated, "Duty rescheduled", priest, updated)
		}
	}
	return updated, nil
}

// entryChange holds the parsed fields of an UpdateRequest.
type entryChange struct {
	priest      *usermodels.User
	date        *models.Date
	at          *models.ClockTime
	description *string
	notes       *string
}

func (s *Service) resolveChange(ctx context.Context, current *models.DutyEntry, req *models.UpdateRequest) (*entryChange, error) {
	change := &entryChange{description: req.Description, notes: req.Notes}
	if req.PriestID != nil {
		priestID, err := id.ParseUserID(*req.PriestID)
		if err != nil {
			return nil, validation.Field("priest_id", "priest_id must be a valid UUID")
		}
		if priestID != current.PriestID {
			priest, err := s.requirePriest(ctx, priestID)
			if err != nil {
				return nil, err
			}
			change.priest = priest
		}
	}
	if req.Date != nil {
		d, err := models.ParseDate(*req.Date)
		if err != nil {
			return nil, validation.Field("date", "date must be a date in YYYY-MM-DD format")
		}
		if !d.Equal(current.Date) {
			if err := s.requireNotPast(ctx, d); err != nil {
				return nil, err
			}
		}
		change.date = &d
	}
	if req.Time != nil {
		t, err := models.ParseClockTime(*req.Time)
		if err != nil {
			return nil, validation.Field("time", "time must be a time in HH:MM format")
		}
		change.at = &t
	}
	return change, nil
}

func (c *entryChange) apply(e *models.DutyEntry, now time.Time) {
	if c.priest != nil {
		e.PriestID = c.priest.ID
	}
	if c.date != nil {
		e.Date = *c.date
	}
	if c.at != nil {
		e.Time = *c.at
	}
	if c.description != nil {
		e.Description = *c.description
	}
	if c.notes != nil {
		e.Notes = *c.notes
	}
	e.UpdatedAt = now
}

// errChangedConcurrently reports an entry reassigned between the unlocked read
// and the locked one.
func errChangedConcurrently() error {
	return dErrors.New(dErrors.CodeConflict, "duty entry was changed concurrently, please retry")
}
