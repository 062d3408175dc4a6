package models

import (
	"strings"
	"time"

	id "parish/pkg/domain"
	dErrors "parish/pkg/domain-errors"
)

// Status is the lifecycle state of a duty entry.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "status must be scheduled, completed or cancelled")
	}
	return st, nil
}

func (s Status) IsValid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo allows scheduled -> completed | cancelled only.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusScheduled && (next == StatusCompleted || next == StatusCancelled)
}

// MaxDescriptionLength bounds duty descriptions.
const MaxDescriptionLength = 255

// DutyEntry assigns a priest to a pastoral task at a date and time.
//
// Invariants:
//   - PriestID, CreatedBy are set; Description is non-empty
//   - Time is a valid time of day
//   - Only scheduled entries are editable; completed and cancelled are terminal
//   - Two scheduled entries of one priest on one date never share a time or
//     fall inside the overlap window (enforced by the conflict checker and,
//     for equal times, by the store)
type DutyEntry struct {
	ID          id.DutyEntryID `db:"id" json:"id"`
	PriestID    id.UserID      `db:"priest_id" json:"priest_id"`
	Date        Date           `db:"duty_date" json:"date"`
	Time        ClockTime      `db:"duty_time" json:"time"`
	Description string         `db:"duty_description" json:"duty_description"`
	Status      Status         `db:"status" json:"status"`
	Notes       string         `db:"notes" json:"notes"`
	CreatedBy   id.UserID      `db:"created_by" json:"created_by"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// NewDutyEntry builds a scheduled entry.
func NewDutyEntry(entryID id.DutyEntryID, priestID id.UserID, date Date, at ClockTime, description, notes string, createdBy id.UserID, now time.Time) (*DutyEntry, error) {
	e := &DutyEntry{
		ID:          entryID,
		PriestID:    priestID,
		Date:        date,
		Time:        at,
		Description: strings.TrimSpace(description),
		Status:      StatusScheduled,
		Notes:       strings.TrimSpace(notes),
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Validate checks the entry invariants.
func (e *DutyEntry) Validate() error {
	switch {
	case e.ID.IsNil():
		return dErrors.New(dErrors.CodeInvariantViolation, "duty entry id is required")
	case e.PriestID.IsNil():
		return dErrors.New(dErrors.CodeInvariantViolation, "priest is required")
	case e.CreatedBy.IsNil():
		return dErrors.New(dErrors.CodeInvariantViolation, "creator is required")
	case e.Date.IsZero():
		return dErrors.New(dErrors.CodeInvariantViolation, "date is required")
	case !e.Time.Valid():
		return dErrors.New(dErrors.CodeInvariantViolation, "time must be a valid time of day")
	case e.Description == "":
		return dErrors.New(dErrors.CodeInvariantViolation, "duty description is required")
	case len(e.Description) > MaxDescriptionLength:
		return dErrors.New(dErrors.CodeInvariantViolation, "duty description is too long")
	case !e.Status.IsValid():
		return dErrors.New(dErrors.CodeInvariantViolation, "status is invalid")
	}
	return nil
}

func (e *DutyEntry) IsScheduled() bool {
	return e.Status == StatusScheduled
}

// CanTransition checks the move to next without applying it.
func (e *DutyEntry) CanTransition(next Status) error {
	if !e.Status.CanTransitionTo(next) {
		return dErrors.New(dErrors.CodeInvalidState, "duty entry is "+string(e.Status)+" and cannot become "+string(next))
	}
	return nil
}

// ApplyTransition sets the status. Call CanTransition first.
func (e *DutyEntry) ApplyTransition(next Status, now time.Time) {
	e.Status = next
	e.UpdatedAt = now
}

// Transition validates and applies the move to next.
func (e *DutyEntry) Transition(next Status, now time.Time) error {
	if err := e.CanTransition(next); err != nil {
		return err
	}
	e.ApplyTransition(next, now)
	return nil
}

// Slot is the priest/date/time triple conflicts are computed over.
func (e *DutyEntry) Slot() (id.UserID, Date, ClockTime) {
	return e.PriestID, e.Date, e.Time
}
