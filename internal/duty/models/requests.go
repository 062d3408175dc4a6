package models

import (
	"strings"

	id "parish/pkg/domain"
	"parish/pkg/platform/validation"
)

// ScheduleRequest creates a duty entry.
type ScheduleRequest struct {
	PriestID    string `json:"priest_id" validate:"required,uuid"`
	Date        string `json:"date" validate:"required,isodate"`
	Time        string `json:"time" validate:"required,hhmm"`
	Description string `json:"duty_description" validate:"notblank,max=255"`
	Notes       string `json:"notes" validate:"max=2000"`
}

func (r *ScheduleRequest) Normalize() {
	r.PriestID = strings.TrimSpace(r.PriestID)
	r.Date = strings.TrimSpace(r.Date)
	r.Time = strings.TrimSpace(r.Time)
	r.Description = strings.TrimSpace(r.Description)
	r.Notes = strings.TrimSpace(r.Notes)
}

func (r *ScheduleRequest) Validate() error {
	return validation.Struct(r)
}

// Slot parses the validated priest, date and time.
func (r *ScheduleRequest) Slot() (id.UserID, Date, ClockTime, error) {
	return parseSlot(r.PriestID, r.Date, r.Time)
}

// UpdateRequest partially updates a scheduled entry. Nil fields are unchanged.
type UpdateRequest struct {
	PriestID    *string `json:"priest_id" validate:"omitempty,uuid"`
	Date        *string `json:"date" validate:"omitempty,isodate"`
	Time        *string `json:"time" validate:"omitempty,hhmm"`
	Description *string `json:"duty_description" validate:"omitempty,notblank,max=255"`
	Notes       *string `json:"notes" validate:"omitempty,max=2000"`
}

func (r *UpdateRequest) Normalize() {
	for _, f := range []*string{r.PriestID, r.Date, r.Time, r.Description, r.Notes} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}

func (r *UpdateRequest) Validate() error {
	if r.Description != nil && *r.Description == "" {
		return validation.Field("duty_description", "duty_description cannot be blank")
	}
	return validation.Struct(r)
}

// IsEmpty reports whether the request changes nothing.
func (r *UpdateRequest) IsEmpty() bool {
	return r.PriestID == nil && r.Date == nil && r.Time == nil && r.Description == nil && r.Notes == nil
}

// MovesSlot reports whether the request touches priest, date or time.
func (r *UpdateRequest) MovesSlot() bool {
	return r.PriestID != nil || r.Date != nil || r.Time != nil
}

// CheckRequest asks whether a slot is free without writing anything.
type CheckRequest struct {
	PriestID       string `json:"priest_id" validate:"required,uuid"`
	Date           string `json:"date" validate:"required,isodate"`
	Time           string `json:"time" validate:"required,hhmm"`
	ExcludeEntryID string `json:"exclude_entry_id" validate:"omitempty,uuid"`
}

func (r *CheckRequest) Normalize() {
	r.PriestID = strings.TrimSpace(r.PriestID)
	r.Date = strings.TrimSpace(r.Date)
	r.Time = strings.TrimSpace(r.Time)
	r.ExcludeEntryID = strings.TrimSpace(r.ExcludeEntryID)
}

func (r *CheckRequest) Validate() error {
	return validation.Struct(r)
}

// Slot parses the validated priest, date and time.
func (r *CheckRequest) Slot() (id.UserID, Date, ClockTime, error) {
	return parseSlot(r.PriestID, r.Date, r.Time)
}

// Exclude parses the optional entry to skip.
func (r *CheckRequest) Exclude() (*id.DutyEntryID, error) {
	if r.ExcludeEntryID == "" {
		return nil, nil
	}
	entryID, err := id.ParseDutyEntryID(r.ExcludeEntryID)
	if err != nil {
		return nil, validation.Field("exclude_entry_id", "exclude_entry_id must be a valid UUID")
	}
	return &entryID, nil
}

// ListFilter narrows a priest calendar query. Zero dates are open bounds.
type ListFilter struct {
	From   Date
	To     Date
	Status Status
}

func parseSlot(priest, date, at string) (id.UserID, Date, ClockTime, error) {
	priestID, err := id.ParseUserID(priest)
	if err != nil {
		return id.UserID{}, Date{}, 0, validation.Field("priest_id", "priest_id must be a valid UUID")
	}
	d, err := ParseDate(date)
	if err != nil {
		return id.UserID{}, Date{}, 0, validation.Field("date", "date must be a date in YYYY-MM-DD format")
	}
	t, err := ParseClockTime(at)
	if err != nil {
		return id.UserID{}, Date{}, 0, validation.Field("time", "time must be a time in HH:MM format")
	}
	return priestID, d, t, nil
}
