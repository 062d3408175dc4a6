// Package checker decides whether a priest can take a duty at a given date
// and time. It is a pure read over the priest's scheduled entries for that
// date and never writes.
package checker

import (
	"context"
	"fmt"
	"slices"
	"time"

	"parish/internal/duty/models"
	id "parish/pkg/domain"
	dErrors "parish/pkg/domain-errors"
)

// Mode selects how the overlap window is applied.
type Mode string

const (
	// ModeSymmetric flags any entry within the window on either side.
	ModeSymmetric Mode = "symmetric"
	// ModeLegacy flags only entries that started less than a window before
	// the requested time.
	ModeLegacy Mode = "legacy"
)

// DefaultWindow is the minimum spacing between two duties of one priest.
const DefaultWindow = time.Hour

// Kind classifies a conflict.
type Kind string

const (
	KindNone    Kind = ""
	KindExact   Kind = "exact"
	KindOverlap Kind = "overlap"
)

const exactReason = "Priest already has a duty scheduled at this exact time."

// Policy is the overlap rule.
type Policy struct {
	Window time.Duration
	Mode   Mode
}

// DefaultPolicy is a one hour symmetric window.
func DefaultPolicy() Policy {
	return Policy{Window: DefaultWindow, Mode: ModeSymmetric}
}

// ParseMode validates a configured mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSymmetric, ModeLegacy:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown overlap mode %q", s)
}

// Request is one availability question.
type Request struct {
	PriestID       id.UserID
	Date           models.Date
	Time           models.ClockTime
	ExcludeEntryID *id.DutyEntryID
}

// Result is the outcome of a check. Reason is set only on conflict.
type Result struct {
	Conflict           bool            `json:"conflict"`
	Kind               Kind            `json:"kind,omitempty"`
	Reason             string          `json:"reason,omitempty"`
	ConflictingEntryID *id.DutyEntryID `json:"conflicting_entry_id,omitempty"`
}

// EntryReader loads scheduled entries for one priest on one date.
type EntryReader interface {
	ListScheduled(ctx context.Context, priestID id.UserID, date models.Date) ([]*models.DutyEntry, error)
}

// Checker runs the conflict rule against a store.
type Checker struct {
	entries EntryReader
	policy  Policy
}

func New(entries EntryReader, policy Policy) *Checker {
	if policy.Window <= 0 {
		policy.Window = DefaultWindow
	}
	if policy.Mode == "" {
		policy.Mode = ModeSymmetric
	}
	return &Checker{entries: entries, policy: policy}
}

// Policy returns the active overlap policy.
func (c *Checker) Policy() Policy {
	return c.policy
}

// Check reports whether req collides with an existing scheduled entry. The
// error is reserved for store failures.
func (c *Checker) Check(ctx context.Context, req Request) (Result, error) {
	return c.CheckWith(ctx, c.entries, req)
}

// CheckWith runs the check against reader, typically a store bound to the
// caller's transaction.
func (c *Checker) CheckWith(ctx context.Context, reader EntryReader, req Request) (Result, error) {
	entries, err := reader.ListScheduled(ctx, req.PriestID, req.Date)
	if err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load duty entries")
	}
	return Evaluate(c.policy, entries, req.Time, req.ExcludeEntryID), nil
}

// Evaluate applies policy to entries already narrowed to one priest and
// date. An exact match wins over an overlap; among overlaps the earliest
// entry is reported.
func Evaluate(policy Policy, entries []*models.DutyEntry, requested models.ClockTime, exclude *id.DutyEntryID) Result {
	candidates := make([]*models.DutyEntry, 0, len(entries))
	for _, e := range entries {
		if e == nil || !e.IsScheduled() {
			continue
		}
		if exclude != nil && e.ID == *exclude {
			continue
		}
		candidates = append(candidates, e)
	}
	slices.SortFunc(candidates, func(a, b *models.DutyEntry) int {
		return a.Time.Minutes() - b.Time.Minutes()
	})

	for _, e := range candidates {
		if e.Time == requested {
			entryID := e.ID
			res := ExactConflict()
			res.ConflictingEntryID = &entryID
			return res
		}
	}
	for _, e := range candidates {
		if overlaps(policy, e.Time, requested) {
			entryID := e.ID
			return Result{
				Conflict:           true,
				Kind:               KindOverlap,
				Reason:             overlapReason(e.Time),
				ConflictingEntryID: &entryID,
			}
		}
	}
	return Result{}
}

// ExactConflict is the result for a slot already taken. Stores report it when
// their uniqueness guard fires.
func ExactConflict() Result {
	return Result{Conflict: true, Kind: KindExact, Reason: exactReason}
}

func overlaps(policy Policy, existing, requested models.ClockTime) bool {
	window := policy.Window
	if window <= 0 {
		window = DefaultWindow
	}
	if policy.Mode == ModeLegacy {
		return existing < requested && requested < existing.Add(window)
	}
	gap := requested.Sub(existing)
	if gap < 0 {
		gap = -gap
	}
	return gap < window
}

func overlapReason(existing models.ClockTime) string {
	return fmt.Sprintf("Priest has another duty at %s that overlaps with the requested time.", existing)
}
