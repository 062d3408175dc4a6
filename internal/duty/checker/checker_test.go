package checker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parish/internal/duty/models"
	id "parish/pkg/domain"
	dErrors "parish/pkg/domain-errors"
)

type stubReader struct {
	entries []*models.DutyEntry
	err     error
	calls   int
}

func (s *stubReader) ListScheduled(_ context.Context, priestID id.UserID, date models.Date) ([]*models.DutyEntry, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var out []*models.DutyEntry
	for _, e := range s.entries {
		if e.PriestID == priestID && e.Date.Equal(date) {
			out = append(out, e)
		}
	}
	return out, nil
}

func entryAt(priestID id.UserID, date, at string) *models.DutyEntry {
	return &models.DutyEntry{
		ID:          id.NewDutyEntryID(),
		PriestID:    priestID,
		Date:        models.MustDate(date),
		Time:        models.MustClockTime(at),
		Description: "Mass",
		Status:      models.StatusScheduled,
	}
}

func TestCheck_MorningMassScenario(t *testing.T) {
	priest := id.NewUserID()
	nine := entryAt(priest, "2026-11-01", "09:00")
	reader := &stubReader{entries: []*models.DutyEntry{nine}}
	c := New(reader, DefaultPolicy())
	ctx := context.Background()
	date := models.MustDate("2026-11-01")

	t.Run("same time is an exact conflict", func(t *testing.T) {
		res, err := c.Check(ctx, Request{PriestID: priest, Date: date, Time: models.MustClockTime("09:00")})
		require.NoError(t, err)
		assert.True(t, res.Conflict)
		assert.Equal(t, KindExact, res.Kind)
		assert.Equal(t, "Priest already has a duty scheduled at this exact time.", res.Reason)
		require.NotNil(t, res.ConflictingEntryID)
		assert.Equal(t, nine.ID, *res.ConflictingEntryID)
	})

	t.Run("half an hour later overlaps", func(t *testing.T) {
		res, err := c.Check(ctx, Request{PriestID: priest, Date: date, Time: models.MustClockTime("09:30")})
		require.NoError(t, err)
		assert.True(t, res.Conflict)
		assert.Equal(t, KindOverlap, res.Kind)
		assert.Equal(t, "Priest has another duty at 09:00 that overlaps with the requested time.", res.Reason)
	})

	t.Run("two hours later is free", func(t *testing.T) {
		res, err := c.Check(ctx, Request{PriestID: priest, Date: date, Time: models.MustClockTime("11:00")})
		require.NoError(t, err)
		assert.False(t, res.Conflict)
		assert.Empty(t, res.Reason)
		assert.Nil(t, res.ConflictingEntryID)
	})

	t.Run("another priest is unaffected", func(t *testing.T) {
		res, err := c.Check(ctx, Request{PriestID: id.NewUserID(), Date: date, Time: models.MustClockTime("09:00")})
		require.NoError(t, err)
		assert.False(t, res.Conflict)
	})

	t.Run("another date is unaffected", func(t *testing.T) {
		res, err := c.Check(ctx, Request{PriestID: priest, Date: date.AddDays(1), Time: models.MustClockTime("09:00")})
		require.NoError(t, err)
		assert.False(t, res.Conflict)
	})

	t.Run("excluding the entry itself clears the conflict", func(t *testing.T) {
		res, err := c.Check(ctx, Request{PriestID: priest, Date: date, Time: models.MustClockTime("09:00"), ExcludeEntryID: &nine.ID})
		require.NoError(t, err)
		assert.False(t, res.Conflict)
	})
}

func TestEvaluate_IgnoresNonScheduled(t *testing.T) {
	priest := id.NewUserID()
	cancelled := entryAt(priest, "2026-11-01", "09:00")
	cancelled.Status = models.StatusCancelled
	completed := entryAt(priest, "2026-11-01", "10:00")
	completed.Status = models.StatusCompleted

	res := Evaluate(DefaultPolicy(), []*models.DutyEntry{cancelled, completed}, models.MustClockTime("09:00"), nil)
	assert.False(t, res.Conflict)
}

func TestEvaluate_ExactBeatsOverlap(t *testing.T) {
	priest := id.NewUserID()
	early := entryAt(priest, "2026-11-01", "08:30")
	exact := entryAt(priest, "2026-11-01", "09:00")

	res := Evaluate(DefaultPolicy(), []*models.DutyEntry{early, exact}, models.MustClockTime("09:00"), nil)
	assert.Equal(t, KindExact, res.Kind)
	assert.Equal(t, exact.ID, *res.ConflictingEntryID)
}

func TestEvaluate_Modes(t *testing.T) {
	priest := id.NewUserID()
	nine := []*models.DutyEntry{entryAt(priest, "2026-11-01", "09:00")}

	tests := []struct {
		name      string
		mode      Mode
		requested string
		conflict  bool
	}{
		{"symmetric after within window", ModeSymmetric, "09:59", true},
		{"symmetric before within window", ModeSymmetric, "08:01", true},
		{"symmetric exactly one window after", ModeSymmetric, "10:00", false},
		{"symmetric exactly one window before", ModeSymmetric, "08:00", false},
		{"legacy after within window", ModeLegacy, "09:30", true},
		{"legacy before within window is allowed", ModeLegacy, "08:30", false},
		{"legacy exactly one window after", ModeLegacy, "10:00", false},
		{"legacy exact match still conflicts", ModeLegacy, "09:00", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Evaluate(Policy{Window: time.Hour, Mode: tt.mode}, nine, models.MustClockTime(tt.requested), nil)
			assert.Equal(t, tt.conflict, res.Conflict)
		})
	}
}

func TestEvaluate_SymmetricIsOrderIndependent(t *testing.T) {
	priest := id.NewUserID()
	times := []string{"07:00", "07:45", "08:15", "09:00", "09:59", "10:00", "12:30"}
	for _, a := range times {
		for _, b := range times {
			forward := Evaluate(DefaultPolicy(), []*models.DutyEntry{entryAt(priest, "2026-11-01", a)}, models.MustClockTime(b), nil)
			backward := Evaluate(DefaultPolicy(), []*models.DutyEntry{entryAt(priest, "2026-11-01", b)}, models.MustClockTime(a), nil)
			assert.Equal(t, forward.Conflict, backward.Conflict, "%s vs %s", a, b)
		}
	}
}

func TestEvaluate_CustomWindow(t *testing.T) {
	priest := id.NewUserID()
	nine := []*models.DutyEntry{entryAt(priest, "2026-11-01", "09:00")}
	policy := Policy{Window: 30 * time.Minute, Mode: ModeSymmetric}

	assert.True(t, Evaluate(policy, nine, models.MustClockTime("09:29"), nil).Conflict)
	assert.False(t, Evaluate(policy, nine, models.MustClockTime("09:30"), nil).Conflict)
}

func TestCheck_StoreFailure(t *testing.T) {
	c := New(&stubReader{err: errors.New("connection reset")}, DefaultPolicy())
	_, err := c.Check(context.Background(), Request{PriestID: id.NewUserID(), Date: models.MustDate("2026-11-01"), Time: models.MustClockTime("09:00")})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestNew_DefaultsPolicy(t *testing.T) {
	c := New(&stubReader{}, Policy{})
	assert.Equal(t, DefaultPolicy(), c.Policy())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("legacy")
	require.NoError(t, err)
	assert.Equal(t, ModeLegacy, m)

	_, err = ParseMode("sideways")
	assert.Error(t, err)
}
