//go:build integration

package entry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"parish/internal/duty/models"
	"parish/internal/duty/store/entry"
	usermodels "parish/internal/users/models"
	"parish/internal/users/store/user"
	id "parish/pkg/domain"
	"parish/pkg/platform/sentinel"
	"parish/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *entry.PostgresStore
	priest   id.UserID
	staff    id.UserID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = entry.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx,
		"family_members", "family_invitations", "duty_entries", "users", "families"))

	users := user.NewPostgres(s.postgres.DB)
	priest, err := usermodels.NewUser(id.NewUserID(), "fr.john@example.org", "John", "", usermodels.Roles{IsPriest: true}, time.Now())
	s.Require().NoError(err)
	staff, err := usermodels.NewUser(id.NewUserID(), "office@example.org", "Office", "", usermodels.Roles{IsStaff: true}, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(users.Create(ctx, priest))
	s.Require().NoError(users.Create(ctx, staff))
	s.priest, s.staff = priest.ID, staff.ID
}

func (s *PostgresStoreSuite) newEntry(date, at string) *models.DutyEntry {
	e, err := models.NewDutyEntry(id.NewDutyEntryID(), s.priest, models.MustDate(date), models.MustClockTime(at),
		"Mass", "", s.staff, time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	return e
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	e := s.newEntry("2026-11-01", "09:30")
	s.Require().NoError(s.store.Create(ctx, e))

	found, err := s.store.FindByID(ctx, e.ID)
	s.Require().NoError(err)
	s.Equal("2026-11-01", found.Date.String())
	s.Equal("09:30", found.Time.String())
	s.Equal(models.StatusScheduled, found.Status)
	s.Equal(s.staff, found.CreatedBy)
}

func (s *PostgresStoreSuite) TestScheduledSlotIsUnique() {
	ctx := context.Background()
	first := s.newEntry("2026-11-01", "09:00")
	s.Require().NoError(s.store.Create(ctx, first))
	s.ErrorIs(s.store.Create(ctx, s.newEntry("2026-11-01", "09:00")), sentinel.ErrConflict)

	first.Status = models.StatusCancelled
	s.Require().NoError(s.store.Update(ctx, first))
	s.NoError(s.store.Create(ctx, s.newEntry("2026-11-01", "09:00")))
}

func (s *PostgresStoreSuite) TestListQueries() {
	ctx := context.Background()
	for _, e := range []*models.DutyEntry{
		s.newEntry("2026-11-01", "18:00"),
		s.newEntry("2026-11-01", "07:00"),
		s.newEntry("2026-11-03", "07:00"),
	} {
		s.Require().NoError(s.store.Create(ctx, e))
	}

	scheduled, err := s.store.ListScheduled(ctx, s.priest, models.MustDate("2026-11-01"))
	s.Require().NoError(err)
	s.Require().Len(scheduled, 2)
	s.Equal("07:00", scheduled[0].Time.String())

	ranged, err := s.store.ListForPriest(ctx, s.priest, models.ListFilter{From: models.MustDate("2026-11-02")})
	s.Require().NoError(err)
	s.Len(ranged, 1)
}

func (s *PostgresStoreSuite) TestDeleteMissing() {
	s.ErrorIs(s.store.Delete(context.Background(), id.NewDutyEntryID()), sentinel.ErrNotFound)
}
