//go:build integration

package invitation_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"

	"parish/internal/family/models"
	"parish/internal/family/store/family"
	"parish/internal/family/store/invitation"
	"parish/internal/platform/postgres"
	usermodels "parish/internal/users/models"
	"parish/internal/users/store/user"
	id "parish/pkg/domain"
	"parish/pkg/platform/sentinel"
	"parish/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *invitation.PostgresStore

	familyID id.FamilyID
	head     *usermodels.User
	invitee  *usermodels.User
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = invitation.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx,
		"family_members", "family_invitations", "duty_entries", "users", "families"))

	now := time.Now().UTC()
	f, err := models.NewFamily(id.NewFamilyID(), "The Smiths", "1 Church St", "", "", now)
	s.Require().NoError(err)
	s.Require().NoError(family.NewPostgres(s.postgres.DB).Create(ctx, f))
	s.familyID = f.ID

	users := user.NewPostgres(s.postgres.DB)
	s.head, err = usermodels.NewUser(id.NewUserID(), "head@example.org", "Alice", "Smith", usermodels.Roles{}, now)
	s.Require().NoError(err)
	s.head.JoinFamily(f.ID, usermodels.FamilyRoleHead, now)
	s.Require().NoError(users.Create(ctx, s.head))

	s.invitee, err = usermodels.NewUser(id.NewUserID(), "bob@example.org", "Bob", "Smith", usermodels.Roles{}, now)
	s.Require().NoError(err)
	s.Require().NoError(users.Create(ctx, s.invitee))
}

func (s *PostgresStoreSuite) invite() *models.Invitation {
	inv, err := models.NewInvitation(id.NewInvitationID(), s.familyID, s.head.ID, s.invitee.ID, models.RelationshipSibling, time.Now().UTC())
	s.Require().NoError(err)
	return inv
}

func (s *PostgresStoreSuite) TestOnePendingPerInvitee() {
	ctx := context.Background()
	first := s.invite()
	s.Require().NoError(s.store.Create(ctx, first))
	s.ErrorIs(s.store.Create(ctx, s.invite()), sentinel.ErrConflict)

	pending, err := s.store.FindPending(ctx, s.familyID, s.invitee.ID)
	s.Require().NoError(err)
	s.Equal(first.ID, pending.ID)

	s.Require().NoError(first.Respond(models.InvitationRejected, time.Now().UTC()))
	s.Require().NoError(s.store.Update(ctx, first))
	s.NoError(s.store.Create(ctx, s.invite()), "a rejected invitation can be re-sent")

	all, err := s.store.ListByFamily(ctx, s.familyID)
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *PostgresStoreSuite) TestFindByIDForUpdateRoundTrip() {
	ctx := context.Background()
	inv := s.invite()
	s.Require().NoError(s.store.Create(ctx, inv))

	err := postgres.RunInTx(ctx, s.postgres.DB, 5*time.Second, func(ctx context.Context, sqlTx *sqlx.Tx) error {
		locked, err := invitation.NewPostgresTx(sqlTx).FindByIDForUpdate(ctx, inv.ID)
		if err != nil {
			return err
		}
		if err := locked.Respond(models.InvitationAccepted, time.Now().UTC()); err != nil {
			return err
		}
		return invitation.NewPostgresTx(sqlTx).Update(ctx, locked)
	})
	s.Require().NoError(err)

	found, err := s.store.FindByID(ctx, inv.ID)
	s.Require().NoError(err)
	s.Equal(models.InvitationAccepted, found.Status)
	s.NotNil(found.RespondedAt)

	pending, err := s.store.ListPendingForInvitee(ctx, s.invitee.ID)
	s.Require().NoError(err)
	s.Empty(pending)

	_, err = s.store.FindByIDForUpdate(ctx, id.NewInvitationID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestRowLockBlocksSecondTransaction() {
	ctx := context.Background()
	inv := s.invite()
	s.Require().NoError(s.store.Create(ctx, inv))

	var blockedErr error
	err := postgres.RunInTx(ctx, s.postgres.DB, 5*time.Second, func(ctx context.Context, sqlTx *sqlx.Tx) error {
		if _, err := invitation.NewPostgresTx(sqlTx).FindByIDForUpdate(ctx, inv.ID); err != nil {
			return err
		}
		start := time.Now()
		blockedErr = postgres.RunInTx(ctx, s.postgres.DB, 200*time.Millisecond, func(ctx context.Context, other *sqlx.Tx) error {
			_, err := invitation.NewPostgresTx(other).FindByIDForUpdate(ctx, inv.ID)
			return err
		})
		s.Less(time.Since(start), 3*time.Second, "the competing statement is bounded by its transaction timeout")
		return nil
	})
	s.Require().NoError(err)
	s.Error(blockedErr, "the row stays locked until the first transaction ends")
}
