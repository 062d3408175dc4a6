package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"parish/internal/audit"
	"parish/internal/family/metrics"
	"parish/internal/family/models"
	"parish/internal/family/rules"
	familystore "parish/internal/family/store/family"
	invitationstore "parish/internal/family/store/invitation"
	memberstore "parish/internal/family/store/member"
	"parish/internal/notification"
	usermodels "parish/internal/users/models"
	userstore "parish/internal/users/store/user"
	id "parish/pkg/domain"
	dErrors "parish/pkg/domain-errors"
	"parish/pkg/requestcontext"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n notification.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) to(userID id.UserID) []notification.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notification.Kind
	for _, n := range r.sent {
		if n.RecipientID == userID {
			out = append(out, n.Kind)
		}
	}
	return out
}

type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	users    *userstore.InMemoryStore
	members  *memberstore.InMemoryStore
	audits   *audit.MemoryStore
	notifier *recordingNotifier
	metrics  *metrics.Metrics
	svc      *Service

	a      *usermodels.User
	b      *usermodels.User
	c      *usermodels.User
	priest *usermodels.User
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 10, 20, 8, 0, 0, 0, time.UTC))
	s.users = userstore.NewInMemoryStore()
	s.members = memberstore.NewInMemoryStore()
	s.audits = audit.NewMemoryStore()
	s.notifier = &recordingNotifier{}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.svc = New(Stores{
		Families:    familystore.NewInMemoryStore(),
		Invitations: invitationstore.NewInMemoryStore(),
		Members:     s.members,
		Users:       s.users,
	},
		WithAuditPublisher(audit.NewPublisher(s.audits)),
		WithNotifier(s.notifier),
		WithMetrics(s.metrics),
	)

	s.a = s.seedUser("a@example.org", usermodels.Roles{})
	s.b = s.seedUser("b@example.org", usermodels.Roles{})
	s.c = s.seedUser("c@example.org", usermodels.Roles{})
	s.priest = s.seedUser("fr.john@parish.org", usermodels.Roles{IsPriest: true})
}

func (s *ServiceSuite) seedUser(email string, roles usermodels.Roles) *usermodels.User {
	u, err := usermodels.NewUser(id.NewUserID(), email, "Test", "User", roles, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(context.Background(), u))
	return u
}

func (s *ServiceSuite) reload(userID id.UserID) *usermodels.User {
	u, err := s.users.FindByID(context.Background(), userID)
	s.Require().NoError(err)
	return u
}

func (s *ServiceSuite) createFamily(head *usermodels.User) *models.View {
	v, err := s.svc.Create(s.ctx, head.ID, &models.CreateFamilyRequest{Name: "  Novak  "})
	s.Require().NoError(err)
	return v
}

func (s *ServiceSuite) invite(from, to *usermodels.User, rel string) *models.Invitation {
	inv, err := s.svc.Invite(s.ctx, from.ID, &models.InviteRequest{InviteeID: to.ID.String(), Relationship: rel})
	s.Require().NoError(err)
	return inv
}

func (s *ServiceSuite) TestCreate() {
	s.Run("actor becomes head", func() {
		v := s.createFamily(s.a)
		s.Equal("Novak", v.Family.Name)
		s.Require().Len(v.Members, 1)

		head := s.reload(s.a.ID)
		s.True(head.IsFamilyHead)
		s.Equal(usermodels.FamilyRoleHead, head.FamilyRole)
		s.True(head.InFamily(v.Family.ID))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.FamiliesCreated))
	})

	s.Run("second family is refused", func() {
		_, err := s.svc.Create(s.ctx, s.a.ID, &models.CreateFamilyRequest{Name: "Again"})
		s.True(dErrors.HasCode(err, dErrors.CodeRuleViolation))
	})

	s.Run("priests cannot create families", func() {
		_, err := s.svc.Create(s.ctx, s.priest.ID, &models.CreateFamilyRequest{Name: "Clergy"})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Nil(s.reload(s.priest.ID).FamilyID)
	})

	s.Run("blank name fails validation", func() {
		_, err := s.svc.Create(s.ctx, s.b.ID, &models.CreateFamilyRequest{Name: "  "})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(dErrors.FieldNames(err), "name")
	})
}

func (s *ServiceSuite) TestUpdate() {
	v := s.createFamily(s.a)
	s.invite(s.a, s.b, "spouse")
	inv, err := s.svc.ListInvitations(s.ctx, s.b.ID)
	s.Require().NoError(err)
	_, err = s.svc.Accept(s.ctx, s.b.ID, inv[0].ID)
	s.Require().NoError(err)

	phone := "+385 1 555"
	f, err := s.svc.Update(s.ctx, s.a.ID, &models.UpdateFamilyRequest{Phone: &phone})
	s.Require().NoError(err)
	s.Equal(phone, f.Phone)
	s.Equal(v.Family.Name, f.Name)

	_, err = s.svc.Update(s.ctx, s.b.ID, &models.UpdateFamilyRequest{Phone: &phone})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.svc.Update(s.ctx, s.c.ID, &models.UpdateFamilyRequest{Phone: &phone})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// A invites B as spouse, A invites C as child, B accepts, C accepts.
func (s *ServiceSuite) TestInviteAndAcceptBuildsRelationships() {
	v := s.createFamily(s.a)
	toB := s.invite(s.a, s.b, "spouse")
	toC := s.invite(s.a, s.c, "child")

	s.Contains(s.notifier.to(s.b.ID), notification.KindFamilyInvitation)
	s.Equal(2.0, testutil.ToFloat64(s.metrics.InvitationsSent))

	accepted, err := s.svc.Accept(s.ctx, s.b.ID, toB.ID)
	s.Require().NoError(err)
	s.Equal(models.InvitationAccepted, accepted.Status)
	s.NotNil(accepted.RespondedAt)
	_, err = s.svc.Accept(s.ctx, s.c.ID, toC.ID)
	s.Require().NoError(err)

	for _, u := range []*usermodels.User{s.b, s.c} {
		got := s.reload(u.ID)
		s.True(got.InFamily(v.Family.ID))
		s.Equal(usermodels.FamilyRoleMember, got.FamilyRole)
		s.False(got.IsFamilyHead)
	}

	rows, err := s.members.ListByFamily(context.Background(), v.Family.ID)
	s.Require().NoError(err)
	s.Len(rows, 4)
	rels := map[[2]id.UserID]models.Relationship{}
	for _, m := range rows {
		rels[[2]id.UserID{m.UserID, m.RelatedUserID}] = m.Relationship
	}
	s.Equal(models.RelationshipSpouse, rels[[2]id.UserID{s.a.ID, s.b.ID}])
	s.Equal(models.RelationshipSpouse, rels[[2]id.UserID{s.b.ID, s.a.ID}])
	s.Equal(models.RelationshipChild, rels[[2]id.UserID{s.a.ID, s.c.ID}])
	s.Equal(models.RelationshipChild, rels[[2]id.UserID{s.c.ID, s.a.ID}])

	s.Contains(s.notifier.to(s.a.ID), notification.KindInvitationAccepted)
	s.Equal(2.0, testutil.ToFloat64(s.metrics.InvitationsAnswered.WithLabelValues("accepted")))

	view, err := s.svc.Get(s.ctx, s.c.ID)
	s.Require().NoError(err)
	s.Len(view.Members, 3)
	s.Len(view.Relationships, 4)
}

func (s *ServiceSuite) TestAcceptTwice() {
	v := s.createFamily(s.a)
	inv := s.invite(s.a, s.b, "sibling")
	_, err := s.svc.Accept(s.ctx, s.b.ID, inv.ID)
	s.Require().NoError(err)

	_, err = s.svc.Accept(s.ctx, s.b.ID, inv.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	s.Equal(rules.ReasonAlreadyResponded, dErrors.Message(err))

	rows, err := s.members.ListByFamily(context.Background(), v.Family.ID)
	s.Require().NoError(err)
	s.Len(rows, 2)
}

func (s *ServiceSuite) TestInviteRefusals() {
	s.createFamily(s.a)
	s.createFamily(s.c)

	cases := []struct {
		name string
		from id.UserID
		req  *models.InviteRequest
		code dErrors.Code
	}{
		{"non head", s.b.ID, &models.InviteRequest{InviteeID: s.priest.ID.String(), Relationship: "other"}, dErrors.CodeForbidden},
		{"priest invitee", s.a.ID, &models.InviteRequest{InviteeID: s.priest.ID.String(), Relationship: "other"}, dErrors.CodeRuleViolation},
		{"invitee in another family", s.a.ID, &models.InviteRequest{InviteeEmail: "c@example.org", Relationship: "sibling"}, dErrors.CodeRuleViolation},
		{"self", s.a.ID, &models.InviteRequest{InviteeID: s.a.ID.String(), Relationship: "other"}, dErrors.CodeValidation},
		{"unknown email", s.a.ID, &models.InviteRequest{InviteeEmail: "nobody@example.org", Relationship: "other"}, dErrors.CodeValidation},
		{"bad relationship", s.a.ID, &models.InviteRequest{InviteeID: s.b.ID.String(), Relationship: "cousin-ish"}, dErrors.CodeValidation},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.svc.Invite(s.ctx, tc.from, tc.req)
			s.Require().Error(err)
			s.Equal(tc.code, dErrors.CodeOf(err))
		})
	}

	pending, err := s.svc.ListInvitations(s.ctx, s.priest.ID)
	s.Require().NoError(err)
	s.Empty(pending)
}

func (s *ServiceSuite) TestDuplicatePendingInvitation() {
	s.createFamily(s.a)
	s.invite(s.a, s.b, "spouse")
	_, err := s.svc.Invite(s.ctx, s.a.ID, &models.InviteRequest{InviteeEmail: "b@example.org", Relationship: "spouse"})
	s.True(dErrors.HasCode(err, dErrors.CodeRuleViolation))
	s.Equal(reasonAlreadyInvited, dErrors.Message(err))
}

func (s *ServiceSuite) TestRejectAndForeignInvitation() {
	s.createFamily(s.a)
	inv := s.invite(s.a, s.b, "sibling")

	_, err := s.svc.Accept(s.ctx, s.c.ID, inv.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	rejected, err := s.svc.Reject(s.ctx, s.b.ID, inv.ID)
	s.Require().NoError(err)
	s.Equal(models.InvitationRejected, rejected.Status)
	s.Nil(s.reload(s.b.ID).FamilyID)
	s.Contains(s.notifier.to(s.a.ID), notification.KindInvitationRejected)

	_, err = s.svc.Accept(s.ctx, s.b.ID, inv.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *ServiceSuite) TestAcceptAfterJoiningElsewhere() {
	s.createFamily(s.a)
	inv := s.invite(s.a, s.b, "sibling")
	s.createFamily(s.b)

	_, err := s.svc.Accept(s.ctx, s.b.ID, inv.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeRuleViolation))
	s.Equal(rules.ReasonOtherFamily, dErrors.Message(err))
}

func (s *ServiceSuite) TestRemoveMember() {
	v := s.createFamily(s.a)
	inv := s.invite(s.a, s.b, "spouse")
	_, err := s.svc.Accept(s.ctx, s.b.ID, inv.ID)
	s.Require().NoError(err)

	s.Run("members cannot remove", func() {
		err := s.svc.RemoveMember(s.ctx, s.b.ID, s.a.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("head cannot remove themselves", func() {
		err := s.svc.RemoveMember(s.ctx, s.a.ID, s.a.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Equal(rules.ReasonRemoveSelf, dErrors.Message(err))
	})

	s.Run("head removes a member", func() {
		s.Require().NoError(s.svc.RemoveMember(s.ctx, s.a.ID, s.b.ID))
		s.Nil(s.reload(s.b.ID).FamilyID)
		rows, err := s.members.ListByFamily(context.Background(), v.Family.ID)
		s.Require().NoError(err)
		s.Empty(rows)
		s.Contains(s.notifier.to(s.b.ID), notification.KindMemberRemoved)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.MembersDeparted.WithLabelValues("removed")))
	})
}

func (s *ServiceSuite) TestLeave() {
	v := s.createFamily(s.a)
	inv := s.invite(s.a, s.b, "child")
	_, err := s.svc.Accept(s.ctx, s.b.ID, inv.ID)
	s.Require().NoError(err)

	err = s.svc.Leave(s.ctx, s.a.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeRuleViolation))
	s.Equal(rules.ReasonHeadNotAlone, dErrors.Message(err))

	s.Require().NoError(s.svc.Leave(s.ctx, s.b.ID))
	s.Nil(s.reload(s.b.ID).FamilyID)

	s.Require().NoError(s.svc.Leave(s.ctx, s.a.ID))
	s.Nil(s.reload(s.a.ID).FamilyID)
	_, err = s.svc.Get(s.ctx, s.a.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	var dissolved bool
	for _, ev := range s.audits.All() {
		if ev.Action == string(audit.EventFamilyDissolved) {
			dissolved = true
		}
	}
	s.True(dissolved, "family %s should be dissolved", v.Family.ID)

	err = s.svc.Leave(s.ctx, s.c.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *ServiceSuite) TestSentInvitations() {
	s.createFamily(s.a)
	s.invite(s.a, s.b, "spouse")

	sent, err := s.svc.ListSentInvitations(s.ctx, s.a.ID)
	s.Require().NoError(err)
	s.Len(sent, 1)

	_, err = s.svc.ListSentInvitations(s.ctx, s.b.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}
