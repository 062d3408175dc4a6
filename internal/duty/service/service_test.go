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
	"parish/internal/duty/checker"
	"parish/internal/duty/metrics"
	"parish/internal/duty/models"
	entrystore "parish/internal/duty/store/entry"
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

func (r *recordingNotifier) kinds() []notification.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notification.Kind, 0, len(r.sent))
	for _, n := range r.sent {
		out = append(out, n.Kind)
	}
	return out
}

type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	users    *userstore.InMemoryStore
	entries  *entrystore.InMemoryStore
	audits   *audit.MemoryStore
	notifier *recordingNotifier
	metrics  *metrics.Metrics
	svc      *Service

	staff       *usermodels.User
	priest      *usermodels.User
	otherPriest *usermodels.User
	parishioner *usermodels.User
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	now := time.Date(2026, 10, 20, 8, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), now)
	s.users = userstore.NewInMemoryStore()
	s.entries = entrystore.NewInMemoryStore()
	s.audits = audit.NewMemoryStore()
	s.notifier = &recordingNotifier{}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.svc = New(s.entries, s.users,
		WithAuditPublisher(audit.NewPublisher(s.audits)),
		WithNotifier(s.notifier),
		WithMetrics(s.metrics),
	)

	s.staff = s.seedUser("office@parish.org", usermodels.Roles{IsStaff: true})
	s.priest = s.seedUser("fr.john@parish.org", usermodels.Roles{IsPriest: true})
	s.otherPriest = s.seedUser("fr.mark@parish.org", usermodels.Roles{IsPriest: true})
	s.parishioner = s.seedUser("anna@example.org", usermodels.Roles{})
}

func (s *ServiceSuite) seedUser(email string, roles usermodels.Roles) *usermodels.User {
	u, err := usermodels.NewUser(id.NewUserID(), email, "Test", "User", roles, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(context.Background(), u))
	return u
}

func (s *ServiceSuite) scheduleReq(priestID id.UserID, date, at string) *models.ScheduleRequest {
	return &models.ScheduleRequest{PriestID: priestID.String(), Date: date, Time: at, Description: "Holy Mass"}
}

func (s *ServiceSuite) mustSchedule(priestID id.UserID, date, at string) *models.DutyEntry {
	e, err := s.svc.Schedule(s.ctx, s.staff.ID, s.scheduleReq(priestID, date, at))
	s.Require().NoError(err)
	return e
}

func (s *ServiceSuite) TestSchedule() {
	s.Run("creates a scheduled entry and notifies the priest", func() {
		e := s.mustSchedule(s.priest.ID, "2026-11-01", "09:00")
		s.Equal(models.StatusScheduled, e.Status)
		s.Equal(s.staff.ID, e.CreatedBy)
		s.Contains(s.notifier.kinds(), notification.KindDutyAssigned)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.DutiesScheduled))
	})

	s.Run("exact time is rejected with the exact reason", func() {
		_, err := s.svc.Schedule(s.ctx, s.staff.ID, s.scheduleReq(s.priest.ID, "2026-11-01", "09:00"))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeRuleViolation))
		s.Equal("Priest already has a duty scheduled at this exact time.", dErrors.Message(err))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.ConflictsRejected.WithLabelValues("exact")))
	})

	s.Run("overlap is rejected naming the other duty", func() {
		_, err := s.svc.Schedule(s.ctx, s.staff.ID, s.scheduleReq(s.priest.ID, "2026-11-01", "09:30"))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeRuleViolation))
		s.Equal("Priest has another duty at 09:00 that overlaps with the requested time.", dErrors.Message(err))
		s.Equal([]string{"time"}, dErrors.FieldNames(err))
	})

	s.Run("a free slot later that day succeeds", func() {
		s.mustSchedule(s.priest.ID, "2026-11-01", "11:00")
	})

	s.Run("another priest at the same time succeeds", func() {
		s.mustSchedule(s.otherPriest.ID, "2026-11-01", "09:00")
	})
}

func (s *ServiceSuite) TestScheduleRejections() {
	tests := []struct {
		name   string
		actor  func() id.UserID
		req    func() *models.ScheduleRequest
		code   dErrors.Code
		fields []string
	}{
		{
			name:  "parishioner cannot schedule",
			actor: func() id.UserID { return s.parishioner.ID },
			req:   func() *models.ScheduleRequest { return s.scheduleReq(s.priest.ID, "2026-11-01", "09:00") },
			code:  dErrors.CodeForbidden,
		},
		{
			name:   "non-priest is a priest_id field error",
			actor:  func() id.UserID { return s.staff.ID },
			req:    func() *models.ScheduleRequest { return s.scheduleReq(s.parishioner.ID, "2026-11-01", "09:00") },
			code:   dErrors.CodeValidation,
			fields: []string{"priest_id"},
		},
		{
			name:   "unknown priest is a priest_id field error",
			actor:  func() id.UserID { return s.staff.ID },
			req:    func() *models.ScheduleRequest { return s.scheduleReq(id.NewUserID(), "2026-11-01", "09:00") },
			code:   dErrors.CodeValidation,
			fields: []string{"priest_id"},
		},
		{
			name:   "past date",
			actor:  func() id.UserID { return s.staff.ID },
			req:    func() *models.ScheduleRequest { return s.scheduleReq(s.priest.ID, "2026-10-19", "09:00") },
			code:   dErrors.CodeValidation,
			fields: []string{"date"},
		},
		{
			name:  "malformed input",
			actor: func() id.UserID { return s.staff.ID },
			req: func() *models.ScheduleRequest {
				return &models.ScheduleRequest{PriestID: s.priest.ID.String(), Date: "tomorrow", Time: "9"}
			},
			code:   dErrors.CodeValidation,
			fields: []string{"date", "duty_description", "time"},
		},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.svc.Schedule(s.ctx, tt.actor(), tt.req())
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, tt.code), "got %v", err)
			if tt.fields != nil {
				s.Equal(tt.fields, dErrors.FieldNames(err))
			}
		})
	}
}

func (s *ServiceSuite) TestScheduleToday() {
	s.mustSchedule(s.priest.ID, "2026-10-20", "18:00")
}

func (s *ServiceSuite) TestScheduleUsesParishTimezone() {
	// 08:00 UTC on 2026-10-20 is already 2026-10-21 in UTC+18.
	svc := New(s.entries, s.users, WithLocation(time.FixedZone("far-east", 18*60*60)))
	_, err := svc.Schedule(s.ctx, s.staff.ID, s.scheduleReq(s.priest.ID, "2026-10-20", "09:00"))
	s.Require().Error(err)
	s.Equal([]string{"date"}, dErrors.FieldNames(err))
}

func (s *ServiceSuite) TestConcurrentSchedulesOfOneSlot() {
	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.Schedule(s.ctx, s.staff.ID, s.scheduleReq(s.priest.ID, "2026-11-02", "10:00"))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		s.True(dErrors.HasCode(err, dErrors.CodeRuleViolation))
	}
	s.Equal(1, succeeded)

	entries, err := s.entries.ListScheduled(s.ctx, s.priest.ID, models.MustDate("2026-11-02"))
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *ServiceSuite) TestUpdate() {
	nine := s.mustSchedule(s.priest.ID, "2026-11-01", "09:00")
	s.mustSchedule(s.priest.ID, "2026-11-01", "11:00")

	s.Run("editing description alone keeps the slot", func() {
		desc := "Solemn Mass"
		e, err := s.svc.Update(s.ctx, s.staff.ID, nine.ID, &models.UpdateRequest{Description: &desc})
		s.Require().NoError(err)
		s.Equal("Solemn Mass", e.Description)
		s.Equal("09:00", e.Time.String())
	})

	s.Run("moving within its own window excludes itself", func() {
		at := "09:15"
		e, err := s.svc.Update(s.ctx, s.staff.ID, nine.ID, &models.UpdateRequest{Time: &at})
		s.Require().NoError(err)
		s.Equal("09:15", e.Time.String())
	})

	s.Run("moving next to another duty conflicts", func() {
		at := "10:30"
		_, err := s.svc.Update(s.ctx, s.staff.ID, nine.ID, &models.UpdateRequest{Time: &at})
		s.Require().Error(err)
		s.Equal("Priest has another duty at 11:00 that overlaps with the requested time.", dErrors.Message(err))
	})

	s.Run("reassigning to another priest checks their calendar", func() {
		s.mustSchedule(s.otherPriest.ID, "2026-11-01", "09:00")
		other := s.otherPriest.ID.String()
		_, err := s.svc.Update(s.ctx, s.staff.ID, nine.ID, &models.UpdateRequest{PriestID: &other})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeRuleViolation))

		date := "2026-11-03"
		e, err := s.svc.Update(s.ctx, s.staff.ID, nine.ID, &models.UpdateRequest{PriestID: &other, Date: &date})
		s.Require().NoError(err)
		s.Equal(s.otherPriest.ID, e.PriestID)
	})

	s.Run("terminal entries cannot be edited", func() {
		_, err := s.svc.Cancel(s.ctx, s.staff.ID, nine.ID)
		s.Require().NoError(err)
		notes := "late"
		_, err = s.svc.Update(s.ctx, s.staff.ID, nine.ID, &models.UpdateRequest{Notes: &notes})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *ServiceSuite) TestTransitions() {
	e := s.mustSchedule(s.priest.ID, "2026-11-01", "09:00")

	s.Run("parishioner cannot cancel", func() {
		_, err := s.svc.Cancel(s.ctx, s.parishioner.ID, e.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("the assigned priest completes their own duty", func() {
		done, err := s.svc.Complete(s.ctx, s.priest.ID, e.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusCompleted, done.Status)
	})

	s.Run("completed is terminal", func() {
		_, err := s.svc.Cancel(s.ctx, s.staff.ID, e.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("completed duties no longer block the slot", func() {
		s.mustSchedule(s.priest.ID, "2026-11-01", "09:00")
	})
}

// reassigningStore runs onFirstRead once, right after the first FindByID,
// to interleave another writer between an unlocked read and the locked one.
type reassigningStore struct {
	*entrystore.InMemoryStore
	onFirstRead func()
}

func (r *reassigningStore) FindByID(ctx context.Context, entryID id.DutyEntryID) (*models.DutyEntry, error) {
	e, err := r.InMemoryStore.FindByID(ctx, entryID)
	if hook := r.onFirstRead; hook != nil {
		r.onFirstRead = nil
		hook()
	}
	return e, err
}

func (s *ServiceSuite) TestCompleteAfterReassignmentConflicts() {
	store := &reassigningStore{InMemoryStore: s.entries}
	svc := New(store, s.users, WithAuditPublisher(audit.NewPublisher(s.audits)))
	e, err := svc.Schedule(s.ctx, s.staff.ID, s.scheduleReq(s.priest.ID, "2026-11-01", "09:00"))
	s.Require().NoError(err)

	other := s.otherPriest.ID.String()
	store.onFirstRead = func() {
		_, err := svc.Update(s.ctx, s.staff.ID, e.ID, &models.UpdateRequest{PriestID: &other})
		s.Require().NoError(err)
	}

	_, err = svc.Complete(s.ctx, s.priest.ID, e.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict), "got %v", err)

	stored, err := s.entries.FindByID(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(s.otherPriest.ID, stored.PriestID)
	s.Equal(models.StatusScheduled, stored.Status)
}

func (s *ServiceSuite) TestCancelFreesSlot() {
	e := s.mustSchedule(s.priest.ID, "2026-11-01", "09:00")
	_, err := s.svc.Cancel(s.ctx, s.staff.ID, e.ID)
	s.Require().NoError(err)
	s.Contains(s.notifier.kinds(), notification.KindDutyCancelled)
	s.mustSchedule(s.priest.ID, "2026-11-01", "09:30")
}

func (s *ServiceSuite) TestDelete() {
	e := s.mustSchedule(s.priest.ID, "2026-11-01", "09:00")
	s.Require().NoError(s.svc.Delete(s.ctx, s.staff.ID, e.ID))
	_, err := s.svc.Get(s.ctx, e.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	err = s.svc.Delete(s.ctx, s.staff.ID, e.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestCheckAvailability() {
	e := s.mustSchedule(s.priest.ID, "2026-11-01", "09:00")

	res, err := s.svc.CheckAvailability(s.ctx, &models.CheckRequest{PriestID: s.priest.ID.String(), Date: "2026-11-01", Time: "09:30"})
	s.Require().NoError(err)
	s.True(res.Conflict)
	s.Equal(checker.KindOverlap, res.Kind)

	res, err = s.svc.CheckAvailability(s.ctx, &models.CheckRequest{
		PriestID: s.priest.ID.String(), Date: "2026-11-01", Time: "09:30", ExcludeEntryID: e.ID.String(),
	})
	s.Require().NoError(err)
	s.False(res.Conflict)

	_, err = s.svc.CheckAvailability(s.ctx, &models.CheckRequest{PriestID: s.parishioner.ID.String(), Date: "2026-11-01", Time: "09:30"})
	s.Equal([]string{"priest_id"}, dErrors.FieldNames(err))
}

func (s *ServiceSuite) TestLegacyPolicy() {
	svc := New(s.entries, s.users, WithPolicy(checker.Policy{Window: time.Hour, Mode: checker.ModeLegacy}))
	_, err := svc.Schedule(s.ctx, s.staff.ID, s.scheduleReq(s.priest.ID, "2026-11-01", "09:00"))
	s.Require().NoError(err)

	_, err = svc.Schedule(s.ctx, s.staff.ID, s.scheduleReq(s.priest.ID, "2026-11-01", "08:30"))
	s.NoError(err, "legacy mode only looks forward from existing duties")
	s.Equal(checker.ModeLegacy, svc.Policy().Mode)
}

func (s *ServiceSuite) TestListForPriest() {
	s.mustSchedule(s.priest.ID, "2026-11-01", "09:00")
	s.mustSchedule(s.priest.ID, "2026-11-08", "09:00")

	got, err := s.svc.ListForPriest(s.ctx, s.priest.ID, models.ListFilter{From: models.MustDate("2026-11-02")})
	s.Require().NoError(err)
	s.Len(got, 1)

	_, err = s.svc.ListForPriest(s.ctx, s.priest.ID, models.ListFilter{
		From: models.MustDate("2026-11-08"), To: models.MustDate("2026-11-01"),
	})
	s.Equal([]string{"to"}, dErrors.FieldNames(err))
}

func (s *ServiceSuite) TestAuditTrail() {
	s.mustSchedule(s.priest.ID, "2026-11-01", "09:00")
	_, _ = s.svc.Schedule(s.ctx, s.staff.ID, s.scheduleReq(s.priest.ID, "2026-11-01", "09:00"))

	var actions []string
	for _, ev := range s.audits.All() {
		actions = append(actions, ev.Action)
	}
	s.Equal([]string{string(audit.EventDutyScheduled), string(audit.EventDutyConflictRejected)}, actions)
}
