package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"parish/internal/audit"
	"parish/internal/duty/checker"
	"parish/internal/duty/metrics"
	"parish/internal/duty/models"
	"parish/internal/notification"
	usermodels "parish/internal/users/models"
	id "parish/pkg/domain"
	dErrors "parish/pkg/domain-errors"
	"parish/pkg/platform/sentinel"
	"parish/pkg/platform/tx"
	"parish/pkg/platform/validation"
	"parish/pkg/requestcontext"
)

var tracer = otel.Tracer("parish/internal/duty")

// Store is the duty entry persistence port.
type Store interface {
	checker.EntryReader
	Create(ctx context.Context, e *models.DutyEntry) error
	FindByID(ctx context.Context, entryID id.DutyEntryID) (*models.DutyEntry, error)
	Update(ctx context.Context, e *models.DutyEntry) error
	Delete(ctx context.Context, entryID id.DutyEntryID) error
	ListForPriest(ctx context.Context, priestID id.UserID, filter models.ListFilter) ([]*models.DutyEntry, error)
}

// UserReader resolves actors and priests.
type UserReader interface {
	FindByID(ctx context.Context, userID id.UserID) (*usermodels.User, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Notifier delivers fire-and-forget notifications.
type Notifier interface {
	Notify(ctx context.Context, n notification.Notification)
}

// Service runs the duty calendar use cases.
type Service struct {
	entries        Store
	tx             EntryStoreTx
	users          UserReader
	checker        *checker.Checker
	policy         checker.Policy
	location       *time.Location
	logger         *slog.Logger
	auditPublisher AuditPublisher
	notifier       Notifier
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithNotifier(notifier Notifier) Option {
	return func(s *Service) {
		s.notifier = notifier
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTx replaces the default in-memory transaction runner.
func WithTx(runner EntryStoreTx) Option {
	return func(s *Service) {
		s.tx = runner
	}
}

// WithPolicy sets the overlap window and mode.
func WithPolicy(policy checker.Policy) Option {
	return func(s *Service) {
		s.policy = policy
	}
}

// WithLocation sets the parish time zone used to decide what "today" is.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

func New(entries Store, users UserReader, opts ...Option) *Service {
	s := &Service{
		entries:  entries,
		users:    users,
		policy:   checker.DefaultPolicy(),
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = NewMemoryTx(entries, tx.DefaultTimeout)
	}
	s.checker = checker.New(entries, s.policy)
	return s
}

// Policy returns the overlap policy in force.
func (s *Service) Policy() checker.Policy {
	return s.checker.Policy()
}

// Get returns one entry.
func (s *Service) Get(ctx context.Context, entryID id.DutyEntryID) (*models.DutyEntry, error) {
	e, err := s.entries.FindByID(ctx, entryID)
	if err != nil {
		return nil, translateStoreErr(err, "failed to load duty entry")
	}
	return e, nil
}

// ListForPriest returns the priest's calendar inside filter.
func (s *Service) ListForPriest(ctx context.Context, priestID id.UserID, filter models.ListFilter) ([]*models.DutyEntry, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, validation.Field("to", "to must be on or after from")
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, validation.Field("status", "status must be scheduled, completed or cancelled")
	}
	entries, err := s.entries.ListForPriest(ctx, priestID, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list duty entries")
	}
	return entries, nil
}

// CheckAvailability runs the conflict check without writing.
func (s *Service) CheckAvailability(ctx context.Context, req *models.CheckRequest) (checker.Result, error) {
	ctx, span := tracer.Start(ctx, "duty.CheckAvailability")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return checker.Result{}, err
	}
	priestID, date, at, err := req.Slot()
	if err != nil {
		return checker.Result{}, err
	}
	exclude, err := req.Exclude()
	if err != nil {
		return checker.Result{}, err
	}
	if _, err := s.requirePriest(ctx, priestID); err != nil {
		return checker.Result{}, err
	}
	return s.check(ctx, s.entries, checker.Request{PriestID: priestID, Date: date, Time: at, ExcludeEntryID: exclude})
}

func (s *Service) check(ctx context.Context, reader checker.EntryReader, req checker.Request) (checker.Result, error) {
	if s.metrics != nil {
		defer s.metrics.ObserveCheck(time.Now())
	}
	return s.checker.CheckWith(ctx, reader, req)
}

// requireManager loads the actor and checks duty management rights.
func (s *Service) requireManager(ctx context.Context, actorID id.UserID) (*usermodels.User, error) {
	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load actor")
	}
	if !actor.CanManageDuties() {
		return nil, dErrors.New(dErrors.CodeForbidden, "Only staff and administrators can manage the duty calendar.")
	}
	return actor, nil
}

// requirePriest rejects unknown, inactive and non-priest users as a field
// error on priest_id, before any conflict checking.
func (s *Service) requirePriest(ctx context.Context, priestID id.UserID) (*usermodels.User, error) {
	priest, err := s.users.FindByID(ctx, priestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, validation.Field("priest_id", "The selected priest is invalid.")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load priest")
	}
	if !priest.IsPriest || !priest.IsActive() {
		return nil, validation.Field("priest_id", "The selected priest is invalid.")
	}
	return priest, nil
}

func (s *Service) today(ctx context.Context) models.Date {
	return models.DateOf(requestcontext.Now(ctx), s.location)
}

func (s *Service) requireNotPast(ctx context.Context, date models.Date) error {
	if date.Before(s.today(ctx)) {
		return validation.Field("date", "date must be today or a future date")
	}
	return nil
}

func (s *Service) conflictError(ctx context.Context, res checker.Result, priestID id.UserID) error {
	if s.metrics != nil {
		s.metrics.IncrementConflict(string(res.Kind))
	}
	attrs := []any{"priest_id", priestID.String(), "kind", string(res.Kind)}
	if res.ConflictingEntryID != nil {
		attrs = append(attrs, "conflicting_entry_id", res.ConflictingEntryID.String())
	}
	s.logAudit(ctx, audit.EventDutyConflictRejected, priestID, res.Reason, attrs...)
	return dErrors.WithFields(dErrors.CodeRuleViolation, res.Reason, map[string][]string{"time": {res.Reason}})
}

func (s *Service) notify(ctx context.Context, kind notification.Kind, subject string, priest *usermodels.User, e *models.DutyEntry) {
	if s.notifier == nil || priest == nil {
		return
	}
	s.notifier.Notify(ctx, notification.Notification{
		RecipientID: priest.ID,
		Email:       priest.Email,
		Name:        priest.FullName(),
		Kind:        kind,
		Subject:     subject,
		Data: map[string]string{
			"entry_id":    e.ID.String(),
			"date":        e.Date.String(),
			"time":        e.Time.String(),
			"description": e.Description,
		},
	})
}

func (s *Service) logAudit(ctx context.Context, event audit.EventName, subject id.UserID, reason string, attributes ...any) {
	actor := requestcontext.UserID(ctx)
	args := append(attributes,
		"event", string(event),
		"log_type", "audit",
	)
	if !actor.IsNil() {
		args = append(args, "actor_id", actor.String())
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(event), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		Category: audit.CategoryScheduling,
		UserID:   subject.String(),
		Subject:  subject.String(),
		Action:   string(event),
		Reason:   reason,
	})
}

// translateStoreErr keeps domain errors and maps sentinels.
func translateStoreErr(err error, msg string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "duty entry not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidState, "duty entry cannot be changed in its current state")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
