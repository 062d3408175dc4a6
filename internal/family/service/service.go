package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"

	"parish/internal/audit"
	"parish/internal/family/metrics"
	"parish/internal/family/models"
	"parish/internal/notification"
	usermodels "parish/internal/users/models"
	id "parish/pkg/domain"
	dErrors "parish/pkg/domain-errors"
	"parish/pkg/platform/sentinel"
	"parish/pkg/platform/tx"
	"parish/pkg/requestcontext"
)

var tracer = otel.Tracer("parish/internal/family")

type FamilyStore interface {
	Create(ctx context.Context, f *models.Family) error
	FindByID(ctx context.Context, familyID id.FamilyID) (*models.Family, error)
	Update(ctx context.Context, f *models.Family) error
	Delete(ctx context.Context, familyID id.FamilyID) error
}

type InvitationStore interface {
	Create(ctx context.Context, inv *models.Invitation) error
	FindByID(ctx context.Context, invitationID id.InvitationID) (*models.Invitation, error)
	FindByIDForUpdate(ctx context.Context, invitationID id.InvitationID) (*models.Invitation, error)
	FindPending(ctx context.Context, familyID id.FamilyID, inviteeID id.UserID) (*models.Invitation, error)
	Update(ctx context.Context, inv *models.Invitation) error
	ListPendingForInvitee(ctx context.Context, inviteeID id.UserID) ([]*models.Invitation, error)
	ListByFamily(ctx context.Context, familyID id.FamilyID) ([]*models.Invitation, error)
}

type MemberStore interface {
	Create(ctx context.Context, m *models.Member) error
	ListByFamily(ctx context.Context, familyID id.FamilyID) ([]*models.Member, error)
	DeleteByUser(ctx context.Context, userID id.UserID) (int, error)
}

// UserStore is the slice of the user directory membership needs.
type UserStore interface {
	FindByID(ctx context.Context, userID id.UserID) (*usermodels.User, error)
	FindByEmail(ctx context.Context, email string) (*usermodels.User, error)
	Update(ctx context.Context, u *usermodels.User) error
	ListByFamily(ctx context.Context, familyID id.FamilyID) ([]*usermodels.User, error)
	CountByFamily(ctx context.Context, familyID id.FamilyID) (int, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Notifier delivers fire-and-forget notifications.
type Notifier interface {
	Notify(ctx context.Context, n notification.Notification)
}

// Service runs the family membership use cases.
type Service struct {
	stores         Stores
	tx             StoresTx
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
func WithTx(runner StoresTx) Option {
	return func(s *Service) {
		s.tx = runner
	}
}

func New(stores Stores, opts ...Option) *Service {
	s := &Service{stores: stores}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = NewMemoryTx(stores, tx.DefaultTimeout)
	}
	return s
}

// Get returns the actor's family with its members and relationship rows.
func (s *Service) Get(ctx context.Context, actorID id.UserID) (*models.View, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.FamilyID == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "You do not belong to a family.")
	}
	return s.view(ctx, *actor.FamilyID)
}

// ListInvitations returns the pending invitations addressed to the actor.
func (s *Service) ListInvitations(ctx context.Context, actorID id.UserID) ([]*models.Invitation, error) {
	invs, err := s.stores.Invitations.ListPendingForInvitee(ctx, actorID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list invitations")
	}
	return invs, nil
}

// ListSentInvitations returns every invitation the actor's family has sent.
// Only the head may see them.
func (s *Service) ListSentInvitations(ctx context.Context, actorID id.UserID) ([]*models.Invitation, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.IsFamilyHead || actor.FamilyID == nil {
		return nil, dErrors.New(dErrors.CodeForbidden, "Only the head of a family can view sent invitations.")
	}
	invs, err := s.stores.Invitations.ListByFamily(ctx, *actor.FamilyID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list invitations")
	}
	return invs, nil
}

func (s *Service) view(ctx context.Context, familyID id.FamilyID) (*models.View, error) {
	f, err := s.stores.Families.FindByID(ctx, familyID)
	if err != nil {
		return nil, translate(err, "family not found", "failed to load family")
	}
	users, err := s.stores.Users.ListByFamily(ctx, familyID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list family users")
	}
	rows, err := s.stores.Members.ListByFamily(ctx, familyID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list family relationships")
	}
	if users == nil {
		users = []*usermodels.User{}
	}
	if rows == nil {
		rows = []*models.Member{}
	}
	return &models.View{Family: f, Members: users, Relationships: rows}, nil
}

func (s *Service) loadActor(ctx context.Context, actorID id.UserID) (*usermodels.User, error) {
	return loadActorFrom(ctx, s.stores.Users, actorID)
}

func loadActorFrom(ctx context.Context, users UserStore, actorID id.UserID) (*usermodels.User, error) {
	actor, err := users.FindByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load actor")
	}
	return actor, nil
}

func (s *Service) denied(operation string, err error) error {
	if s.metrics != nil {
		s.metrics.IncrementDenied(operation)
	}
	return err
}

func (s *Service) notify(ctx context.Context, kind notification.Kind, subject string, to *usermodels.User, data map[string]string) {
	if s.notifier == nil || to == nil {
		return
	}
	s.notifier.Notify(ctx, notification.Notification{
		RecipientID: to.ID,
		Email:       to.Email,
		Name:        to.FullName(),
		Kind:        kind,
		Subject:     subject,
		Data:        data,
	})
}

func (s *Service) logAudit(ctx context.Context, event audit.EventName, subject id.UserID, attributes ...any) {
	actor := requestcontext.UserID(ctx)
	args := append(attributes,
		"user_id", subject.String(),
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
		Category: audit.CategoryMembership,
		UserID:   subject.String(),
		Subject:  subject.String(),
		Action:   string(event),
	})
}

// translate keeps domain errors, maps ErrNotFound to notFound and wraps the
// rest as internal.
func translate(err error, notFound, internal string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, notFound)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, internal)
}
