package service

import (
	"context"
	"errors"
	"log/slog"

	"parish/internal/audit"
	"parish/internal/users/models"
	id "parish/pkg/domain"
	dErrors "parish/pkg/domain-errors"
	"parish/pkg/platform/sentinel"
	"parish/pkg/requestcontext"
)

// Store is the user persistence port.
type Store interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	ListByFamily(ctx context.Context, familyID id.FamilyID) ([]*models.User, error)
	ListPriests(ctx context.Context) ([]*models.User, error)
	CountByFamily(ctx context.Context, familyID id.FamilyID) (int, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service manages the user directory.
type Service struct {
	users          Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
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

func New(users Store, opts ...Option) *Service {
	s := &Service{users: users}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a user with role flags. Emails are unique regardless of case.
func (s *Service) Create(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	u, err := models.NewUser(id.NewUserID(), req.Email, req.FirstName, req.LastName, req.Roles(), requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.Message(err))
		}
		return nil, err
	}

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.WithFields(dErrors.CodeValidation, "The given data was invalid.",
				map[string][]string{"email": {"The email has already been taken."}})
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	s.logAudit(ctx, audit.EventUserCreated, u.ID,
		"is_admin", u.IsAdmin,
		"is_staff", u.IsStaff,
		"is_priest", u.IsPriest,
	)
	return u, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, userID id.UserID) (*models.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return u, nil
}

// ListPriests returns the active priests, the choices for duty scheduling.
func (s *Service) ListPriests(ctx context.Context) ([]*models.User, error) {
	priests, err := s.users.ListPriests(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list priests")
	}
	return priests, nil
}

// SetStatus activates or deactivates an account.
func (s *Service) SetStatus(ctx context.Context, userID id.UserID, status models.Status) (*models.User, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Status == status {
		return u, nil
	}
	if err := u.SetStatus(status, requestcontext.Now(ctx)); err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "status must be active or inactive")
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user")
	}
	s.logAudit(ctx, audit.EventUserStatusChanged, u.ID, "status", string(status))
	return u, nil
}

// IsActive reports whether userID exists and is active. Unknown users are
// reported inactive.
func (s *Service) IsActive(ctx context.Context, userID id.UserID) (bool, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return u.IsActive(), nil
}

func (s *Service) logAudit(ctx context.Context, event audit.EventName, userID id.UserID, attributes ...any) {
	args := append(attributes,
		"user_id", userID.String(),
		"event", string(event),
		"log_type", "audit",
	)
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
		Category: audit.CategoryDirectory,
		UserID:   userID.String(),
		Subject:  userID.String(),
		Action:   string(event),
	})
}
