package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"parish/internal/users/models"
	id "parish/pkg/domain"
	dErrors "parish/pkg/domain-errors"
	"parish/pkg/platform/httputil"
	"parish/pkg/requestcontext"
)

// Service defines the user operations the handler needs.
type Service interface {
	Create(ctx context.Context, req *models.CreateUserRequest) (*models.User, error)
	Get(ctx context.Context, userID id.UserID) (*models.User, error)
	ListPriests(ctx context.Context) ([]*models.User, error)
	SetStatus(ctx context.Context, userID id.UserID, status models.Status) (*models.User, error)
}

// Handler wires user directory endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the authenticated routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/users/me", h.HandleMe)
	r.Get("/priests", h.HandleListPriests)
}

// RegisterAdmin mounts operator routes. The caller applies the admin guard.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/users", h.HandleCreate)
	r.Patch("/admin/users/{id}/status", h.HandleSetStatus)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.CreateUserRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	u, err := h.service.Create(ctx, req)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to create user")
		return
	}
	httputil.WriteData(w, http.StatusCreated, "User created.", u)
}

func (h *Handler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "user not found"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.SetStatusRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	u, err := h.service.SetStatus(ctx, userID, models.Status(req.Status))
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to set user status")
		return
	}
	httputil.WriteData(w, http.StatusOK, "User status updated.", u)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	u, err := h.service.Get(ctx, userID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to load current user")
		return
	}
	httputil.WriteData(w, http.StatusOK, "", u)
}

func (h *Handler) HandleListPriests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	priests, err := h.service.ListPriests(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to list priests")
		return
	}
	if priests == nil {
		priests = []*models.User{}
	}
	httputil.WriteData(w, http.StatusOK, "", priests)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	requestID := requestcontext.RequestID(ctx)
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "error", err, "request_id", requestID)
	} else {
		h.logger.WarnContext(ctx, msg, "error", err, "request_id", requestID)
	}
	httputil.WriteError(w, err)
}
