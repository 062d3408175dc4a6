package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"parish/internal/family/models"
	id "parish/pkg/domain"
	dErrors "parish/pkg/domain-errors"
	"parish/pkg/platform/httputil"
	"parish/pkg/requestcontext"
)

// Service defines the family membership operations the handler needs.
type Service interface {
	Create(ctx context.Context, actorID id.UserID, req *models.CreateFamilyRequest) (*models.View, error)
	Get(ctx context.Context, actorID id.UserID) (*models.View, error)
	Update(ctx context.Context, actorID id.UserID, req *models.UpdateFamilyRequest) (*models.Family, error)
	Invite(ctx context.Context, actorID id.UserID, req *models.InviteRequest) (*models.Invitation, error)
	ListInvitations(ctx context.Context, actorID id.UserID) ([]*models.Invitation, error)
	ListSentInvitations(ctx context.Context, actorID id.UserID) ([]*models.Invitation, error)
	Accept(ctx context.Context, actorID id.UserID, invitationID id.InvitationID) (*models.Invitation, error)
	Reject(ctx context.Context, actorID id.UserID, invitationID id.InvitationID) (*models.Invitation, error)
	RemoveMember(ctx context.Context, actorID, targetID id.UserID) error
	Leave(ctx context.Context, actorID id.UserID) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the family routes. The caller's own family is implied by
// the authenticated user.
func (h *Handler) Register(r chi.Router) {
	r.Post("/family", h.HandleCreate)
	r.Get("/family", h.HandleGet)
	r.Patch("/family", h.HandleUpdate)
	r.Post("/family/leave", h.HandleLeave)
	r.Delete("/family/members/{userID}", h.HandleRemoveMember)
	r.Post("/family/invitations", h.HandleInvite)
	r.Get("/family/invitations", h.HandleListInvitations)
	r.Get("/family/invitations/sent", h.HandleListSent)
	r.Post("/family/invitations/{id}/accept", h.HandleAccept)
	r.Post("/family/invitations/{id}/reject", h.HandleReject)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.CreateFamilyRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	view, err := h.service.Create(ctx, requestcontext.UserID(ctx), req)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to create family")
		return
	}
	httputil.WriteData(w, http.StatusCreated, "Family created.", view)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.service.Get(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to load family")
		return
	}
	httputil.WriteData(w, http.StatusOK, "", view)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.UpdateFamilyRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	f, err := h.service.Update(ctx, requestcontext.UserID(ctx), req)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to update family")
		return
	}
	httputil.WriteData(w, http.StatusOK, "Family updated.", f)
}

func (h *Handler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.InviteRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	inv, err := h.service.Invite(ctx, requestcontext.UserID(ctx), req)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to send invitation")
		return
	}
	httputil.WriteData(w, http.StatusCreated, "Invitation sent.", inv)
}

func (h *Handler) HandleListInvitations(w http.ResponseWriter, r *http.Request) {
	h.handleList(w, r, h.service.ListInvitations)
}

func (h *Handler) HandleListSent(w http.ResponseWriter, r *http.Request) {
	h.handleList(w, r, h.service.ListSentInvitations)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request, fn func(context.Context, id.UserID) ([]*models.Invitation, error)) {
	ctx := r.Context()
	invs, err := fn(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to list invitations")
		return
	}
	if invs == nil {
		invs = []*models.Invitation{}
	}
	httputil.WriteData(w, http.StatusOK, "", invs)
}

func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	h.handleAnswer(w, r, h.service.Accept, "Invitation accepted.")
}

func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.handleAnswer(w, r, h.service.Reject, "Invitation rejected.")
}

type answerFunc func(ctx context.Context, actorID id.UserID, invitationID id.InvitationID) (*models.Invitation, error)

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request, fn answerFunc, message string) {
	ctx := r.Context()
	invitationID, err := id.ParseInvitationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "invitation not found"))
		return
	}
	inv, err := fn(ctx, requestcontext.UserID(ctx), invitationID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to answer invitation")
		return
	}
	httputil.WriteData(w, http.StatusOK, message, inv)
}

func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	targetID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "member not found"))
		return
	}
	if err := h.service.RemoveMember(ctx, requestcontext.UserID(ctx), targetID); err != nil {
		h.writeServiceError(ctx, w, err, "failed to remove member")
		return
	}
	httputil.WriteData(w, http.StatusOK, "Member removed.", nil)
}

func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.Leave(ctx, requestcontext.UserID(ctx)); err != nil {
		h.writeServiceError(ctx, w, err, "failed to leave family")
		return
	}
	httputil.WriteData(w, http.StatusOK, "You have left the family.", nil)
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
