package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"parish/internal/notification"
	id "parish/pkg/domain"
	dErrors "parish/pkg/domain-errors"
	"parish/pkg/platform/httputil"
	"parish/pkg/platform/sentinel"
	"parish/pkg/platform/validation"
	"parish/pkg/requestcontext"
)

const maxListLimit = 100

// Inbox is the in-app notification store the handler reads.
type Inbox interface {
	List(ctx context.Context, userID id.UserID, limit int) ([]*notification.InboxItem, error)
	MarkRead(ctx context.Context, userID id.UserID, itemID string) (*notification.InboxItem, error)
}

type Handler struct {
	inbox  Inbox
	logger *slog.Logger
}

func New(inbox Inbox, logger *slog.Logger) *Handler {
	return &Handler{inbox: inbox, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/notifications", h.HandleList)
	r.Post("/notifications/{id}/read", h.HandleMarkRead)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := maxListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxListLimit {
			httputil.WriteError(w, validation.Field("limit", "limit must be between 1 and 100"))
			return
		}
		limit = n
	}
	items, err := h.inbox.List(ctx, requestcontext.UserID(ctx), limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list notifications", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications"))
		return
	}
	if items == nil {
		items = []*notification.InboxItem{}
	}
	httputil.WriteData(w, http.StatusOK, "", items)
}

func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	item, err := h.inbox.MarkRead(ctx, requestcontext.UserID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "notification not found"))
			return
		}
		h.logger.ErrorContext(ctx, "failed to mark notification read", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notification read"))
		return
	}
	httputil.WriteData(w, http.StatusOK, "Notification marked as read.", item)
}
