package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"parish/internal/duty/checker"
	"parish/internal/duty/models"
	id "parish/pkg/domain"
	dErrors "parish/pkg/domain-errors"
	"parish/pkg/platform/httputil"
	"parish/pkg/platform/validation"
	"parish/pkg/requestcontext"
)

// Service defines the duty calendar operations the handler needs.
type Service interface {
	Schedule(ctx context.Context, actorID id.UserID, req *models.ScheduleRequest) (*models.DutyEntry, error)
	Get(ctx context.Context, entryID id.DutyEntryID) (*models.DutyEntry, error)
	Update(ctx context.Context, actorID id.UserID, entryID id.DutyEntryID, req *models.UpdateRequest) (*models.DutyEntry, error)
	Complete(ctx context.Context, actorID id.UserID, entryID id.DutyEntryID) (*models.DutyEntry, error)
	Cancel(ctx context.Context, actorID id.UserID, entryID id.DutyEntryID) (*models.DutyEntry, error)
	Delete(ctx context.Context, actorID id.UserID, entryID id.DutyEntryID) error
	ListForPriest(ctx context.Context, priestID id.UserID, filter models.ListFilter) ([]*models.DutyEntry, error)
	CheckAvailability(ctx context.Context, req *models.CheckRequest) (checker.Result, error)
}

// Handler serves the duty calendar.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the duty routes. All of them require an authenticated user.
func (h *Handler) Register(r chi.Router) {
	r.Post("/duties", h.HandleSchedule)
	r.Post("/duties/check", h.HandleCheck)
	r.Get("/duties/{id}", h.HandleGet)
	r.Patch("/duties/{id}", h.HandleUpdate)
	r.Post("/duties/{id}/complete", h.HandleComplete)
	r.Post("/duties/{id}/cancel", h.HandleCancel)
	r.Delete("/duties/{id}", h.HandleDelete)
	r.Get("/priests/{id}/duties", h.HandleListForPriest)
}

func (h *Handler) HandleSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.ScheduleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	entry, err := h.service.Schedule(ctx, requestcontext.UserID(ctx), req)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to schedule duty")
		return
	}
	httputil.WriteData(w, http.StatusCreated, "Duty scheduled.", entry)
}

func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.CheckRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	res, err := h.service.CheckAvailability(ctx, req)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to check duty availability")
		return
	}
	message := "Priest is available."
	if res.Conflict {
		message = res.Reason
	}
	httputil.WriteData(w, http.StatusOK, message, res)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entryID, ok := h.entryID(w, r)
	if !ok {
		return
	}
	entry, err := h.service.Get(ctx, entryID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to load duty")
		return
	}
	httputil.WriteData(w, http.StatusOK, "", entry)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	entryID, ok := h.entryID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.UpdateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	entry, err := h.service.Update(ctx, requestcontext.UserID(ctx), entryID, req)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to update duty")
		return
	}
	httputil.WriteData(w, http.StatusOK, "Duty updated.", entry)
}

func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.service.Complete, "Duty completed.")
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.service.Cancel, "Duty cancelled.")
}

type transitionFunc func(ctx context.Context, actorID id.UserID, entryID id.DutyEntryID) (*models.DutyEntry, error)

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request, fn transitionFunc, message string) {
	ctx := r.Context()
	entryID, ok := h.entryID(w, r)
	if !ok {
		return
	}
	entry, err := fn(ctx, requestcontext.UserID(ctx), entryID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to change duty status")
		return
	}
	httputil.WriteData(w, http.StatusOK, message, entry)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entryID, ok := h.entryID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(ctx, requestcontext.UserID(ctx), entryID); err != nil {
		h.writeServiceError(ctx, w, err, "failed to delete duty")
		return
	}
	httputil.WriteData(w, http.StatusOK, "Duty deleted.", nil)
}

func (h *Handler) HandleListForPriest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	priestID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "priest not found"))
		return
	}
	filter, err := parseListFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	entries, err := h.service.ListForPriest(ctx, priestID, filter)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to list duties")
		return
	}
	if entries == nil {
		entries = []*models.DutyEntry{}
	}
	httputil.WriteData(w, http.StatusOK, "", entries)
}

func parseListFilter(r *http.Request) (models.ListFilter, error) {
	q := r.URL.Query()
	var filter models.ListFilter
	if v := q.Get("from"); v != "" {
		d, err := models.ParseDate(v)
		if err != nil {
			return filter, validation.Field("from", "from must be a date in YYYY-MM-DD format")
		}
		filter.From = d
	}
	if v := q.Get("to"); v != "" {
		d, err := models.ParseDate(v)
		if err != nil {
			return filter, validation.Field("to", "to must be a date in YYYY-MM-DD format")
		}
		filter.To = d
	}
	if v := q.Get("status"); v != "" {
		st, err := models.ParseStatus(v)
		if err != nil {
			return filter, validation.Field("status", dErrors.Message(err))
		}
		filter.Status = st
	}
	return filter, nil
}

func (h *Handler) entryID(w http.ResponseWriter, r *http.Request) (id.DutyEntryID, bool) {
	entryID, err := id.ParseDutyEntryID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "duty entry not found"))
		return id.DutyEntryID{}, false
	}
	return entryID, true
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
