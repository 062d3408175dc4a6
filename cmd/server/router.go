package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"parish/internal/duty"
	"parish/internal/family"
	jwttoken "parish/internal/jwt_token"
	notificationhandler "parish/internal/notification/handler"
	"parish/internal/platform/config"
	"parish/internal/platform/metrics"
	"parish/internal/users"
	dErrors "parish/pkg/domain-errors"
	"parish/pkg/platform/httputil"
	adminmw "parish/pkg/platform/middleware/admin"
	authmw "parish/pkg/platform/middleware/auth"
	"parish/pkg/platform/middleware/metadata"
	metricsmw "parish/pkg/platform/middleware/metrics"
	request "parish/pkg/platform/middleware/request"
	"parish/pkg/platform/middleware/requesttime"
)

func newRouter(a *app, cfg config.Server, logger *slog.Logger, reg *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(logger))
	r.Use(metricsmw.Latency(reg))

	r.Get("/healthz", healthHandler(a.health))
	r.Handle("/metrics", reg.Handler())

	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer)
	usersHandler := users.NewHandler(a.users, logger)

	r.Group(func(r chi.Router) {
		r.Use(request.ContentTypeJSON)
		r.Use(adminmw.RequireAdminToken(cfg.Auth.AdminToken, logger))
		usersHandler.RegisterAdmin(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(request.ContentTypeJSON)
		r.Use(authmw.RequireAuth(jwttoken.NewJWTServiceAdapter(jwtService), a.users, logger))
		usersHandler.Register(r)
		duty.NewHandler(a.duties, logger).Register(r)
		family.NewHandler(a.families, logger).Register(r)
		notificationhandler.New(a.inbox, logger).Register(r)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	return r
}

// healthHandler reports 503 when any backing store fails its ping.
func healthHandler(checks []func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for _, check := range checks {
			if err := check(ctx); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, httputil.Envelope{Success: false, Message: "unhealthy", Error: err.Error()})
				return
			}
		}
		httputil.WriteData(w, http.StatusOK, "ok", nil)
	}
}
