package users

import (
	"log/slog"

	"parish/internal/users/handler"
	"parish/internal/users/service"
)

// Service exposes the user directory.
type Service = service.Service

// Handler wires HTTP endpoints to the user service.
type Handler = handler.Handler

// NewService constructs the user service.
func NewService(store service.Store, opts ...service.Option) *Service {
	return service.New(store, opts...)
}

// NewHandler constructs the user HTTP handler.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
