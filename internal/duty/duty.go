package duty

import (
	"log/slog"

	"parish/internal/duty/handler"
	"parish/internal/duty/service"
)

// Service exposes the duty calendar use cases.
type Service = service.Service

// Handler wires HTTP endpoints to the duty service.
type Handler = handler.Handler

// NewService constructs the duty service.
func NewService(entries service.Store, users service.UserReader, opts ...service.Option) *Service {
	return service.New(entries, users, opts...)
}

// NewHandler constructs the duty HTTP handler.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
