package family

import (
	"log/slog"

	"parish/internal/family/handler"
	"parish/internal/family/service"
)

// Service exposes the family membership use cases.
type Service = service.Service

// Handler wires HTTP endpoints to the family service.
type Handler = handler.Handler

// NewService constructs the family service.
func NewService(stores service.Stores, opts ...service.Option) *Service {
	return service.New(stores, opts...)
}

// NewHandler constructs the family HTTP handler.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
