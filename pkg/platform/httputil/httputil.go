// Package httputil writes the JSON envelopes every endpoint returns and
// decodes request bodies.
//
// Success: {"success": true, "message": "...", "data": {...}}
// Failure: {"success": false, "message": "...", "error": "<code>", "errors": {"field": ["..."]}}
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "parish/pkg/domain-errors"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Envelope is the response body shape.
type Envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    any                 `json:"data,omitempty"`
	Error   string              `json:"error,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// Validatable is implemented by request DTOs.
type Validatable interface {
	Validate() error
}

// Normalizable is implemented by request DTOs that trim or default fields
// before validation.
type Normalizable interface {
	Normalize()
}

// WriteJSON writes v as JSON with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData writes a success envelope.
func WriteData(w http.ResponseWriter, status int, message string, data any) {
	WriteJSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

// WriteError maps err to a status code and writes a failure envelope.
// Internal errors never leak their message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.HTTPStatus(code)

	message := "An unexpected error occurred."
	if de, ok := dErrors.As(err); ok && code != dErrors.CodeInternal {
		message = de.Message
	}
	if code == dErrors.CodeInvariantViolation || code == dErrors.CodeInvalidInput {
		code = dErrors.CodeValidation
	}
	WriteJSON(w, status, Envelope{
		Success: false,
		Message: message,
		Error:   string(code),
		Errors:  dErrors.Fields(err),
	})
}

// DecodeAndPrepare decodes the request body into T, normalizes and validates
// it. On failure it writes the error response and returns false.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.WarnContext(ctx, "failed to decode request body",
			"error", err,
			"request_id", requestID,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}

	if n, ok := any(&req).(Normalizable); ok {
		n.Normalize()
	}
	if v, ok := any(&req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			logger.WarnContext(ctx, "invalid request",
				"error", err,
				"request_id", requestID,
			)
			WriteError(w, err)
			return nil, false
		}
	}
	return &req, true
}
