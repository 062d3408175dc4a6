package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	id "parish/pkg/domain"
	dErrors "parish/pkg/domain-errors"
	"parish/pkg/platform/httputil"
	request "parish/pkg/platform/middleware/request"
	"parish/pkg/requestcontext"
)

// JWTValidator validates bearer tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// AccountChecker reports whether a token's subject may still use the API.
// Tokens outlive status changes, so deactivated accounts are refused here.
type AccountChecker interface {
	IsActive(ctx context.Context, userID id.UserID) (bool, error)
}

// JWTClaims are the claims the middleware needs from a validated token.
type JWTClaims struct {
	UserID string
	JTI    string
}

// GetUserID retrieves the authenticated user ID from the context.
func GetUserID(ctx context.Context) id.UserID {
	return requestcontext.UserID(ctx)
}

func unauthorized(w http.ResponseWriter, msg string) {
	httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, msg))
}

// RequireAuth authenticates bearer tokens and stores the user id in context.
// accounts may be nil.
func RequireAuth(validator JWTValidator, accounts AccountChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := request.GetRequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				unauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				unauthorized(w, "Invalid or expired token")
				return
			}

			userID, err := id.ParseUserID(claims.UserID)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed subject",
					"error", err,
					"request_id", requestID,
				)
				unauthorized(w, "Invalid or expired token")
				return
			}

			if accounts != nil {
				active, err := accounts.IsActive(ctx, userID)
				if err != nil {
					logger.ErrorContext(ctx, "failed to check account status",
						"error", err,
						"request_id", requestID,
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to validate token"))
					return
				}
				if !active {
					logger.WarnContext(ctx, "unauthorized access - account inactive",
						"user_id", userID,
						"request_id", requestID,
					)
					unauthorized(w, "Account is inactive")
					return
				}
			}

			ctx = requestcontext.WithUserID(ctx, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
