package testutil

import (
	"net/http"

	id "parish/pkg/domain"
	"parish/pkg/requestcontext"
)

// WithUserID adds a user ID to the request context the way the auth
// middleware would.
func WithUserID(req *http.Request, userID id.UserID) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}
