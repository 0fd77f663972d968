package testutil

import (
	"net/http"
	"time"

	id "certus/pkg/domain"
	"certus/pkg/requestcontext"
)

// WithUserID adds a user ID to the request context, as the auth middleware would.
// Invalid IDs are ignored so tests can exercise the unauthenticated path.
func WithUserID(req *http.Request, userID string) *http.Request {
	if parsedUserID, err := id.ParseUserID(userID); err == nil {
		return req.WithContext(requestcontext.WithUserID(req.Context(), parsedUserID))
	}
	return req
}

// WithTime pins the request-scoped clock.
func WithTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
