package httputil

import (
	"context"
	"log/slog"
	"net/http"

	id "certus/pkg/domain"
	dErrors "certus/pkg/domain-errors"
	"certus/pkg/requestcontext"
)

// RequireUser returns the authenticated user or writes 401.
func RequireUser(w http.ResponseWriter, ctx context.Context) (id.UserID, bool) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}

// LogFailure logs a failed operation: internal errors at error level, caller
// mistakes at warn.
func LogFailure(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...any) {
	if logger == nil {
		return
	}
	args := append([]any{
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	}, attrs...)
	if userID := requestcontext.UserID(ctx); !userID.IsNil() {
		args = append(args, "user_id", userID.String())
	}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeInvariantViolation, dErrors.CodeExternal, dErrors.CodeUnavailable:
		logger.ErrorContext(ctx, msg, args...)
	default:
		logger.WarnContext(ctx, msg, args...)
	}
}
