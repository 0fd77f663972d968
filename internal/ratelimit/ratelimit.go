// Package ratelimit throttles callers with a sliding window per key. The
// public verification endpoints are limited per client IP and the
// authenticated write endpoints per user.
package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"certus/pkg/platform/httputil"
	"certus/pkg/requestcontext"
)

// Result is the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the whole seconds until the window frees a slot, at least 1.
func (r Result) RetryAfter(now time.Time) int {
	secs := int(r.ResetAt.Sub(now).Seconds() + 0.999)
	if secs < 1 {
		return 1
	}
	return secs
}

// Store records requests in a window keyed by caller.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

// Policy is the budget for one endpoint class.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

type Middleware struct {
	store    Store
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns every limit into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func New(store Store, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{store: store, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// PerIP limits by the client address recorded by the metadata middleware.
func (m *Middleware) PerIP(p Policy) func(http.Handler) http.Handler {
	return m.limit(p, func(r *http.Request) string {
		return "ip:" + requestcontext.ClientIP(r.Context())
	})
}

// PerUser limits by the authenticated user and must run after RequireAuth.
func (m *Middleware) PerUser(p Policy) func(http.Handler) http.Handler {
	return m.limit(p, func(r *http.Request) string {
		return "user:" + requestcontext.UserID(r.Context()).String()
	})
}

func (m *Middleware) limit(p Policy, keyOf func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled || m.store == nil || p.Limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			key := p.Name + ":" + keyOf(r)

			result, err := m.store.Allow(ctx, key, p.Limit, p.Window)
			if err != nil {
				// fail open
				m.logger.ErrorContext(ctx, "rate limit check failed",
					"error", err,
					"policy", p.Name,
					"request_id", requestcontext.RequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}

			addHeaders(w, result)
			if !result.Allowed {
				retry := result.RetryAfter(time.Now())
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				httputil.WriteJSON(w, http.StatusTooManyRequests, exceededResponse{
					Error:      "rate_limit_exceeded",
					Message:    "Too many requests. Please try again later.",
					RetryAfter: retry,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type exceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

func addHeaders(w http.ResponseWriter, result Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
