// Package httptransport assembles the public HTTP surface: middleware, the
// ops endpoints and every domain handler.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"certus/internal/platform/config"
	"certus/internal/platform/metrics"
	"certus/internal/platform/middleware"
	"certus/internal/ratelimit"
	"certus/pkg/platform/httputil"
	authmw "certus/pkg/platform/middleware/auth"
	"certus/pkg/platform/middleware/metadata"
	"certus/pkg/platform/middleware/request"
	"certus/pkg/platform/middleware/requesttime"
)

// Routes is a domain handler. Register mounts endpoints behind bearer auth,
// RegisterPublic mounts endpoints any viewer may call.
type Routes interface {
	Register(r chi.Router)
}

type PublicRoutes interface {
	RegisterPublic(r chi.Router)
}

// HealthCheck probes one backing service.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Deps struct {
	Server    config.Server
	Logger    *slog.Logger
	Registry  *prometheus.Registry
	Validator authmw.JWTValidator
	Health    []HealthCheck
	Handlers  []Routes
	// Limiter is optional; nil serves without rate limits.
	Limiter   *ratelimit.Middleware
	RateLimit config.RateLimitConfig
}

// NewRouter wires middleware, ops endpoints and the domain handlers.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(d.Logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(d.Logger))
	r.Use(middleware.CORS(d.Server.AllowedOrigins))
	r.Use(middleware.LatencyMiddleware(metrics.New(d.Registry)))
	r.Use(request.ContentTypeJSON)

	r.Get("/healthz", healthHandler(d.Health))
	r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		if d.Limiter != nil {
			r.Use(d.Limiter.PerIP(ratelimit.Policy{Name: "public", Limit: d.RateLimit.PublicLimit, Window: d.RateLimit.Window}))
		}
		for _, h := range d.Handlers {
			if p, ok := h.(PublicRoutes); ok {
				p.RegisterPublic(r)
			}
		}
	})
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(d.Validator, d.Logger))
		if d.Limiter != nil {
			r.Use(d.Limiter.PerUser(ratelimit.Policy{Name: "user", Limit: d.RateLimit.UserLimit, Window: d.RateLimit.Window}))
		}
		for _, h := range d.Handlers {
			h.Register(r)
		}
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				resp.Checks[c.Name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[c.Name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
