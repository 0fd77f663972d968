package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"certus/internal/certificate/models"
	id "certus/pkg/domain"
	"certus/pkg/platform/httputil"
)

//go:generate mockgen -source=handler.go -destination=mocks/handler-mocks.go -package=mocks Service

// Service defines the certificate operations the HTTP layer needs.
type Service interface {
	Verify(ctx context.Context, certID id.CertificateID) (*models.Verified, error)
	ListByUser(ctx context.Context, userID id.UserID, filter models.ListFilter) (*models.Page, error)
}

// Handler wires certificate endpoints to the certificate service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the authenticated certificate endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/certificates", h.HandleList)
}

// RegisterPublic mounts endpoints any viewer may call.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/certificates/{id}/verify", h.HandleVerify)
}

// HandleList handles GET /certificates?page=&limit=&active=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := httputil.RequireUser(w, ctx)
	if !ok {
		return
	}
	filter, err := parseListFilter(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := h.service.ListByUser(ctx, userID, filter)
	if err != nil {
		httputil.LogFailure(ctx, h.logger, "list certificates failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromPage(page))
}

// HandleVerify handles GET /certificates/{id}/verify.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	certID, err := id.ParseCertificateID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	verified, err := h.service.Verify(ctx, certID)
	if err != nil {
		httputil.LogFailure(ctx, h.logger, "verify certificate failed", err, "certificate_id", certID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVerified(verified))
}
