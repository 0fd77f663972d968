package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"certus/internal/anchor/models"
	id "certus/pkg/domain"
	"certus/pkg/platform/httputil"
)

//go:generate mockgen -source=handler.go -destination=mocks/handler-mocks.go -package=mocks Service

// Service defines the anchoring operations the HTTP layer needs.
type Service interface {
	IssueAnchor(ctx context.Context, userID id.UserID, certID id.CertificateID, wallet string) (*models.Receipt, error)
	Validate(ctx context.Context, nftID string) (models.Validation, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the owner-only anchoring endpoint.
func (h *Handler) Register(r chi.Router) {
	r.Post("/certificates/{id}/anchor", h.HandleIssue)
}

// RegisterPublic mounts token validation, open to any viewer.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/anchors/{nftId}/validate", h.HandleValidate)
}

// HandleIssue handles POST /certificates/{id}/anchor.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := httputil.RequireUser(w, ctx)
	if !ok {
		return
	}
	certID, err := id.ParseCertificateID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.DecodeAndPrepare[IssueAnchorRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	receipt, err := h.service.IssueAnchor(ctx, userID, certID, req.WalletAddress)
	if err != nil {
		httputil.LogFailure(ctx, h.logger, "anchor certificate failed", err, "certificate_id", certID.String())
		httputil.WriteError(w, err)
		return
	}
	status := http.StatusCreated
	if receipt.AlreadyAnchored {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, FromReceipt(receipt))
}

// HandleValidate handles GET /anchors/{nftId}/validate. Invalid tokens are a
// 200 with is_valid=false.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result, err := h.service.Validate(ctx, chi.URLParam(r, "nftId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
