package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"certus/internal/enrollment/models"
	id "certus/pkg/domain"
	"certus/pkg/platform/httputil"
)

//go:generate mockgen -source=handler.go -destination=mocks/handler-mocks.go -package=mocks Service

// Service defines the enrollment operations the HTTP layer needs.
type Service interface {
	Enroll(ctx context.Context, userID id.UserID, certID id.CertificationID) (*models.Enrollment, error)
	ListForUser(ctx context.Context, userID id.UserID) ([]models.WithCertification, error)
	Unenroll(ctx context.Context, userID id.UserID, enrollmentID id.EnrollmentID) error
}

// Handler wires enrollment endpoints to the enrollment service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts enrollment endpoints. Callers install RequireAuth first.
func (h *Handler) Register(r chi.Router) {
	r.Post("/enrollments", h.HandleEnroll)
	r.Get("/enrollments", h.HandleList)
	r.Delete("/enrollments/{id}", h.HandleUnenroll)
}

// HandleEnroll handles POST /enrollments.
func (h *Handler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := httputil.RequireUser(w, ctx)
	if !ok {
		return
	}

	req, err := httputil.DecodeAndPrepare[EnrollRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	enrollment, err := h.service.Enroll(ctx, userID, req.ParsedCertificationID())
	if err != nil {
		httputil.LogFailure(ctx, h.logger, "enroll failed", err, "certification_id", req.CertificationID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromEnrollment(enrollment))
}

// HandleList handles GET /enrollments.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := httputil.RequireUser(w, ctx)
	if !ok {
		return
	}
	items, err := h.service.ListForUser(ctx, userID)
	if err != nil {
		httputil.LogFailure(ctx, h.logger, "list enrollments failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromList(items))
}

// HandleUnenroll handles DELETE /enrollments/{id}.
func (h *Handler) HandleUnenroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := httputil.RequireUser(w, ctx)
	if !ok {
		return
	}
	enrollmentID, err := id.ParseEnrollmentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Unenroll(ctx, userID, enrollmentID); err != nil {
		httputil.LogFailure(ctx, h.logger, "unenroll failed", err, "enrollment_id", enrollmentID.String())
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
