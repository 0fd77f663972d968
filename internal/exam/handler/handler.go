package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"certus/internal/exam/models"
	id "certus/pkg/domain"
	"certus/pkg/platform/httputil"
)

//go:generate mockgen -source=handler.go -destination=mocks/handler-mocks.go -package=mocks Service

// Service defines the exam operations the HTTP layer needs.
type Service interface {
	StartExam(ctx context.Context, userID id.UserID, enrollmentID id.EnrollmentID) (*models.Exam, error)
	GetQuestions(ctx context.Context, examID id.ExamID, userID id.UserID) (*models.QuestionSet, error)
	SubmitExam(ctx context.Context, examID id.ExamID, userID id.UserID, answers []models.Answer) (*models.Result, error)
	GetResult(ctx context.Context, examID id.ExamID, userID id.UserID) (*models.Result, error)
	ListForUser(ctx context.Context, userID id.UserID) ([]models.Summary, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts exam endpoints. Callers install RequireAuth first.
func (h *Handler) Register(r chi.Router) {
	r.Post("/exams", h.HandleStart)
	r.Get("/exams", h.HandleList)
	r.Get("/exams/{id}/questions", h.HandleQuestions)
	r.Post("/exams/{id}/submit", h.HandleSubmit)
	r.Get("/exams/{id}/result", h.HandleResult)
}

// HandleStart handles POST /exams. A new attempt is 201. An enrollment that
// already has an attempt in progress is 409 Conflict; an enrollment that is
// not active is 400.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := httputil.RequireUser(w, ctx)
	if !ok {
		return
	}
	req, err := httputil.DecodeAndPrepare[StartExamRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	exam, err := h.service.StartExam(ctx, userID, req.ParsedEnrollmentID())
	if err != nil {
		httputil.LogFailure(ctx, h.logger, "start exam failed", err, "enrollment_id", req.EnrollmentID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromExam(exam))
}

// HandleList handles GET /exams.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := httputil.RequireUser(w, ctx)
	if !ok {
		return
	}
	items, err := h.service.ListForUser(ctx, userID)
	if err != nil {
		httputil.LogFailure(ctx, h.logger, "list exams failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSummaries(items))
}

// HandleQuestions handles GET /exams/{id}/questions.
func (h *Handler) HandleQuestions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, examID, ok := h.examRequest(w, r)
	if !ok {
		return
	}
	set, err := h.service.GetQuestions(ctx, examID, userID)
	if err != nil {
		httputil.LogFailure(ctx, h.logger, "get exam questions failed", err, "exam_id", examID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromQuestionSet(set))
}

// HandleSubmit handles POST /exams/{id}/submit.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, examID, ok := h.examRequest(w, r)
	if !ok {
		return
	}
	req, err := httputil.DecodeAndPrepare[SubmitExamRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.service.SubmitExam(ctx, examID, userID, req.ParsedAnswers())
	if err != nil {
		httputil.LogFailure(ctx, h.logger, "submit exam failed", err, "exam_id", examID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}

// HandleResult handles GET /exams/{id}/result.
func (h *Handler) HandleResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, examID, ok := h.examRequest(w, r)
	if !ok {
		return
	}
	result, err := h.service.GetResult(ctx, examID, userID)
	if err != nil {
		httputil.LogFailure(ctx, h.logger, "get exam result failed", err, "exam_id", examID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}

func (h *Handler) examRequest(w http.ResponseWriter, r *http.Request) (id.UserID, id.ExamID, bool) {
	userID, ok := httputil.RequireUser(w, r.Context())
	if !ok {
		return id.UserID{}, id.ExamID{}, false
	}
	examID, err := id.ParseExamID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.UserID{}, id.ExamID{}, false
	}
	return userID, examID, true
}
