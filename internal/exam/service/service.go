// Package service runs the exam lifecycle: start against an active
// enrollment, sample a fixed question set, grade a submission in one
// transaction, and report results.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	catalog "certus/internal/catalog/models"
	certmodels "certus/internal/certificate/models"
	enrollmodels "certus/internal/enrollment/models"
	"certus/internal/exam/metrics"
	"certus/internal/exam/models"
	id "certus/pkg/domain"
	dErrors "certus/pkg/domain-errors"
	"certus/pkg/platform/audit"
	"certus/pkg/platform/sentinel"
	"certus/pkg/platform/tx"
	"certus/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,Enrollments,QuestionBank,CertificationLookup,CertificateIssuer,AuditPublisher

// DefaultQuestionCount is the size of every sampled question set.
const DefaultQuestionCount = 10

// Store persists exams and answers.
type Store interface {
	Create(ctx context.Context, e *models.Exam) error
	FindByID(ctx context.Context, examID id.ExamID) (*models.Exam, error)
	FindInProgress(ctx context.Context, userID id.UserID, enrollmentID id.EnrollmentID, certID id.CertificationID) (*models.Exam, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Exam, error)
	SetQuestionsIfUnset(ctx context.Context, examID id.ExamID, questionIDs []id.QuestionID) ([]id.QuestionID, error)
	MarkGraded(ctx context.Context, examID id.ExamID, score float64, passed bool, completedAt time.Time) error
	InsertAnswers(ctx context.Context, answers []models.ExamAnswer) error
	ListAnswers(ctx context.Context, examID id.ExamID) ([]models.ExamAnswer, error)
}

// Enrollments gates exam creation and receives grading outcomes.
type Enrollments interface {
	FindForUser(ctx context.Context, userID id.UserID, enrollmentID id.EnrollmentID) (*enrollmodels.Enrollment, error)
	ApplyOutcome(ctx context.Context, enrollmentID id.EnrollmentID, passed bool) (enrollmodels.Status, error)
}

// QuestionBank supplies currently valid questions.
type QuestionBank interface {
	ValidQuestions(ctx context.Context, certID id.CertificationID, now time.Time) ([]catalog.Question, error)
	QuestionsByIDs(ctx context.Context, ids []id.QuestionID) ([]catalog.Question, error)
}

type CertificationLookup interface {
	FindCertification(ctx context.Context, certID id.CertificationID) (*catalog.Certification, error)
}

// CertificateIssuer issues the certificate for a passed exam. It joins the
// grading transaction carried by ctx.
type CertificateIssuer interface {
	IssueIfNoneActive(ctx context.Context, userID id.UserID, certID id.CertificationID, examID id.ExamID) (*certmodels.Certificate, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store          Store
	enrollments    Enrollments
	questions      QuestionBank
	certifications CertificationLookup
	certificates   CertificateIssuer
	tx             tx.Runner
	auditPublisher AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	questionCount  int
	shuffle        func(n int, swap func(i, j int))
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithQuestionCount overrides DefaultQuestionCount.
func WithQuestionCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.questionCount = n
		}
	}
}

// WithShuffle replaces the sampling shuffle; tests pass a seeded source.
func WithShuffle(shuffle func(n int, swap func(i, j int))) Option {
	return func(s *Service) { s.shuffle = shuffle }
}

func New(
	store Store,
	enrollments Enrollments,
	questions QuestionBank,
	certifications CertificationLookup,
	certificates CertificateIssuer,
	runner tx.Runner,
	opts ...Option,
) (*Service, error) {
	switch {
	case store == nil:
		return nil, fmt.Errorf("exam store is required")
	case enrollments == nil:
		return nil, fmt.Errorf("enrollments are required")
	case questions == nil:
		return nil, fmt.Errorf("question bank is required")
	case certifications == nil:
		return nil, fmt.Errorf("certification lookup is required")
	case certificates == nil:
		return nil, fmt.Errorf("certificate issuer is required")
	case runner == nil:
		return nil, fmt.Errorf("transaction runner is required")
	}
	svc := &Service{
		store:          store,
		enrollments:    enrollments,
		questions:      questions,
		certifications: certifications,
		certificates:   certificates,
		tx:             runner,
		logger:         slog.Default(),
		tracer:         otel.Tracer("certus/exam"),
		questionCount:  DefaultQuestionCount,
		shuffle:        rand.Shuffle,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// StartExam opens an attempt for an active, owned enrollment. At most one
// attempt per enrollment may be in progress; the store enforces it.
func (s *Service) StartExam(ctx context.Context, userID id.UserID, enrollmentID id.EnrollmentID) (*models.Exam, error) {
	enrollment, err := s.enrollments.FindForUser(ctx, userID, enrollmentID)
	if err != nil {
		return nil, err
	}
	if !enrollment.IsActive() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "enrollment is not active")
	}

	if _, err := s.store.FindInProgress(ctx, userID, enrollmentID, enrollment.CertificationID); err == nil {
		return nil, errExamInProgress
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check exams in progress")
	}

	exam := &models.Exam{
		ID:              id.ExamID(uuid.New()),
		UserID:          userID,
		EnrollmentID:    enrollmentID,
		CertificationID: enrollment.CertificationID,
		Status:          models.StatusInProgress,
		StartedAt:       requestcontext.Now(ctx),
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, exam); err != nil {
			return err
		}
		return s.emit(ctx, audit.EventExamStarted, exam, map[string]string{
			"enrollment_id": enrollmentID.String(),
		})
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, errExamInProgress
		}
		return nil, wrapTxError(err, "failed to start exam")
	}
	s.metrics.IncStarted()
	return exam, nil
}

var errExamInProgress = dErrors.New(dErrors.CodeConflict, "an exam is already in progress for this enrollment")

// GetQuestions returns the exam's question set without answers. The set is
// sampled on the first call and fixed afterwards.
func (s *Service) GetQuestions(ctx context.Context, examID id.ExamID, userID id.UserID) (*models.QuestionSet, error) {
	exam, err := s.ownedExam(ctx, examID, userID)
	if err != nil {
		return nil, err
	}
	if !exam.IsInProgress() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "exam is not in progress")
	}

	questionIDs := exam.QuestionIDs
	if !exam.HasQuestionSet() {
		sampled, err := s.sample(ctx, exam.CertificationID)
		if err != nil {
			return nil, err
		}
		questionIDs, err = s.store.SetQuestionsIfUnset(ctx, exam.ID, sampled)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store question set")
		}
	}

	questions, err := s.questions.QuestionsByIDs(ctx, questionIDs)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load questions")
	}
	views := make([]models.QuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, models.QuestionView{ID: q.ID, Text: q.Text})
	}
	return &models.QuestionSet{
		ExamID:         exam.ID,
		Questions:      views,
		TotalQuestions: len(views),
	}, nil
}

func (s *Service) sample(ctx context.Context, certID id.CertificationID) ([]id.QuestionID, error) {
	pool, err := s.questions.ValidQuestions(ctx, certID, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load question pool")
	}
	if len(pool) < s.questionCount {
		return nil, dErrors.New(dErrors.CodeBadRequest,
			"not enough valid questions: need "+strconv.Itoa(s.questionCount)+", have "+strconv.Itoa(len(pool)))
	}
	ids := make([]id.QuestionID, len(pool))
	for i, q := range pool {
		ids[i] = q.ID
	}
	s.shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	return ids[:s.questionCount], nil
}

// SubmitExam grades answers and applies every side effect in one
// transaction: the exam transition, the answer rows, the enrollment status,
// and on a pass the certificate.
func (s *Service) SubmitExam(ctx context.Context, examID id.ExamID, userID id.UserID, answers []models.Answer) (*models.Result, error) {
	ctx, span := s.tracer.Start(ctx, "exam.submit", trace.WithAttributes(
		attribute.String("exam.id", examID.String()),
		attribute.Int("exam.answers", len(answers)),
	))
	defer span.End()
	start := time.Now()

	result, err := s.submit(ctx, examID, userID, answers)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return nil, err
	}
	span.SetAttributes(
		attribute.Float64("exam.score", result.Score),
		attribute.Bool("exam.passed", result.Passed),
	)
	s.metrics.ObserveGraded(result.Score, result.Passed, time.Since(start))
	return result, nil
}

func (s *Service) submit(ctx context.Context, examID id.ExamID, userID id.UserID, answers []models.Answer) (*models.Result, error) {
	if len(answers) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "answers must not be empty")
	}
	exam, err := s.ownedExam(ctx, examID, userID)
	if err != nil {
		return nil, err
	}
	if !exam.IsInProgress() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "exam is not in progress")
	}

	questions, err := s.answerableQuestions(ctx, exam, answers)
	if err != nil {
		return nil, err
	}
	certification, err := s.certification(ctx, exam.CertificationID)
	if err != nil {
		return nil, err
	}

	grading := models.Grade(exam.ID, answers, questions, certification.EffectivePassingScore())
	completedAt := requestcontext.Now(ctx)
	result := &models.Result{
		ID:                exam.ID,
		Score:             grading.Score,
		Passed:            grading.Passed,
		CorrectAnswers:    grading.Correct,
		TotalQuestions:    grading.Total,
		PassingScore:      certification.EffectivePassingScore(),
		CompletedAt:       completedAt,
		CertificationName: certification.Name,
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.MarkGraded(ctx, exam.ID, grading.Score, grading.Passed, completedAt); err != nil {
			return err
		}
		if err := s.store.InsertAnswers(ctx, grading.Answers); err != nil {
			return err
		}
		status, err := s.enrollments.ApplyOutcome(ctx, exam.EnrollmentID, grading.Passed)
		if err != nil {
			return err
		}
		result.EnrollmentStatus = string(status)

		if grading.Passed {
			cert, err := s.certificates.IssueIfNoneActive(ctx, userID, exam.CertificationID, exam.ID)
			if err != nil {
				return err
			}
			result.CertificateID = &cert.ID
		}
		return s.emit(ctx, audit.EventExamGraded, exam, map[string]string{
			"score":   strconv.FormatFloat(grading.Score, 'f', 2, 64),
			"passed":  strconv.FormatBool(grading.Passed),
			"correct": strconv.Itoa(grading.Correct),
			"total":   strconv.Itoa(grading.Total),
		})
	})
	if err != nil {
		if _, ok := dErrors.As(err); ok {
			return nil, err
		}
		switch {
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeBadRequest, "exam is not in progress")
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeBadRequest, "duplicate answer for question")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to grade exam")
	}

	s.logger.InfoContext(ctx, "exam graded",
		"request_id", requestcontext.RequestID(ctx),
		"exam_id", exam.ID.String(),
		"user_id", userID.String(),
		"score", grading.Score,
		"passed", grading.Passed,
	)
	return result, nil
}

// answerableQuestions checks that every answer targets a distinct, currently
// valid question of the exam's certification and, once sampled, a question
// of the exam's set.
func (s *Service) answerableQuestions(ctx context.Context, exam *models.Exam, answers []models.Answer) (map[id.QuestionID]catalog.Question, error) {
	pool, err := s.questions.ValidQuestions(ctx, exam.CertificationID, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load question pool")
	}
	valid := make(map[id.QuestionID]catalog.Question, len(pool))
	for _, q := range pool {
		valid[q.ID] = q
	}
	var sampled map[id.QuestionID]struct{}
	if exam.HasQuestionSet() {
		sampled = make(map[id.QuestionID]struct{}, len(exam.QuestionIDs))
		for _, qid := range exam.QuestionIDs {
			sampled[qid] = struct{}{}
		}
	}

	seen := make(map[id.QuestionID]struct{}, len(answers))
	for _, a := range answers {
		if _, dup := seen[a.QuestionID]; dup {
			return nil, dErrors.New(dErrors.CodeBadRequest, "duplicate answer for question "+a.QuestionID.String())
		}
		seen[a.QuestionID] = struct{}{}
		if _, ok := valid[a.QuestionID]; !ok {
			return nil, dErrors.New(dErrors.CodeBadRequest, "invalid question id "+a.QuestionID.String())
		}
		if sampled != nil {
			if _, ok := sampled[a.QuestionID]; !ok {
				return nil, dErrors.New(dErrors.CodeBadRequest, "question "+a.QuestionID.String()+" is not part of this exam")
			}
		}
	}
	return valid, nil
}

// GetResult recounts correct answers from the stored rows rather than
// trusting the cached score.
func (s *Service) GetResult(ctx context.Context, examID id.ExamID, userID id.UserID) (*models.Result, error) {
	exam, err := s.ownedExam(ctx, examID, userID)
	if err != nil {
		return nil, err
	}
	if !exam.IsGraded() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "exam has not been graded")
	}
	answers, err := s.store.ListAnswers(ctx, exam.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load answers")
	}
	certification, err := s.certification(ctx, exam.CertificationID)
	if err != nil {
		return nil, err
	}

	correct := 0
	for _, a := range answers {
		if a.IsCorrect {
			correct++
		}
	}
	result := &models.Result{
		ID:                exam.ID,
		CorrectAnswers:    correct,
		TotalQuestions:    len(answers),
		PassingScore:      certification.EffectivePassingScore(),
		CertificationName: certification.Name,
	}
	if exam.Score != nil {
		result.Score = *exam.Score
	}
	if exam.Passed != nil {
		result.Passed = *exam.Passed
	}
	if exam.CompletedAt != nil {
		result.CompletedAt = *exam.CompletedAt
	}
	return result, nil
}

// ListForUser returns the user's exams, newest first, with certification names.
func (s *Service) ListForUser(ctx context.Context, userID id.UserID) ([]models.Summary, error) {
	exams, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list exams")
	}
	names := make(map[id.CertificationID]string)
	out := make([]models.Summary, 0, len(exams))
	for _, e := range exams {
		name, ok := names[e.CertificationID]
		if !ok {
			if c, err := s.certifications.FindCertification(ctx, e.CertificationID); err == nil {
				name = c.Name
			} else if !errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certification")
			}
			names[e.CertificationID] = name
		}
		out = append(out, models.Summary{Exam: *e, CertificationName: name})
	}
	return out, nil
}

func (s *Service) ownedExam(ctx context.Context, examID id.ExamID, userID id.UserID) (*models.Exam, error) {
	exam, err := s.store.FindByID(ctx, examID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "exam not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load exam")
	}
	if exam.UserID != userID {
		return nil, dErrors.New(dErrors.CodeNotFound, "exam not found")
	}
	return exam, nil
}

func (s *Service) certification(ctx context.Context, certID id.CertificationID) (*catalog.Certification, error) {
	c, err := s.certifications.FindCertification(ctx, certID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "certification not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certification")
	}
	return c, nil
}

func (s *Service) emit(ctx context.Context, event audit.AuditEvent, exam *models.Exam, attrs map[string]string) error {
	if s.auditPublisher == nil {
		return nil
	}
	if attrs == nil {
		attrs = map[string]string{}
	}
	attrs["certification_id"] = exam.CertificationID.String()
	return s.auditPublisher.Emit(ctx, audit.Event{
		UserID:        exam.UserID,
		Action:        string(event),
		AggregateType: "exam",
		AggregateID:   exam.ID.String(),
		Attributes:    attrs,
	})
}

func wrapTxError(err error, msg string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
