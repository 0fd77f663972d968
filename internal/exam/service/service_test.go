package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	catalog "certus/internal/catalog/models"
	catalogStore "certus/internal/catalog/store"
	certmodels "certus/internal/certificate/models"
	certService "certus/internal/certificate/service"
	certStore "certus/internal/certificate/store"
	enrollmodels "certus/internal/enrollment/models"
	enrollService "certus/internal/enrollment/service"
	enrollStore "certus/internal/enrollment/store"
	"certus/internal/exam/metrics"
	"certus/internal/exam/models"
	"certus/internal/exam/service/mocks"
	examStore "certus/internal/exam/store"
	id "certus/pkg/domain"
	dErrors "certus/pkg/domain-errors"
	"certus/pkg/platform/audit"
	"certus/pkg/platform/audit/publisher"
	auditmemory "certus/pkg/platform/audit/store/memory"
	"certus/pkg/platform/tx"
	"certus/pkg/requestcontext"
)

const poolSize = 12

type ExamServiceSuite struct {
	suite.Suite
	catalog     *catalogStore.InMemoryStore
	exams       *examStore.InMemoryStore
	certs       *certStore.InMemoryStore
	enrollments *enrollService.Service
	audit       *auditmemory.InMemoryStore
	metrics     *metrics.Metrics
	service     *Service

	userID  id.UserID
	certID  id.CertificationID
	answers map[id.QuestionID]bool
	now     time.Time
}

func TestExamServiceSuite(t *testing.T) {
	suite.Run(t, new(ExamServiceSuite))
}

func (s *ExamServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.userID = id.UserID(uuid.New())
	s.certID = id.CertificationID(uuid.New())
	s.catalog = catalogStore.NewInMemory()
	s.exams = examStore.NewInMemory()
	s.certs = certStore.NewInMemory()
	s.audit = auditmemory.NewInMemoryStore()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.answers = make(map[id.QuestionID]bool)

	questions := make([]catalog.Question, 0, poolSize+2)
	for i := range poolSize {
		q := catalog.Question{
			ID:              id.QuestionID(uuid.New()),
			CertificationID: s.certID,
			Text:            "question",
			Answer:          i%2 == 0,
			ValidityMonths:  24,
			IsActive:        true,
			CreatedAt:       s.now.AddDate(0, -1, 0).Add(time.Duration(i) * time.Minute),
		}
		s.answers[q.ID] = q.Answer
		questions = append(questions, q)
	}
	questions = append(questions,
		catalog.Question{ID: id.QuestionID(uuid.New()), CertificationID: s.certID, Text: "retired", ValidityMonths: 24, IsActive: false, CreatedAt: s.now},
		catalog.Question{ID: id.QuestionID(uuid.New()), CertificationID: s.certID, Text: "stale", ValidityMonths: 1, IsActive: true, CreatedAt: s.now.AddDate(-1, 0, 0)},
	)
	s.catalog.Seed(
		[]catalog.Certification{{ID: s.certID, Name: "Go Fundamentals", PassingScore: 70, IsActive: true}},
		questions,
		[]catalog.Student{{ID: s.userID, Name: "Ada Lovelace"}},
	)

	runner := tx.NewLocker()
	pub := publisher.New(s.audit)
	var err error
	s.enrollments, err = enrollService.New(enrollStore.NewInMemory(), s.catalog, runner, enrollService.WithAuditPublisher(pub))
	s.Require().NoError(err)
	certificates, err := certService.New(s.certs, s.catalog, runner, certService.WithAuditPublisher(pub))
	s.Require().NoError(err)
	s.service, err = New(s.exams, s.enrollments, s.catalog, s.catalog, certificates, runner,
		WithAuditPublisher(pub),
		WithMetrics(s.metrics),
	)
	s.Require().NoError(err)
}

func (s *ExamServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *ExamServiceSuite) enroll() id.EnrollmentID {
	e, err := s.enrollments.Enroll(s.ctx(), s.userID, s.certID)
	s.Require().NoError(err)
	return e.ID
}

// startWithQuestions starts an exam and fetches its question set.
func (s *ExamServiceSuite) startWithQuestions() (*models.Exam, *models.QuestionSet) {
	exam, err := s.service.StartExam(s.ctx(), s.userID, s.enroll())
	s.Require().NoError(err)
	set, err := s.service.GetQuestions(s.ctx(), exam.ID, s.userID)
	s.Require().NoError(err)
	return exam, set
}

// answersWithCorrect answers the first `correct` questions right and the rest wrong.
func (s *ExamServiceSuite) answersWithCorrect(set *models.QuestionSet, correct int) []models.Answer {
	out := make([]models.Answer, 0, len(set.Questions))
	for i, q := range set.Questions {
		right := s.answers[q.ID]
		if i >= correct {
			right = !right
		}
		out = append(out, models.Answer{QuestionID: q.ID, UserAnswer: right})
	}
	return out
}

func (s *ExamServiceSuite) enrollmentStatus() enrollmodels.Status {
	items, err := s.enrollments.ListForUser(s.ctx(), s.userID)
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	return items[0].Status
}

func (s *ExamServiceSuite) certificateCount() int {
	_, total, err := s.certs.ListByUser(context.Background(), s.userID, certmodels.ListFilter{}.Normalize())
	s.Require().NoError(err)
	return total
}

func (s *ExamServiceSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil, s.enrollments, s.catalog, s.catalog, nil, tx.NewLocker())
		s.ErrorContains(err, "exam store is required")
	})
	s.Run("nil issuer returns error", func() {
		_, err := New(s.exams, s.enrollments, s.catalog, s.catalog, nil, tx.NewLocker())
		s.ErrorContains(err, "certificate issuer is required")
	})
}

func (s *ExamServiceSuite) TestStartExam() {
	s.Run("unknown enrollment is not found", func() {
		_, err := s.service.StartExam(s.ctx(), s.userID, id.EnrollmentID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	enrollmentID := s.enroll()

	s.Run("someone else's enrollment is not found", func() {
		_, err := s.service.StartExam(s.ctx(), id.UserID(uuid.New()), enrollmentID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("starts an in-progress exam", func() {
		exam, err := s.service.StartExam(s.ctx(), s.userID, enrollmentID)
		s.Require().NoError(err)
		s.Equal(models.StatusInProgress, exam.Status)
		s.Equal(s.certID, exam.CertificationID)
		s.Equal(s.now, exam.StartedAt)
		s.Nil(exam.Score)
		s.Equal(1.0, promtestutil.ToFloat64(s.metrics.ExamsStarted))
	})

	s.Run("second start conflicts", func() {
		_, err := s.service.StartExam(s.ctx(), s.userID, enrollmentID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ExamServiceSuite) TestStartExam_Concurrent() {
	enrollmentID := s.enroll()
	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		started   int
		conflicts int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.StartExam(s.ctx(), s.userID, enrollmentID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				started++
			case dErrors.HasCode(err, dErrors.CodeConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()
	s.Equal(1, started)
	s.Equal(workers-1, conflicts)

	exams, err := s.exams.ListByUser(context.Background(), s.userID)
	s.Require().NoError(err)
	s.Len(exams, 1)
}

func (s *ExamServiceSuite) TestGetQuestions() {
	exam, set := s.startWithQuestions()

	s.Run("returns the configured count of valid questions", func() {
		s.Len(set.Questions, DefaultQuestionCount)
		s.Equal(DefaultQuestionCount, set.TotalQuestions)
		seen := make(map[id.QuestionID]struct{})
		for _, q := range set.Questions {
			_, known := s.answers[q.ID]
			s.True(known, "question outside the valid pool")
			seen[q.ID] = struct{}{}
		}
		s.Len(seen, DefaultQuestionCount)
	})

	s.Run("set is stable across calls", func() {
		again, err := s.service.GetQuestions(s.ctx(), exam.ID, s.userID)
		s.Require().NoError(err)
		s.Equal(set.Questions, again.Questions)
	})

	s.Run("other users cannot read the exam", func() {
		_, err := s.service.GetQuestions(s.ctx(), exam.ID, id.UserID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ExamServiceSuite) TestGetQuestions_PoolTooSmall() {
	exam, err := s.service.StartExam(s.ctx(), s.userID, s.enroll())
	s.Require().NoError(err)

	small, err := New(s.exams, s.enrollments, s.catalog, s.catalog, &stubIssuer{}, tx.NewLocker(),
		WithQuestionCount(poolSize+1))
	s.Require().NoError(err)
	_, err = small.GetQuestions(s.ctx(), exam.ID, s.userID)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	s.ErrorContains(err, "not enough valid questions")
}

func (s *ExamServiceSuite) TestSubmitExam_Pass() {
	exam, set := s.startWithQuestions()

	result, err := s.service.SubmitExam(s.ctx(), exam.ID, s.userID, s.answersWithCorrect(set, 7))
	s.Require().NoError(err)
	s.Equal(70.0, result.Score)
	s.True(result.Passed)
	s.Equal(7, result.CorrectAnswers)
	s.Equal(10, result.TotalQuestions)
	s.Equal(string(enrollmodels.StatusApproved), result.EnrollmentStatus)
	s.Require().NotNil(result.CertificateID)

	s.Equal(enrollmodels.StatusApproved, s.enrollmentStatus())
	s.Equal(1, s.certificateCount())
	cert, err := s.certs.FindByID(context.Background(), *result.CertificateID)
	s.Require().NoError(err)
	s.True(cert.Active)
	s.Equal(s.now.AddDate(1, 0, 0), cert.ExpiresAt)
	s.Require().NotNil(cert.ExamID)
	s.Equal(exam.ID, *cert.ExamID)

	stored, err := s.exams.FindByID(context.Background(), exam.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusGraded, stored.Status)
	s.Require().NotNil(stored.CompletedAt)

	events, err := s.audit.ListByUser(context.Background(), s.userID)
	s.Require().NoError(err)
	var actions []string
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	s.Contains(actions, string(audit.EventExamGraded))
	s.Contains(actions, string(audit.EventCertificateIssued))
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.ExamsGraded.WithLabelValues("passed")))
}

func (s *ExamServiceSuite) TestSubmitExam_Fail() {
	exam, set := s.startWithQuestions()

	result, err := s.service.SubmitExam(s.ctx(), exam.ID, s.userID, s.answersWithCorrect(set, 6))
	s.Require().NoError(err)
	s.Equal(60.0, result.Score)
	s.False(result.Passed)
	s.Nil(result.CertificateID)
	s.Equal(enrollmodels.StatusReproved, s.enrollmentStatus())
	s.Zero(s.certificateCount())

	s.Run("reproved enrollment cannot start again", func() {
		items, err := s.enrollments.ListForUser(s.ctx(), s.userID)
		s.Require().NoError(err)
		_, err = s.service.StartExam(s.ctx(), s.userID, items[0].ID)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *ExamServiceSuite) TestSubmitExam_Rejections() {
	exam, set := s.startWithQuestions()
	valid := s.answersWithCorrect(set, 10)

	s.Run("empty answers", func() {
		_, err := s.service.SubmitExam(s.ctx(), exam.ID, s.userID, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("someone else's exam", func() {
		_, err := s.service.SubmitExam(s.ctx(), exam.ID, id.UserID(uuid.New()), valid)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("duplicate question", func() {
		dup := append([]models.Answer{}, valid[0], valid[0])
		_, err := s.service.SubmitExam(s.ctx(), exam.ID, s.userID, dup)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
		s.ErrorContains(err, "duplicate answer")
	})

	s.Run("unknown question", func() {
		_, err := s.service.SubmitExam(s.ctx(), exam.ID, s.userID, []models.Answer{{QuestionID: id.QuestionID(uuid.New())}})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
		s.ErrorContains(err, "invalid question id")
	})

	s.Run("valid question outside the sampled set", func() {
		sampled := make(map[id.QuestionID]struct{})
		for _, q := range set.Questions {
			sampled[q.ID] = struct{}{}
		}
		for qid := range s.answers {
			if _, ok := sampled[qid]; ok {
				continue
			}
			_, err := s.service.SubmitExam(s.ctx(), exam.ID, s.userID, []models.Answer{{QuestionID: qid}})
			s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
			s.ErrorContains(err, "not part of this exam")
			break
		}
	})

	s.Run("result before grading", func() {
		_, err := s.service.GetResult(s.ctx(), exam.ID, s.userID)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("second submission is rejected", func() {
		_, err := s.service.SubmitExam(s.ctx(), exam.ID, s.userID, valid)
		s.Require().NoError(err)
		_, err = s.service.SubmitExam(s.ctx(), exam.ID, s.userID, valid)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
		s.ErrorContains(err, "not in progress")
		s.Equal(1, s.certificateCount())
	})
}

func (s *ExamServiceSuite) TestSubmitExam_PartialAnswers() {
	exam, set := s.startWithQuestions()
	answers := s.answersWithCorrect(set, 10)[:4]

	result, err := s.service.SubmitExam(s.ctx(), exam.ID, s.userID, answers)
	s.Require().NoError(err)
	s.Equal(4, result.TotalQuestions)
	s.Equal(100.0, result.Score)
	s.True(result.Passed)
}

func (s *ExamServiceSuite) TestGetResultAndList() {
	exam, set := s.startWithQuestions()
	_, err := s.service.SubmitExam(s.ctx(), exam.ID, s.userID, s.answersWithCorrect(set, 8))
	s.Require().NoError(err)

	result, err := s.service.GetResult(s.ctx(), exam.ID, s.userID)
	s.Require().NoError(err)
	s.Equal(80.0, result.Score)
	s.True(result.Passed)
	s.Equal(8, result.CorrectAnswers)
	s.Equal(10, result.TotalQuestions)
	s.Equal(70.0, result.PassingScore)
	s.Equal("Go Fundamentals", result.CertificationName)
	s.Equal(s.now, result.CompletedAt)

	summaries, err := s.service.ListForUser(s.ctx(), s.userID)
	s.Require().NoError(err)
	s.Require().Len(summaries, 1)
	s.Equal("Go Fundamentals", summaries[0].CertificationName)
	s.Equal(models.StatusGraded, summaries[0].Status)
}

func (s *ExamServiceSuite) TestSubmitExam_IssuerFailure() {
	ctrl := gomock.NewController(s.T())
	issuer := mocks.NewMockCertificateIssuer(ctrl)
	svc, err := New(s.exams, s.enrollments, s.catalog, s.catalog, issuer, tx.NewLocker())
	s.Require().NoError(err)

	exam, err := svc.StartExam(s.ctx(), s.userID, s.enroll())
	s.Require().NoError(err)
	set, err := svc.GetQuestions(s.ctx(), exam.ID, s.userID)
	s.Require().NoError(err)

	issuer.EXPECT().IssueIfNoneActive(gomock.Any(), s.userID, s.certID, exam.ID).Return(nil, errors.New("db down"))
	_, err = svc.SubmitExam(s.ctx(), exam.ID, s.userID, s.answersWithCorrect(set, 10))
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	s.Run("grading is rolled back", func() {
		stored, err := s.exams.FindByID(context.Background(), exam.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusInProgress, stored.Status)
		s.Nil(stored.CompletedAt)
		answers, err := s.exams.ListAnswers(context.Background(), exam.ID)
		s.Require().NoError(err)
		s.Empty(answers)
		s.Equal(enrollmodels.StatusActive, s.enrollmentStatus())
	})

	s.Run("submission can be retried", func() {
		certID := id.CertificateID(uuid.New())
		issuer.EXPECT().IssueIfNoneActive(gomock.Any(), s.userID, s.certID, exam.ID).
			Return(&certmodels.Certificate{ID: certID}, nil)
		result, err := svc.SubmitExam(s.ctx(), exam.ID, s.userID, s.answersWithCorrect(set, 10))
		s.Require().NoError(err)
		s.True(result.Passed)
		s.Require().NotNil(result.CertificateID)
		s.Equal(certID, *result.CertificateID)
		s.Equal(enrollmodels.StatusApproved, s.enrollmentStatus())
	})
}

func (s *ExamServiceSuite) TestSubmitExam_EnrollmentRemoved() {
	exam, set := s.startWithQuestions()
	s.Require().NoError(s.enrollments.Unenroll(s.ctx(), s.userID, exam.EnrollmentID))

	_, err := s.service.SubmitExam(s.ctx(), exam.ID, s.userID, s.answersWithCorrect(set, 7))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	stored, err := s.exams.FindByID(context.Background(), exam.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusInProgress, stored.Status)
	answers, err := s.exams.ListAnswers(context.Background(), exam.ID)
	s.Require().NoError(err)
	s.Empty(answers)

	_, err = s.service.GetResult(s.ctx(), exam.ID, s.userID)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	events, err := s.audit.ListByUser(context.Background(), s.userID)
	s.Require().NoError(err)
	for _, e := range events {
		s.NotEqual(string(audit.EventExamGraded), e.Action)
	}
	s.Equal(0.0, promtestutil.ToFloat64(s.metrics.ExamsGraded.WithLabelValues("passed")))
}

type stubIssuer struct{}

func (stubIssuer) IssueIfNoneActive(context.Context, id.UserID, id.CertificationID, id.ExamID) (*certmodels.Certificate, error) {
	return nil, errors.New("not expected")
}
