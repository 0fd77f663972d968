package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"certus/internal/exam/models"
	id "certus/pkg/domain"
	"certus/pkg/platform/sentinel"
	"certus/pkg/platform/tx"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store  *InMemoryStore
	runner *tx.Locker
	ctx    context.Context
	now    time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.runner = tx.NewLocker()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) newExam() *models.Exam {
	return &models.Exam{
		ID:              id.ExamID(uuid.New()),
		UserID:          id.UserID(uuid.New()),
		EnrollmentID:    id.EnrollmentID(uuid.New()),
		CertificationID: id.CertificationID(uuid.New()),
		Status:          models.StatusInProgress,
		StartedAt:       s.now,
	}
}

func answerFor(examID id.ExamID, questionID id.QuestionID) models.ExamAnswer {
	return models.ExamAnswer{
		ID:         id.ExamAnswerID(uuid.New()),
		ExamID:     examID,
		QuestionID: questionID,
		UserAnswer: true,
		IsCorrect:  true,
	}
}

func (s *InMemoryStoreSuite) TestCreate_OneInProgressPerEnrollment() {
	first := s.newExam()
	s.Require().NoError(s.store.Create(s.ctx, first))

	second := s.newExam()
	second.UserID, second.EnrollmentID, second.CertificationID = first.UserID, first.EnrollmentID, first.CertificationID
	s.ErrorIs(s.store.Create(s.ctx, second), sentinel.ErrConflict)

	s.Require().NoError(s.store.MarkGraded(s.ctx, first.ID, 80, true, s.now))
	s.NoError(s.store.Create(s.ctx, second))
}

func (s *InMemoryStoreSuite) TestMarkGraded_OnlyFromInProgress() {
	e := s.newExam()
	s.Require().NoError(s.store.Create(s.ctx, e))
	s.Require().NoError(s.store.MarkGraded(s.ctx, e.ID, 80, true, s.now))
	s.ErrorIs(s.store.MarkGraded(s.ctx, e.ID, 90, true, s.now), sentinel.ErrInvalidState)
	s.ErrorIs(s.store.MarkGraded(s.ctx, id.ExamID(uuid.New()), 90, true, s.now), sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestInsertAnswers_AllOrNothing() {
	e := s.newExam()
	s.Require().NoError(s.store.Create(s.ctx, e))
	q1, q2 := id.QuestionID(uuid.New()), id.QuestionID(uuid.New())
	s.Require().NoError(s.store.InsertAnswers(s.ctx, []models.ExamAnswer{answerFor(e.ID, q1)}))

	s.Run("duplicate of a stored answer", func() {
		err := s.store.InsertAnswers(s.ctx, []models.ExamAnswer{answerFor(e.ID, q2), answerFor(e.ID, q1)})
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("duplicate within the batch", func() {
		q3 := id.QuestionID(uuid.New())
		err := s.store.InsertAnswers(s.ctx, []models.ExamAnswer{answerFor(e.ID, q3), answerFor(e.ID, q3)})
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	answers, err := s.store.ListAnswers(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Len(answers, 1)
}

func (s *InMemoryStoreSuite) TestFailedUnitOfWorkIsUndone() {
	graded := s.newExam()
	s.Require().NoError(s.store.Create(s.ctx, graded))
	fresh := s.newExam()
	boom := errors.New("issuer unavailable")

	err := s.runner.RunInTx(s.ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, fresh); err != nil {
			return err
		}
		if _, err := s.store.SetQuestionsIfUnset(ctx, graded.ID, []id.QuestionID{id.QuestionID(uuid.New())}); err != nil {
			return err
		}
		if err := s.store.MarkGraded(ctx, graded.ID, 100, true, s.now); err != nil {
			return err
		}
		if err := s.store.InsertAnswers(ctx, []models.ExamAnswer{answerFor(graded.ID, id.QuestionID(uuid.New()))}); err != nil {
			return err
		}
		return boom
	})
	s.Require().ErrorIs(err, boom)

	_, err = s.store.FindByID(s.ctx, fresh.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindInProgress(s.ctx, fresh.UserID, fresh.EnrollmentID, fresh.CertificationID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	stored, err := s.store.FindByID(s.ctx, graded.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusInProgress, stored.Status)
	s.Nil(stored.Score)
	s.Nil(stored.CompletedAt)
	s.Empty(stored.QuestionIDs)

	inProgress, err := s.store.FindInProgress(s.ctx, graded.UserID, graded.EnrollmentID, graded.CertificationID)
	s.Require().NoError(err)
	s.Equal(graded.ID, inProgress.ID)

	answers, err := s.store.ListAnswers(s.ctx, graded.ID)
	s.Require().NoError(err)
	s.Empty(answers)
}

func (s *InMemoryStoreSuite) TestCommittedUnitOfWorkIsKept() {
	e := s.newExam()
	s.Require().NoError(s.store.Create(s.ctx, e))

	err := s.runner.RunInTx(s.ctx, func(ctx context.Context) error {
		if err := s.store.MarkGraded(ctx, e.ID, 80, true, s.now); err != nil {
			return err
		}
		return s.store.InsertAnswers(ctx, []models.ExamAnswer{answerFor(e.ID, id.QuestionID(uuid.New()))})
	})
	s.Require().NoError(err)

	stored, err := s.store.FindByID(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusGraded, stored.Status)
	answers, err := s.store.ListAnswers(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Len(answers, 1)
}
