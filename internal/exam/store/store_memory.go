package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"certus/internal/exam/models"
	id "certus/pkg/domain"
	"certus/pkg/platform/sentinel"
	"certus/pkg/platform/tx"
)

type inProgressKey struct {
	user       id.UserID
	enrollment id.EnrollmentID
	cert       id.CertificationID
}

// InMemoryStore keeps exams and answers in maps. The in-progress index stands
// in for the partial unique index the Postgres schema declares. Writes made
// inside a tx.Locker unit of work are undone if the unit fails.
type InMemoryStore struct {
	mu         sync.RWMutex
	exams      map[id.ExamID]*models.Exam
	inProgress map[inProgressKey]id.ExamID
	answers    map[id.ExamID][]models.ExamAnswer
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		exams:      make(map[id.ExamID]*models.Exam),
		inProgress: make(map[inProgressKey]id.ExamID),
		answers:    make(map[id.ExamID][]models.ExamAnswer),
	}
}

func keyOf(e *models.Exam) inProgressKey {
	return inProgressKey{user: e.UserID, enrollment: e.EnrollmentID, cert: e.CertificationID}
}

func (s *InMemoryStore) Create(ctx context.Context, e *models.Exam) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.Status == models.StatusInProgress {
		if _, exists := s.inProgress[keyOf(e)]; exists {
			return sentinel.ErrConflict
		}
		s.inProgress[keyOf(e)] = e.ID
	}
	s.exams[e.ID] = cloneExam(e)
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.inProgress[keyOf(e)] == e.ID {
			delete(s.inProgress, keyOf(e))
		}
		delete(s.exams, e.ID)
	})
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, examID id.ExamID) (*models.Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.exams[examID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneExam(e), nil
}

// FindInProgress returns the in-progress exam for the tuple, if any.
func (s *InMemoryStore) FindInProgress(_ context.Context, userID id.UserID, enrollmentID id.EnrollmentID, certID id.CertificationID) (*models.Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	examID, ok := s.inProgress[inProgressKey{user: userID, enrollment: enrollmentID, cert: certID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneExam(s.exams[examID]), nil
}

// ListByUser returns the user's exams, newest first.
func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*models.Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Exam
	for _, e := range s.exams {
		if e.UserID == userID {
			out = append(out, cloneExam(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

// SetQuestionsIfUnset stores questionIDs unless a set already exists, and
// returns whichever set is stored afterwards.
func (s *InMemoryStore) SetQuestionsIfUnset(ctx context.Context, examID id.ExamID, questionIDs []id.QuestionID) ([]id.QuestionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.exams[examID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if len(e.QuestionIDs) == 0 {
		e.QuestionIDs = slices.Clone(questionIDs)
		tx.OnRollback(ctx, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if cur, ok := s.exams[examID]; ok {
				cur.QuestionIDs = nil
			}
		})
	}
	return slices.Clone(e.QuestionIDs), nil
}

// MarkGraded transitions in_progress → graded; any other state is
// sentinel.ErrInvalidState.
func (s *InMemoryStore) MarkGraded(ctx context.Context, examID id.ExamID, score float64, passed bool, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.exams[examID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if e.Status != models.StatusInProgress {
		return sentinel.ErrInvalidState
	}
	prev := cloneExam(e)
	delete(s.inProgress, keyOf(e))
	e.Status = models.StatusGraded
	e.Score = &score
	e.Passed = &passed
	e.CompletedAt = &completedAt
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.exams[examID] = prev
		s.inProgress[keyOf(prev)] = prev.ID
	})
	return nil
}

// InsertAnswers stores every answer or none; an answer for a question the
// exam already holds, or a repeat within the batch, is sentinel.ErrConflict.
func (s *InMemoryStore) InsertAnswers(ctx context.Context, answers []models.ExamAnswer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	type examQuestion struct {
		exam     id.ExamID
		question id.QuestionID
	}
	taken := make(map[examQuestion]struct{})
	for _, a := range answers {
		for _, existing := range s.answers[a.ExamID] {
			taken[examQuestion{existing.ExamID, existing.QuestionID}] = struct{}{}
		}
	}
	prev := make(map[id.ExamID][]models.ExamAnswer)
	for _, a := range answers {
		k := examQuestion{a.ExamID, a.QuestionID}
		if _, dup := taken[k]; dup {
			return sentinel.ErrConflict
		}
		taken[k] = struct{}{}
		if _, saved := prev[a.ExamID]; !saved {
			prev[a.ExamID] = slices.Clone(s.answers[a.ExamID])
		}
	}
	for _, a := range answers {
		s.answers[a.ExamID] = append(s.answers[a.ExamID], a)
	}
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for examID, before := range prev {
			if len(before) == 0 {
				delete(s.answers, examID)
				continue
			}
			s.answers[examID] = before
		}
	})
	return nil
}

func (s *InMemoryStore) ListAnswers(_ context.Context, examID id.ExamID) ([]models.ExamAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.answers[examID]), nil
}

func cloneExam(e *models.Exam) *models.Exam {
	cp := *e
	cp.QuestionIDs = slices.Clone(e.QuestionIDs)
	if e.Score != nil {
		v := *e.Score
		cp.Score = &v
	}
	if e.Passed != nil {
		v := *e.Passed
		cp.Passed = &v
	}
	if e.CompletedAt != nil {
		v := *e.CompletedAt
		cp.CompletedAt = &v
	}
	return &cp
}
