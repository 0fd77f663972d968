// Package store provides catalog persistence. The catalog is maintained by
// the admin tooling; this service only reads it, plus a Seed helper for the
// in-memory mode.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"certus/internal/catalog/models"
	id "certus/pkg/domain"
	"certus/pkg/platform/sentinel"
)

// InMemoryStore keeps certifications, questions and students in maps.
type InMemoryStore struct {
	mu             sync.RWMutex
	certifications map[id.CertificationID]models.Certification
	questions      map[id.QuestionID]models.Question
	students       map[id.UserID]models.Student
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		certifications: make(map[id.CertificationID]models.Certification),
		questions:      make(map[id.QuestionID]models.Question),
		students:       make(map[id.UserID]models.Student),
	}
}

// Seed loads catalog rows; later calls overwrite rows with the same ID.
func (s *InMemoryStore) Seed(certs []models.Certification, questions []models.Question, students []models.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range certs {
		s.certifications[c.ID] = c
	}
	for _, q := range questions {
		s.questions[q.ID] = q
	}
	for _, st := range students {
		s.students[st.ID] = st
	}
}

func (s *InMemoryStore) FindCertification(_ context.Context, certID id.CertificationID) (*models.Certification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.certifications[certID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}

// ValidQuestions returns the certification's currently valid questions,
// ordered by creation time.
func (s *InMemoryStore) ValidQuestions(_ context.Context, certID id.CertificationID, now time.Time) ([]models.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Question
	for _, q := range s.questions {
		if q.CertificationID == certID && q.IsValid(now) {
			out = append(out, q)
		}
	}
	sortQuestions(out)
	return out, nil
}

// QuestionsByIDs returns the questions that exist among ids, in ids order.
func (s *InMemoryStore) QuestionsByIDs(_ context.Context, ids []id.QuestionID) ([]models.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Question, 0, len(ids))
	for _, qid := range ids {
		if q, ok := s.questions[qid]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *InMemoryStore) FindStudent(_ context.Context, userID id.UserID) (*models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.students[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &st, nil
}

func sortQuestions(qs []models.Question) {
	sort.Slice(qs, func(i, j int) bool {
		if qs[i].CreatedAt.Equal(qs[j].CreatedAt) {
			return qs[i].ID.String() < qs[j].ID.String()
		}
		return qs[i].CreatedAt.Before(qs[j].CreatedAt)
	})
}
