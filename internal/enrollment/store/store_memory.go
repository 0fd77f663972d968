package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"certus/internal/enrollment/models"
	id "certus/pkg/domain"
	"certus/pkg/platform/sentinel"
	"certus/pkg/platform/tx"
)

type userCertKey struct {
	user id.UserID
	cert id.CertificationID
}

// InMemoryStore keeps enrollments in maps guarded by a RWMutex. The
// (user, certification) index plays the role of the unique constraint.
// Writes made inside a tx.Locker unit of work are undone if the unit fails.
type InMemoryStore struct {
	mu         sync.RWMutex
	byID       map[id.EnrollmentID]*models.Enrollment
	byUserCert map[userCertKey]id.EnrollmentID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byID:       make(map[id.EnrollmentID]*models.Enrollment),
		byUserCert: make(map[userCertKey]id.EnrollmentID),
	}
}

func (s *InMemoryStore) Create(ctx context.Context, e *models.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := userCertKey{user: e.UserID, cert: e.CertificationID}
	if _, exists := s.byUserCert[key]; exists {
		return sentinel.ErrConflict
	}
	cp := *e
	s.put(&cp)
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.remove(&cp)
	})
	return nil
}

func (s *InMemoryStore) FindByUserAndCertification(_ context.Context, userID id.UserID, certID id.CertificationID) (*models.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	eid, ok := s.byUserCert[userCertKey{user: userID, cert: certID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[eid]
	return &cp, nil
}

// ListByUser returns the user's enrollments, oldest first.
func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*models.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Enrollment
	for _, e := range s.byID {
		if e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) Delete(ctx context.Context, userID id.UserID, enrollmentID id.EnrollmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[enrollmentID]
	if !ok || e.UserID != userID {
		return sentinel.ErrNotFound
	}
	s.remove(e)
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.put(e)
	})
	return nil
}

// TransitionStatus moves the enrollment from one status to another only when
// it is still in from.
func (s *InMemoryStore) TransitionStatus(ctx context.Context, enrollmentID id.EnrollmentID, from, to models.Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[enrollmentID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if e.Status != from {
		return sentinel.ErrInvalidState
	}
	prev := *e
	next := *e
	next.Status = to
	next.UpdatedAt = at
	s.byID[enrollmentID] = &next
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.byID[enrollmentID]; ok {
			s.byID[enrollmentID] = &prev
		}
	})
	return nil
}

func (s *InMemoryStore) put(e *models.Enrollment) {
	s.byID[e.ID] = e
	s.byUserCert[userCertKey{user: e.UserID, cert: e.CertificationID}] = e.ID
}

func (s *InMemoryStore) remove(e *models.Enrollment) {
	delete(s.byUserCert, userCertKey{user: e.UserID, cert: e.CertificationID})
	delete(s.byID, e.ID)
}
