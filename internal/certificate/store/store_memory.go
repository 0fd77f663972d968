package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"certus/internal/certificate/models"
	id "certus/pkg/domain"
	"certus/pkg/platform/sentinel"
	"certus/pkg/platform/tx"
)

// InMemoryStore keeps certificates in a map under one mutex, which also
// serializes issuance per (user, certification). Writes made inside a
// tx.Locker unit of work are undone if the unit fails.
type InMemoryStore struct {
	mu    sync.RWMutex
	certs map[id.CertificateID]*models.Certificate
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{certs: make(map[id.CertificateID]*models.Certificate)}
}

// CreateIfNoneActive inserts c unless the user already holds a certificate
// for the certification that is valid at now; it returns the stored one and
// whether it was created.
func (s *InMemoryStore) CreateIfNoneActive(ctx context.Context, c *models.Certificate, now time.Time) (*models.Certificate, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.certs {
		if existing.UserID == c.UserID && existing.CertificationID == c.CertificationID && existing.IsValidAt(now) {
			return clone(existing), false, nil
		}
	}
	s.certs[c.ID] = clone(c)
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.certs, c.ID)
	})
	return clone(c), true, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, certID id.CertificateID) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.certs[certID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(c), nil
}

func (s *InMemoryStore) Deactivate(ctx context.Context, certID id.CertificateID, at time.Time) error {
	return s.update(ctx, certID, func(c *models.Certificate) error {
		c.Active = false
		c.UpdatedAt = at
		return nil
	})
}

// SetSnapshotIfEmpty writes the names only when no snapshot exists and
// returns the certificate as stored afterwards.
func (s *InMemoryStore) SetSnapshotIfEmpty(ctx context.Context, certID id.CertificateID, studentName, certificationName string, at time.Time) (*models.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.certs[certID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !c.HasSnapshot() {
		next := clone(c)
		next.SnapshotStudentName = studentName
		next.SnapshotCertificationName = certificationName
		next.UpdatedAt = at
		s.certs[certID] = next
		s.onRollback(ctx, c)
		c = next
	}
	return clone(c), nil
}

// ListByUser returns one page of the user's certificates, newest first, and
// the total matching the filter.
func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID, filter models.ListFilter) ([]*models.Certificate, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []*models.Certificate
	for _, c := range s.certs {
		if c.UserID != userID {
			continue
		}
		if filter.Active != nil && c.Active != *filter.Active {
			continue
		}
		matched = append(matched, clone(c))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	start := min(filter.Offset(), total)
	end := min(start+filter.Limit, total)
	return matched[start:end], total, nil
}

// ClaimAnchor moves an unanchored or failed certificate to anchor_requested.
func (s *InMemoryStore) ClaimAnchor(ctx context.Context, certID id.CertificateID, dataHash, wallet string, at time.Time) error {
	return s.update(ctx, certID, func(c *models.Certificate) error {
		if !c.Anchor.Status.Claimable() {
			return sentinel.ErrInvalidState
		}
		c.Anchor.Status = models.AnchorRequested
		c.Anchor.DataHash = dataHash
		c.Anchor.WalletAddress = wallet
		c.Anchor.TxHash = ""
		c.Anchor.NFTID = ""
		c.Anchor.Error = ""
		c.Anchor.RequestedAt = &at
		c.UpdatedAt = at
		return nil
	})
}

func (s *InMemoryStore) RecordAnchorTx(ctx context.Context, certID id.CertificateID, txHash string, at time.Time) error {
	return s.update(ctx, certID, func(c *models.Certificate) error {
		if c.Anchor.Status != models.AnchorRequested {
			return sentinel.ErrInvalidState
		}
		c.Anchor.TxHash = txHash
		c.UpdatedAt = at
		return nil
	})
}

func (s *InMemoryStore) CompleteAnchor(ctx context.Context, certID id.CertificateID, txHash, nftID string, at time.Time) error {
	return s.update(ctx, certID, func(c *models.Certificate) error {
		if !c.Anchor.Status.CanTransitionTo(models.Anchored) {
			return sentinel.ErrInvalidState
		}
		c.Anchor.Status = models.Anchored
		c.Anchor.TxHash = txHash
		c.Anchor.NFTID = nftID
		c.Anchor.Error = ""
		c.Anchor.AnchoredAt = &at
		c.UpdatedAt = at
		return nil
	})
}

func (s *InMemoryStore) FailAnchor(ctx context.Context, certID id.CertificateID, reason string, at time.Time) error {
	return s.update(ctx, certID, func(c *models.Certificate) error {
		if !c.Anchor.Status.CanTransitionTo(models.AnchorFailed) {
			return sentinel.ErrInvalidState
		}
		c.Anchor.Status = models.AnchorFailed
		c.Anchor.Error = reason
		c.UpdatedAt = at
		return nil
	})
}

// ListStaleAnchorRequests returns anchor_requested certificates claimed
// before the cutoff, oldest first.
func (s *InMemoryStore) ListStaleAnchorRequests(_ context.Context, before time.Time, limit int) ([]*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Certificate
	for _, c := range s.certs {
		if c.Anchor.Status == models.AnchorRequested && c.Anchor.RequestedAt != nil && c.Anchor.RequestedAt.Before(before) {
			out = append(out, clone(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Anchor.RequestedAt.Before(*out[j].Anchor.RequestedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ExpireDue deactivates active certificates whose expiry has passed and
// returns them.
func (s *InMemoryStore) ExpireDue(ctx context.Context, now time.Time, limit int) ([]*models.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Certificate
	for certID, c := range s.certs {
		if limit > 0 && len(out) >= limit {
			break
		}
		if c.Active && c.IsExpired(now) {
			next := clone(c)
			next.Active = false
			next.UpdatedAt = now
			s.certs[certID] = next
			s.onRollback(ctx, c)
			out = append(out, clone(next))
		}
	}
	return out, nil
}

func (s *InMemoryStore) update(ctx context.Context, certID id.CertificateID, fn func(c *models.Certificate) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.certs[certID]
	if !ok {
		return sentinel.ErrNotFound
	}
	next := clone(c)
	if err := fn(next); err != nil {
		return err
	}
	s.certs[certID] = next
	s.onRollback(ctx, c)
	return nil
}

// onRollback restores prev if the enclosing unit of work fails.
func (s *InMemoryStore) onRollback(ctx context.Context, prev *models.Certificate) {
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.certs[prev.ID] = prev
	})
}

func clone(c *models.Certificate) *models.Certificate {
	cp := *c
	if c.ExamID != nil {
		v := *c.ExamID
		cp.ExamID = &v
	}
	if c.Anchor.RequestedAt != nil {
		v := *c.Anchor.RequestedAt
		cp.Anchor.RequestedAt = &v
	}
	if c.Anchor.AnchoredAt != nil {
		v := *c.Anchor.AnchoredAt
		cp.Anchor.AnchoredAt = &v
	}
	return &cp
}
