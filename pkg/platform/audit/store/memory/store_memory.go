package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	id "certus/pkg/domain"
	audit "certus/pkg/platform/audit"
	"certus/pkg/platform/tx"
)

type record struct {
	entry     audit.OutboxEntry
	event     audit.Event
	published bool
}

// InMemoryStore is an outbox kept in process memory. An append made inside
// a tx.Locker unit of work is dropped if the unit fails.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []*record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
}

func (s *InMemoryStore) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()
	payload, err := json.Marshal(audit.NewPayload(eventID, event))
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, &record{
		entry: audit.OutboxEntry{
			ID:            eventID,
			AggregateType: event.AggregateType,
			AggregateID:   event.AggregateID,
			EventType:     event.Action,
			Payload:       payload,
			CreatedAt:     time.Now(),
		},
		event: event,
	})
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.records = slices.DeleteFunc(s.records, func(r *record) bool { return r.entry.ID == eventID })
	})
	return nil
}

// ListByUser returns the events appended for userID in append order.
func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, r := range s.records {
		if r.event.UserID == userID {
			out = append(out, r.event)
		}
	}
	return out, nil
}

// ListAll returns every appended event in append order.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Event, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.event)
	}
	return out, nil
}

func (s *InMemoryStore) FetchUnpublished(_ context.Context, limit int) ([]audit.OutboxEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.OutboxEntry
	for _, r := range s.records {
		if r.published {
			continue
		}
		out = append(out, r.entry)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) MarkPublished(_ context.Context, ids []uuid.UUID, _ time.Time) error {
	want := make(map[uuid.UUID]struct{}, len(ids))
	for _, i := range ids {
		want[i] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if _, ok := want[r.entry.ID]; ok {
			r.published = true
		}
	}
	return nil
}
