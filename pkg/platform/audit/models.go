package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "certus/pkg/domain"
)

// EventCategory classifies events by retention and routing needs.
type EventCategory string

const (
	// CategoryCompliance covers records a certificate holder or auditor may
	// later rely on: grading outcomes, issuance, anchoring.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine lifecycle activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. It stays
// transport-agnostic; the outbox relay decides where it goes.
type Event struct {
	Category      EventCategory
	Timestamp     time.Time
	UserID        id.UserID
	Action        string
	AggregateType string
	AggregateID   string
	// Attributes carry event specific values (score, tx hash, ...).
	Attributes map[string]string
	RequestID  string
}

type AuditEvent string

const (
	EventEnrollmentCreated AuditEvent = "enrollment_created"
	EventEnrollmentRemoved AuditEvent = "enrollment_removed"

	EventExamStarted AuditEvent = "exam_started"
	EventExamGraded  AuditEvent = "exam_graded"

	EventCertificateIssued  AuditEvent = "certificate_issued"
	EventCertificateExpired AuditEvent = "certificate_expired"

	EventAnchorRequested AuditEvent = "certificate_anchor_requested"
	EventAnchored        AuditEvent = "certificate_anchored"
	EventAnchorFailed    AuditEvent = "certificate_anchor_failed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventExamGraded:         CategoryCompliance,
	EventCertificateIssued:  CategoryCompliance,
	EventCertificateExpired: CategoryCompliance,
	EventAnchored:           CategoryCompliance,
	EventAnchorFailed:       CategoryCompliance,

	EventEnrollmentCreated: CategoryOperations,
	EventEnrollmentRemoved: CategoryOperations,
	EventExamStarted:       CategoryOperations,
	EventAnchorRequested:   CategoryOperations,
}

// Category returns the EventCategory for this event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store appends events. Postgres implementations write to the outbox inside
// the caller's transaction when one is present in ctx.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// OutboxEntry is an appended event awaiting relay.
type OutboxEntry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// Outbox is the relay's view of a Store.
type Outbox interface {
	FetchUnpublished(ctx context.Context, limit int) ([]OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Payload is the JSON body published for every event.
type Payload struct {
	ID            string            `json:"id"`
	Category      string            `json:"category"`
	Timestamp     string            `json:"timestamp"`
	UserID        string            `json:"user_id,omitempty"`
	Action        string            `json:"action"`
	AggregateType string            `json:"aggregate_type"`
	AggregateID   string            `json:"aggregate_id"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	RequestID     string            `json:"request_id,omitempty"`
}

// NewPayload builds the wire form of event under a fresh event ID.
func NewPayload(eventID uuid.UUID, event Event) Payload {
	p := Payload{
		ID:            eventID.String(),
		Category:      string(AuditEvent(event.Action).Category()),
		Timestamp:     event.Timestamp.UTC().Format(time.RFC3339Nano),
		Action:        event.Action,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Attributes:    event.Attributes,
		RequestID:     event.RequestID,
	}
	if !event.UserID.IsNil() {
		p.UserID = event.UserID.String()
	}
	return p
}
