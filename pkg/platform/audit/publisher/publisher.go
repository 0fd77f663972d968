// Package publisher emits domain events to the audit store.
//
// Compliance events are fail-closed: Emit returns the store error and the
// calling operation must abort its transaction. Operations events are
// best-effort and only logged when they cannot be written.
package publisher

import (
	"context"
	"fmt"
	"log/slog"

	audit "certus/pkg/platform/audit"
	"certus/pkg/requestcontext"
)

// Publisher writes events to an audit.Store.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// New creates a publisher over store.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit stamps the event with category, time and request ID and appends it.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Action == "" {
		return fmt.Errorf("audit event requires Action")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	event.Category = audit.AuditEvent(event.Action).Category()

	if err := p.store.Append(ctx, event); err != nil {
		if event.Category == audit.CategoryCompliance {
			if p.logger != nil {
				p.logger.ErrorContext(ctx, "CRITICAL: compliance audit failed",
					"action", event.Action,
					"aggregate_id", event.AggregateID,
					"error", err,
				)
			}
			return fmt.Errorf("append %s: %w", event.Action, err)
		}
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit event dropped",
				"action", event.Action,
				"aggregate_id", event.AggregateID,
				"error", err,
			)
		}
		return nil
	}

	if p.logger != nil {
		p.logger.InfoContext(ctx, event.Action,
			"event", event.Action,
			"log_type", "audit",
			"aggregate_type", event.AggregateType,
			"aggregate_id", event.AggregateID,
			"user_id", event.UserID.String(),
			"request_id", event.RequestID,
		)
	}
	return nil
}
