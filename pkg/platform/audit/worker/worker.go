package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "certus/pkg/platform/audit"
	"certus/pkg/platform/tx"
)

// Sink delivers outbox entries downstream (Kafka in production).
type Sink interface {
	Send(ctx context.Context, entries []audit.OutboxEntry) error
}

// Relay polls the outbox and forwards unpublished entries to a Sink. Delivery
// is at-least-once: an entry is marked published only after Send succeeds.
type Relay struct {
	outbox    audit.Outbox
	sink      Sink
	tx        tx.Runner
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

type Option func(*Relay)

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func NewRelay(outbox audit.Outbox, sink Sink, runner tx.Runner, opts ...Option) *Relay {
	r := &Relay{
		outbox:    outbox,
		sink:      sink,
		tx:        runner,
		interval:  2 * time.Second,
		batchSize: 100,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until ctx is cancelled. Batch failures are logged and retried on
// the next tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for {
				n, err := r.RelayOnce(ctx)
				if err != nil {
					r.logger.WarnContext(ctx, "outbox relay failed", "error", err)
					break
				}
				if n < r.batchSize {
					break
				}
			}
		}
	}
}

// RelayOnce forwards at most one batch and reports how many entries it sent.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	var sent int
	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		entries, err := r.outbox.FetchUnpublished(ctx, r.batchSize)
		if err != nil || len(entries) == 0 {
			return err
		}
		if err := r.sink.Send(ctx, entries); err != nil {
			return err
		}
		ids := make([]uuid.UUID, len(entries))
		for i, e := range entries {
			ids[i] = e.ID
		}
		if err := r.outbox.MarkPublished(ctx, ids, time.Now()); err != nil {
			return err
		}
		sent = len(entries)
		return nil
	})
	return sent, err
}
