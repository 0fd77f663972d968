// Package tx carries a SQL transaction through context so that stores can
// join a unit of work opened by a service without changing their signatures.
package tx

import (
	"context"
	"database/sql"
	"sync"
	"time"

	dErrors "certus/pkg/domain-errors"
)

type ctxKey struct{}

type lockerKey struct{}

type journalKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Runner opens a unit of work. Stores called with the ctx passed to fn
// participate in it.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// DefaultTimeout bounds a unit of work when the caller set no deadline.
const DefaultTimeout = 5 * time.Second

// journal collects compensations registered by in-memory stores during one
// Locker unit of work.
type journal struct {
	mu   sync.Mutex
	undo []func()
}

func (j *journal) add(fn func()) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.undo = append(j.undo, fn)
}

// absorb moves inner's compensations into j, after j's own.
func (j *journal) absorb(inner *journal) {
	inner.mu.Lock()
	undo := inner.undo
	inner.undo = nil
	inner.mu.Unlock()
	j.mu.Lock()
	defer j.mu.Unlock()
	j.undo = append(j.undo, undo...)
}

// rollback runs compensations newest first.
func (j *journal) rollback() {
	j.mu.Lock()
	undo := j.undo
	j.undo = nil
	j.mu.Unlock()
	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}
}

// OnRollback registers fn to run if the enclosing Locker unit of work fails.
// Outside a Locker unit of work it does nothing; SQL transactions roll back
// on their own.
func OnRollback(ctx context.Context, fn func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.add(fn)
	}
}

// Locker is the in-memory Runner. It serializes units of work behind a single
// mutex and undoes the writes of a failed unit through the compensations
// stores register with OnRollback. A nested RunInTx on the same Locker joins
// the outer unit of work.
type Locker struct {
	mu      sync.Mutex
	timeout time.Duration
}

// NewLocker builds an in-memory Runner.
func NewLocker() *Locker {
	return &Locker{timeout: DefaultTimeout}
}

func (l *Locker) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if held, _ := ctx.Value(lockerKey{}).(*Locker); held == l {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	outer, _ := ctx.Value(journalKey{}).(*journal)
	j := &journal{}
	ctx = context.WithValue(context.WithValue(ctx, lockerKey{}, l), journalKey{}, j)
	defer func() {
		if r := recover(); r != nil {
			j.rollback()
			panic(r)
		}
	}()
	if err := fn(ctx); err != nil {
		j.rollback()
		return err
	}
	// A unit committed inside another Locker's unit is undone with it.
	if outer != nil {
		outer.absorb(j)
	}
	return nil
}
