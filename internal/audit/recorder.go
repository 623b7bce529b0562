// Package audit records sensitive admin actions without holding up the action itself.
package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"graceparish.org/internal/ids"
	"graceparish.org/internal/obs"
	"graceparish.org/internal/stream"
)

const (
	ActionRoleAssign    = "role.assign"
	ActionRoleRevoke    = "role.revoke"
	ActionUserDelete    = "user.delete"
	ActionContentDelete = "content.delete"

	defaultQueue        = 256
	defaultWriteTimeout = 5 * time.Second
)

// ErrQueueFull is reported when a record is dropped because the worker is behind.
var ErrQueueFull = errors.New("audit: queue full")

// ErrClosed is reported for records submitted after Close.
var ErrClosed = errors.New("audit: recorder closed")

// Record is one append-only audit entry.
type Record struct {
	ID         string         `json:"id"`
	ActorID    string         `json:"actor_id"`
	Action     string         `json:"action"`
	TargetID   string         `json:"target_id"`
	Details    map[string]any `json:"details,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Store persists audit records.
type Store interface {
	AppendAudit(ctx context.Context, rec Record) error
	ListAudit(ctx context.Context, limit int) ([]Record, error)
}

type job struct {
	ctx context.Context
	rec Record
}

// Recorder writes audit records on a detached worker. Record never blocks and
// never reports failure to its caller; failures surface on Errors and in metrics.
type Recorder struct {
	store   Store
	feed    *stream.Hub[Record]
	timeout time.Duration
	now     func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan job
	errs   chan error
	done   chan struct{}
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithFeed publishes every stored record to hub.
func WithFeed(hub *stream.Hub[Record]) Option {
	return func(r *Recorder) { r.feed = hub }
}

// WithWriteTimeout bounds each store write.
func WithWriteTimeout(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(r *Recorder) {
		if fn != nil {
			r.now = fn
		}
	}
}

// NewRecorder starts the worker. queue <= 0 uses the default capacity.
func NewRecorder(store Store, queue int, opts ...Option) *Recorder {
	if queue <= 0 {
		queue = defaultQueue
	}
	r := &Recorder{
		store:   store,
		timeout: defaultWriteTimeout,
		now:     time.Now,
		queue:   make(chan job, queue),
		errs:    make(chan error, 16),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.run()
	return r
}

// Record enqueues an entry for actorID acting on targetID. It returns immediately.
func (r *Recorder) Record(ctx context.Context, actorID, action, targetID string, details map[string]any) {
	if r == nil {
		return
	}
	rec := Record{
		ID:         ids.New(),
		ActorID:    actorID,
		Action:     strings.TrimSpace(action),
		TargetID:   targetID,
		Details:    details,
		OccurredAt: r.now().UTC(),
	}
	if ctx == nil {
		ctx = context.Background()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.fail(rec, ErrClosed)
		return
	}
	select {
	case r.queue <- job{ctx: context.WithoutCancel(ctx), rec: rec}:
	default:
		r.fail(rec, ErrQueueFull)
	}
}

// Errors delivers write failures. Failures are dropped when nobody reads.
func (r *Recorder) Errors() <-chan error {
	return r.errs
}

// Close stops accepting records and waits for queued ones to be written.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for j := range r.queue {
		r.write(j)
	}
}

func (r *Recorder) write(j job) {
	if r.store == nil {
		r.fail(j.rec, errors.New("audit: store is not configured"))
		return
	}
	ctx, cancel := context.WithTimeout(j.ctx, r.timeout)
	defer cancel()
	if err := r.store.AppendAudit(ctx, j.rec); err != nil {
		r.fail(j.rec, err)
		return
	}
	_ = LogEvent(j.ctx, j.rec.Action, map[string]any{
		"audit_id":  j.rec.ID,
		"actor_id":  j.rec.ActorID,
		"target_id": j.rec.TargetID,
		"details":   j.rec.Details,
	})
	if r.feed != nil {
		r.feed.Publish(j.rec)
	}
}

func (r *Recorder) fail(rec Record, err error) {
	obs.ObserveAuditFailure()
	obs.Warn("audit write failed", map[string]any{
		"action":    rec.Action,
		"actor_id":  rec.ActorID,
		"target_id": rec.TargetID,
		"err":       err,
	})
	select {
	case r.errs <- fmt.Errorf("%s %s: %w", rec.Action, rec.TargetID, err):
	default:
	}
}
