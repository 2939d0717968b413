package audit

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Publisher stamps events and hands them to a store. With a buffer it only
// enqueues, and a Worker drains the queue; a full queue drops the event
// rather than slowing the request path.
type Publisher struct {
	store   Store
	queue   chan Event
	logger  *slog.Logger
	now     func() time.Time
	dropped atomic.Int64
}

type Option func(*Publisher)

// WithAsyncBuffer enables queued delivery with the given capacity.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.queue = make(chan Event, size)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if p.queue == nil {
		return p.store.Append(ctx, event)
	}
	select {
	case p.queue <- event:
	default:
		p.dropped.Add(1)
		p.logger.WarnContext(ctx, "audit queue full, dropping event", "action", event.Action, "event_id", event.ID)
	}
	return nil
}

// Dropped is the number of events discarded because the queue was full.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// Worker returns a worker draining this publisher's queue into its store, or
// nil when the publisher is synchronous.
func (p *Publisher) Worker() *Worker {
	if p.queue == nil {
		return nil
	}
	return NewWorker(p.store, p.queue, p.logger)
}
