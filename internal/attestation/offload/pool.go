// Package offload runs the attestation engine on a pool of worker goroutines
// so request handlers never execute proving or verification themselves.
//
// Callers submit typed requests over a bounded channel and wait on a one-shot
// reply. A caller that stops waiting abandons its call; the engine still runs
// it to completion and the result is dropped.
package offload

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"zkattest/internal/attestation/metrics"
	"zkattest/internal/attestation/models"
	dErrors "zkattest/pkg/domain-errors"
	"zkattest/pkg/platform/sentinel"
)

// Engine is the work executed on the worker side.
type Engine interface {
	CalculateCommitment(ctx context.Context, f models.Fields) (string, error)
	CreateProof(ctx context.Context, f models.Fields) (models.Bundle, error)
	VerifyProof(ctx context.Context, b models.Bundle) (models.VerifyResult, error)
	Ping(ctx context.Context) models.Liveness
}

const (
	defaultWorkers   = 2
	defaultQueueSize = 64
)

type Pool struct {
	engine    Engine
	workers   int
	queueSize int
	logger    *slog.Logger
	metrics   *metrics.Metrics

	requests  chan request
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

type Option func(*Pool)

func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(p *Pool) {
		if n >= 0 {
			p.queueSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pool) {
		p.metrics = m
	}
}

func NewPool(engine Engine, opts ...Option) *Pool {
	p := &Pool{
		engine:    engine,
		workers:   defaultWorkers,
		queueSize: defaultQueueSize,
		logger:    slog.Default(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.requests = make(chan request, p.queueSize)
	return p
}

// Start launches the workers. It is safe to call more than once.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		for i := range p.workers {
			p.wg.Add(1)
			go p.work(i)
		}
		p.logger.Info("offload pool started", "workers", p.workers, "queue_size", p.queueSize)
	})
}

// Run starts the pool and terminates it when ctx ends.
func (p *Pool) Run(ctx context.Context) error {
	p.Start()
	select {
	case <-ctx.Done():
	case <-p.done:
	}
	p.Terminate()
	return nil
}

// Terminate stops accepting work and releases every waiting caller with
// CodeUnavailable. Work already running on a worker is abandoned, not
// interrupted.
func (p *Pool) Terminate() {
	p.stopOnce.Do(func() {
		close(p.done)
		p.logger.Info("offload pool terminated")
	})
}

// Wait blocks until every worker has returned after Terminate.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) work(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			p.discardQueued()
			return
		case req := <-p.requests:
			p.metrics.RequestStarted()
			p.execute(id, req)
			p.metrics.RequestFinished()
		}
	}
}

// discardQueued fails requests that were queued but never started.
func (p *Pool) discardQueued() {
	for {
		select {
		case req := <-p.requests:
			p.metrics.RequestDequeued()
			req.fail(toFault(terminated()))
		default:
			return
		}
	}
}

func (p *Pool) execute(id int, req request) {
	// The engine never sees the caller's cancellation.
	ctx := context.WithoutCancel(req.ctx())
	defer func() {
		if r := recover(); r != nil {
			p.logger.ErrorContext(ctx, "offload worker recovered from panic", "worker", id, "panic", fmt.Sprint(r))
			req.fail(&Fault{Code: dErrors.CodeInternal, Message: "engine failure"})
		}
	}()
	req.run(ctx, p.engine)
}

func (p *Pool) submit(ctx context.Context, req request) error {
	select {
	case <-p.done:
		return terminated()
	default:
	}
	p.metrics.RequestQueued()
	select {
	case p.requests <- req:
		return nil
	case <-p.done:
		p.metrics.RequestDequeued()
		return terminated()
	case <-ctx.Done():
		p.metrics.RequestDequeued()
		return dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "offload queue is full")
	}
}

func await[T any](ctx context.Context, p *Pool, ch <-chan reply[T]) (T, error) {
	var zero T
	select {
	case r := <-ch:
		if r.fault != nil {
			return zero, r.fault.err()
		}
		return r.value, nil
	case <-p.done:
		return zero, terminated()
	case <-ctx.Done():
		p.metrics.IncrementAbandoned()
		return zero, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "gave up waiting for the engine")
	}
}

func terminated() error {
	return dErrors.Wrap(sentinel.ErrTerminated, dErrors.CodeUnavailable, "attestation engine is not running")
}

// Client issues calls to a pool. Each method is an independent request;
// concurrent calls may complete in any order.
type Client struct {
	pool    *Pool
	timeout time.Duration
}

// NewClient wraps pool. A positive timeout bounds every call.
func NewClient(pool *Pool, timeout time.Duration) *Client {
	return &Client{pool: pool, timeout: timeout}
}

func (c *Client) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return ctx, func() {}
}

func (c *Client) CalculateCommitment(ctx context.Context, f models.Fields) (string, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	req := &commitmentRequest{callCtx: ctx, fields: f, reply: make(chan reply[string], 1)}
	if err := c.pool.submit(ctx, req); err != nil {
		return "", err
	}
	return await(ctx, c.pool, req.reply)
}

func (c *Client) CreateProof(ctx context.Context, f models.Fields) (models.Bundle, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	req := &proveRequest{callCtx: ctx, fields: f, reply: make(chan reply[models.Bundle], 1)}
	if err := c.pool.submit(ctx, req); err != nil {
		return models.Bundle{}, err
	}
	return await(ctx, c.pool, req.reply)
}

func (c *Client) VerifyProof(ctx context.Context, b models.Bundle) (models.VerifyResult, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	req := &verifyRequest{callCtx: ctx, bundle: b, reply: make(chan reply[models.VerifyResult], 1)}
	if err := c.pool.submit(ctx, req); err != nil {
		return models.VerifyResult{}, err
	}
	return await(ctx, c.pool, req.reply)
}

func (c *Client) Ping(ctx context.Context) (models.Liveness, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	req := &pingRequest{callCtx: ctx, reply: make(chan reply[models.Liveness], 1)}
	if err := c.pool.submit(ctx, req); err != nil {
		return models.Liveness{}, err
	}
	return await(ctx, c.pool, req.reply)
}
