// Package zk runs the proving backend: it owns the compiled circuit and keys,
// and produces and checks Groth16 proofs for the attestation circuit.
package zk

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"zkattest/internal/attestation/circuit"
	"zkattest/internal/attestation/metrics"
	dErrors "zkattest/pkg/domain-errors"
)

var tracer = otel.Tracer("zkattest/attestation/zk")

var errNoProgram = errors.New("compiler returned no program")

// CompiledProgram is the immutable result of compiling the circuit and running
// the key setup. A non-nil program is always fully populated.
type CompiledProgram struct {
	cs constraint.ConstraintSystem
	pk groth16.ProvingKey
	vk groth16.VerifyingKey
}

// VerifyingKey returns the verification key.
func (p *CompiledProgram) VerifyingKey() groth16.VerifyingKey {
	return p.vk
}

// CompileFunc builds a CompiledProgram. It is expensive and runs at most once
// per KeyCache.
type CompileFunc func() (*CompiledProgram, error)

// CompileGroth16 compiles the attestation circuit to R1CS and runs the
// Groth16 setup.
func CompileGroth16() (*CompiledProgram, error) {
	cs, err := frontend.Compile(circuit.Curve.ScalarField(), r1cs.NewBuilder, &circuit.Circuit{})
	if err != nil {
		return nil, err
	}
	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return nil, err
	}
	return &CompiledProgram{cs: cs, pk: pk, vk: vk}, nil
}

// KeyCache memoizes the compiled program for its owner. Concurrent callers
// before the first compile share a single in-flight compilation. A failed
// compilation is remembered and returned to every later caller.
type KeyCache struct {
	compile CompileFunc
	logger  *slog.Logger
	metrics *metrics.Metrics

	group   singleflight.Group
	program atomic.Pointer[CompiledProgram]

	mu      sync.Mutex
	failure error
}

type Option func(*KeyCache)

func WithCompiler(fn CompileFunc) Option {
	return func(c *KeyCache) {
		c.compile = fn
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *KeyCache) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *KeyCache) {
		c.metrics = m
	}
}

// NewKeyCache creates an empty cache using CompileGroth16 unless overridden.
func NewKeyCache(opts ...Option) *KeyCache {
	c := &KeyCache{compile: CompileGroth16, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compiled reports whether a program has been published.
func (c *KeyCache) Compiled() bool {
	return c.program.Load() != nil
}

// Compile returns the compiled program, compiling on first use. The
// compilation itself is not tied to ctx; ctx only bounds how long this caller
// waits for it.
func (c *KeyCache) Compile(ctx context.Context) (*CompiledProgram, error) {
	if p := c.program.Load(); p != nil {
		return p, nil
	}
	if err := c.loadFailure(); err != nil {
		return nil, err
	}

	ch := c.group.DoChan("compile", func() (any, error) {
		return c.compileOnce(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*CompiledProgram), nil
	case <-ctx.Done():
		return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "stopped waiting for circuit compilation")
	}
}

func (c *KeyCache) compileOnce(ctx context.Context) (*CompiledProgram, error) {
	// A flight that finished between the caller's fast-path check and DoChan
	// has already published its result.
	if p := c.program.Load(); p != nil {
		return p, nil
	}
	if err := c.loadFailure(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "zk.compile")
	defer span.End()

	c.logger.InfoContext(ctx, "compiling attestation circuit", "circuit_version", circuit.Version)
	start := time.Now()
	program, err := c.compile()
	if err == nil && program == nil {
		err = errNoProgram
	}
	if err != nil {
		wrapped := dErrors.Wrap(err, dErrors.CodeCompilation, "circuit compilation failed")
		c.mu.Lock()
		c.failure = wrapped
		c.mu.Unlock()
		span.RecordError(err)
		span.SetStatus(codes.Error, "compilation failed")
		c.logger.ErrorContext(ctx, "circuit compilation failed", "error", err)
		return nil, wrapped
	}

	c.program.Store(program)
	c.metrics.ObserveCompile(start)
	c.logger.InfoContext(ctx, "attestation circuit compiled",
		"circuit_version", circuit.Version,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return program, nil
}

func (c *KeyCache) loadFailure() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failure
}
