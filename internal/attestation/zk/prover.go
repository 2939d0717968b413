package zk

import (
	"context"
	"log/slog"
	"time"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"go.opentelemetry.io/otel/codes"

	"zkattest/internal/attestation/circuit"
	"zkattest/internal/attestation/metrics"
	dErrors "zkattest/pkg/domain-errors"
)

// Proof is an opaque Groth16 proof.
type Proof struct {
	inner groth16.Proof
}

// WrapProof wraps a backend proof, typically one read back by the codec.
func WrapProof(p groth16.Proof) *Proof {
	return &Proof{inner: p}
}

// Backend returns the underlying gnark proof.
func (p *Proof) Backend() groth16.Proof {
	return p.inner
}

// Prover produces proofs against the cached program.
type Prover struct {
	keys    *KeyCache
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewProver(keys *KeyCache, logger *slog.Logger, m *metrics.Metrics) *Prover {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prover{keys: keys, logger: logger, metrics: m}
}

// Prove proves knowledge of w opening commitment. It returns the proof and
// the commitment recomputed from the witness.
//
// A witness that does not hash to commitment fails with CodeProofGeneration
// before the backend is invoked. Witness values never appear in errors or logs.
func (p *Prover) Prove(ctx context.Context, commitment circuit.Commitment, w circuit.Witness) (*Proof, circuit.Commitment, error) {
	program, err := p.keys.Compile(ctx)
	if err != nil {
		return nil, circuit.Commitment{}, err
	}

	computed, err := circuit.Hash(w)
	if err != nil {
		return nil, circuit.Commitment{}, dErrors.Wrap(err, dErrors.CodeProofGeneration, "failed to hash witness")
	}
	if !computed.Equal(commitment.FieldElement) {
		return nil, circuit.Commitment{}, dErrors.New(dErrors.CodeProofGeneration, "witness does not match commitment")
	}

	proof, err := p.prove(ctx, program, computed, w)
	if err != nil {
		return nil, circuit.Commitment{}, err
	}
	return proof, computed, nil
}

// prove runs the backend with no consistency precheck.
func (p *Prover) prove(ctx context.Context, program *CompiledProgram, c circuit.Commitment, w circuit.Witness) (*Proof, error) {
	ctx, span := tracer.Start(ctx, "zk.prove")
	defer span.End()

	full, err := frontend.NewWitness(circuit.Assignment(c, w), circuit.Curve.ScalarField())
	if err != nil {
		span.SetStatus(codes.Error, "witness assignment failed")
		return nil, dErrors.New(dErrors.CodeProofGeneration, "failed to build witness assignment")
	}

	start := time.Now()
	proof, err := groth16.Prove(program.cs, program.pk, full)
	if err != nil {
		// The backend error can carry wire values, so it is not propagated.
		span.SetStatus(codes.Error, "backend rejected witness")
		p.logger.WarnContext(ctx, "proof generation rejected by backend")
		return nil, dErrors.New(dErrors.CodeProofGeneration, "witness does not satisfy the circuit")
	}
	p.metrics.ObserveProve(start)
	p.logger.DebugContext(ctx, "proof generated", "duration_ms", time.Since(start).Milliseconds())
	return &Proof{inner: proof}, nil
}
