package zk

import (
	"context"
	"log/slog"
	"time"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"

	"zkattest/internal/attestation/circuit"
	"zkattest/internal/attestation/metrics"
	dErrors "zkattest/pkg/domain-errors"
)

// Verifier checks proofs against the cached program's verification key.
type Verifier struct {
	keys    *KeyCache
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewVerifier(keys *KeyCache, logger *slog.Logger, m *metrics.Metrics) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{keys: keys, logger: logger, metrics: m}
}

// Verify reports whether proof attests to commitment. A proof that does not
// verify is a false result, not an error; errors are reserved for the program
// being unavailable.
func (v *Verifier) Verify(ctx context.Context, proof *Proof, commitment circuit.Commitment) (bool, error) {
	program, err := v.keys.Compile(ctx)
	if err != nil {
		return false, err
	}
	if proof == nil || proof.inner == nil {
		return false, nil
	}

	ctx, span := tracer.Start(ctx, "zk.verify")
	defer span.End()

	public, err := frontend.NewWitness(circuit.PublicAssignment(commitment), circuit.Curve.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build public witness")
	}

	start := time.Now()
	err = groth16.Verify(proof.inner, program.vk, public)
	verified := err == nil
	v.metrics.ObserveVerify(start, verified)
	if !verified {
		v.logger.DebugContext(ctx, "proof rejected", "error", err)
	}
	return verified, nil
}
