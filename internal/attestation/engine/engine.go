// Package engine exposes the attestation primitives in terms of plain
// strings: field values in, encoded commitments, bundles and verdicts out.
// It is what the offload workers execute.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"zkattest/internal/attestation/circuit"
	"zkattest/internal/attestation/codec"
	"zkattest/internal/attestation/metrics"
	"zkattest/internal/attestation/models"
	"zkattest/internal/attestation/zk"
	dErrors "zkattest/pkg/domain-errors"
)

// Verdict messages for bundles that do not verify.
const (
	MsgNotVerified     = "proof does not verify for this commitment"
	MsgProofUnreadable = "proof could not be decoded"
	MsgForeignKey      = "stale or foreign verification key"
)

// Engine is safe for concurrent use.
type Engine struct {
	keys     *zk.KeyCache
	prover   *zk.Prover
	verifier *zk.Verifier
	logger   *slog.Logger

	keyOnce    sync.Once
	encodedKey string
	keyPrint   string
	keyErr     error
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New builds an engine over keys. The cache is owned by the caller so it can
// be shared or pre-warmed.
func New(keys *zk.KeyCache, m *metrics.Metrics, opts ...Option) *Engine {
	e := &Engine{keys: keys, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	e.prover = zk.NewProver(keys, e.logger, m)
	e.verifier = zk.NewVerifier(keys, e.logger, m)
	return e
}

// CalculateCommitment returns the encoded commitment for already-normalized
// fields without proving anything.
func (e *Engine) CalculateCommitment(_ context.Context, f models.Fields) (string, error) {
	c, err := circuit.Hash(circuit.NewWitness(f.FullName, f.DOB, f.IDNumber))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute commitment")
	}
	return codec.EncodeCommitment(c), nil
}

// CreateProof proves knowledge of f and returns the bundle. The public output
// is the commitment recomputed inside the prover.
func (e *Engine) CreateProof(ctx context.Context, f models.Fields) (models.Bundle, error) {
	w := circuit.NewWitness(f.FullName, f.DOB, f.IDNumber)
	c, err := circuit.Hash(w)
	if err != nil {
		return models.Bundle{}, dErrors.Wrap(err, dErrors.CodeProofGeneration, "failed to hash witness")
	}

	proof, commitment, err := e.prover.Prove(ctx, c, w)
	if err != nil {
		return models.Bundle{}, err
	}
	encodedProof, err := codec.EncodeProof(proof)
	if err != nil {
		return models.Bundle{}, err
	}
	encodedKey, _, err := e.verificationKey(ctx)
	if err != nil {
		return models.Bundle{}, err
	}
	return models.Bundle{
		Proof:           encodedProof,
		PublicOutput:    codec.EncodeCommitment(commitment),
		VerificationKey: encodedKey,
	}, nil
}

// VerifyProof checks a bundle against this process's compiled key.
//
// Envelopes that are structurally wrong fail with CodeDecode. A well-formed
// envelope whose content is unusable, from another version or for another
// key verifies false.
func (e *Engine) VerifyProof(ctx context.Context, b models.Bundle) (models.VerifyResult, error) {
	commitment, err := codec.DecodeCommitment(b.PublicOutput)
	if err != nil {
		return models.VerifyResult{}, err
	}

	encodedKey, _, err := e.verificationKey(ctx)
	if err != nil {
		return models.VerifyResult{}, err
	}
	if b.VerificationKey != encodedKey {
		// Canonical encoding makes string inequality mean a different key.
		if err := codec.CheckEnvelope(b.VerificationKey, codec.KindVerificationKey); structural(err) {
			return models.VerifyResult{}, err
		}
		e.logger.DebugContext(ctx, "bundle carries a different verification key")
		return models.VerifyResult{Verified: false, Message: MsgForeignKey}, nil
	}

	proof, err := codec.DecodeProof(b.Proof)
	if err != nil {
		if structural(err) {
			return models.VerifyResult{}, err
		}
		return models.VerifyResult{Verified: false, Message: MsgProofUnreadable}, nil
	}

	ok, err := e.verifier.Verify(ctx, proof, commitment)
	if err != nil {
		return models.VerifyResult{}, err
	}
	if !ok {
		return models.VerifyResult{Verified: false, Message: MsgNotVerified}, nil
	}
	return models.VerifyResult{Verified: true}, nil
}

// Ping reports liveness without forcing a compilation.
func (e *Engine) Ping(ctx context.Context) models.Liveness {
	l := models.Liveness{Alive: true, Compiled: e.keys.Compiled(), CircuitVersion: circuit.Version}
	if l.Compiled {
		if _, fp, err := e.verificationKey(ctx); err == nil {
			l.KeyFingerprint = fp
		}
	}
	return l
}

// Warm compiles the circuit ahead of the first request.
func (e *Engine) Warm(ctx context.Context) error {
	_, _, err := e.verificationKey(ctx)
	return err
}

// verificationKey returns the encoded compiled key and its fingerprint. Both
// are derived once; the program never changes after compilation.
func (e *Engine) verificationKey(ctx context.Context) (string, string, error) {
	program, err := e.keys.Compile(ctx)
	if err != nil {
		return "", "", err
	}
	e.keyOnce.Do(func() {
		vk := program.VerifyingKey()
		e.encodedKey, e.keyErr = codec.EncodeVerificationKey(vk)
		if e.keyErr != nil {
			return
		}
		fp, err := codec.Fingerprint(vk)
		if err != nil {
			e.keyErr = dErrors.Wrap(err, dErrors.CodeInternal, "failed to fingerprint verification key")
			return
		}
		e.keyPrint = fp
		e.logger.InfoContext(ctx, "verification key ready", "key_fingerprint", fp)
	})
	return e.encodedKey, e.keyPrint, e.keyErr
}

// structural reports whether a decode error is about the envelope itself
// rather than its content.
func structural(err error) bool {
	return errors.Is(err, codec.ErrMalformed) || errors.Is(err, codec.ErrKindMismatch)
}
