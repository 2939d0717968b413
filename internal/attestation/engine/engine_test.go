package engine

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zkattest/internal/attestation/field"
	"zkattest/internal/attestation/models"
	"zkattest/internal/attestation/zk"
	dErrors "zkattest/pkg/domain-errors"
	"zkattest/pkg/testutil"
)

var (
	sharedKeys = zk.NewKeyCache()
	scenario   = models.Fields{FullName: "JOHN DOE", DOB: "1990-01-01", IDNumber: "ABC123"}
)

func newEngine() *Engine {
	return New(sharedKeys, nil)
}

func TestScenario(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	h, err := e.CalculateCommitment(ctx, scenario)
	require.NoError(t, err)
	again, err := e.CalculateCommitment(ctx, scenario)
	require.NoError(t, err)
	assert.Equal(t, h, again, "commitment is deterministic")

	testutil.Given(t, "a bundle for the scenario fields", func(t *testing.T) {
		bundle, err := e.CreateProof(ctx, scenario)
		require.NoError(t, err)

		testutil.Then(t, "the public output is the commitment", func(t *testing.T) {
			assert.Equal(t, h, bundle.PublicOutput)
		})
		testutil.Then(t, "the bundle verifies", func(t *testing.T) {
			res, err := e.VerifyProof(ctx, bundle)
			require.NoError(t, err)
			assert.True(t, res.Verified)
		})
	})

	testutil.Given(t, "a bundle for a mutated id number", func(t *testing.T) {
		mutated := scenario
		mutated.IDNumber = "ABC124"
		bundle, err := e.CreateProof(ctx, mutated)
		require.NoError(t, err)

		testutil.Then(t, "the public output differs", func(t *testing.T) {
			assert.NotEqual(t, h, bundle.PublicOutput)
		})
		testutil.Then(t, "the proof does not verify against the original commitment", func(t *testing.T) {
			bundle.PublicOutput = h
			res, err := e.VerifyProof(ctx, bundle)
			require.NoError(t, err)
			assert.False(t, res.Verified)
			assert.Equal(t, MsgNotVerified, res.Message)
		})
	})
}

func TestBundleDoesNotLeakFields(t *testing.T) {
	bundle, err := newEngine().CreateProof(context.Background(), scenario)
	require.NoError(t, err)

	for _, v := range []string{scenario.FullName, scenario.DOB, scenario.IDNumber} {
		encodings := []string{
			v,
			field.Encode(v).BigInt().String(),
			base64.RawURLEncoding.EncodeToString([]byte(v)),
		}
		for _, s := range []string{bundle.Proof, bundle.PublicOutput, bundle.VerificationKey} {
			for _, enc := range encodings {
				assert.NotContains(t, s, enc)
			}
		}
		for _, s := range []string{bundle.Proof, bundle.VerificationKey} {
			payload := s[strings.LastIndex(s, ".")+1:]
			raw, err := base64.RawURLEncoding.DecodeString(payload)
			require.NoError(t, err)
			assert.NotContains(t, string(raw), v)
		}
	}
}

func TestTamperedProofVerifiesFalse(t *testing.T) {
	ctx := context.Background()
	e := newEngine()
	bundle, err := e.CreateProof(ctx, scenario)
	require.NoError(t, err)

	prefix := bundle.Proof[:strings.LastIndex(bundle.Proof, ".")+1]
	payload := []byte(bundle.Proof[len(prefix):])
	for i := range payload {
		for _, c := range []byte{'A', 'B', '.', '!', '=', '+'} {
			if payload[i] == c {
				continue
			}
			tampered := append([]byte(nil), payload...)
			tampered[i] = c
			b := bundle
			b.Proof = prefix + string(tampered)

			res, err := e.VerifyProof(ctx, b)
			require.NoError(t, err, "position %d set to %q", i, c)
			assert.False(t, res.Verified, "position %d set to %q", i, c)
		}
	}
}

func TestVerifyProofEnvelopes(t *testing.T) {
	ctx := context.Background()
	e := newEngine()
	bundle, err := e.CreateProof(ctx, scenario)
	require.NoError(t, err)

	t.Run("malformed proof envelope is a decode error", func(t *testing.T) {
		b := bundle
		b.Proof = "not a proof"
		_, err := e.VerifyProof(ctx, b)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeDecode))
	})

	t.Run("malformed commitment is a decode error", func(t *testing.T) {
		b := bundle
		b.PublicOutput = "0x1234"
		_, err := e.VerifyProof(ctx, b)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeDecode))
	})

	t.Run("malformed key envelope is a decode error", func(t *testing.T) {
		b := bundle
		b.VerificationKey = "prf" + bundle.VerificationKey[len("vk"):]
		_, err := e.VerifyProof(ctx, b)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeDecode))
	})

	t.Run("proof from another version verifies false", func(t *testing.T) {
		b := bundle
		b.Proof = strings.Replace(bundle.Proof, "prf.1.", "prf.9.", 1)
		res, err := e.VerifyProof(ctx, b)
		require.NoError(t, err)
		assert.False(t, res.Verified)
		assert.Equal(t, MsgProofUnreadable, res.Message)
	})
}

func TestForeignVerificationKey(t *testing.T) {
	ctx := context.Background()
	ours := newEngine()
	theirs := New(zk.NewKeyCache(), nil)

	bundle, err := theirs.CreateProof(ctx, scenario)
	require.NoError(t, err)
	res, err := theirs.VerifyProof(ctx, bundle)
	require.NoError(t, err)
	require.True(t, res.Verified)

	res, err = ours.VerifyProof(ctx, bundle)
	require.NoError(t, err)
	assert.False(t, res.Verified)
	assert.Equal(t, MsgForeignKey, res.Message)
}

func TestPing(t *testing.T) {
	ctx := context.Background()

	cold := New(zk.NewKeyCache(zk.WithCompiler(func() (*zk.CompiledProgram, error) {
		t.Fatal("ping must not compile")
		return nil, nil
	})), nil)
	l := cold.Ping(ctx)
	assert.True(t, l.Alive)
	assert.False(t, l.Compiled)
	assert.Empty(t, l.KeyFingerprint)

	warm := newEngine()
	require.NoError(t, warm.Warm(ctx))
	l = warm.Ping(ctx)
	assert.True(t, l.Compiled)
	assert.Len(t, l.KeyFingerprint, 64)
	assert.Equal(t, 1, l.CircuitVersion)
}
