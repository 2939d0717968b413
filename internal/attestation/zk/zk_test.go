package zk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zkattest/internal/attestation/circuit"
	dErrors "zkattest/pkg/domain-errors"
	"zkattest/pkg/testutil"
)

// Compilation and setup are slow; every test in the package shares one cache.
var sharedKeys = NewKeyCache()

func mustCommit(t *testing.T, w circuit.Witness) circuit.Commitment {
	t.Helper()
	c, err := circuit.Hash(w)
	require.NoError(t, err)
	return c
}

func TestCompiledProgramShape(t *testing.T) {
	program, err := sharedKeys.Compile(context.Background())
	require.NoError(t, err)

	// One public input plus the constant wire, three private inputs.
	assert.Equal(t, 2, program.cs.GetNbPublicVariables())
	assert.Equal(t, 3, program.cs.GetNbSecretVariables())
	assert.NotNil(t, program.VerifyingKey())
}

func TestProveAndVerify(t *testing.T) {
	ctx := context.Background()
	prover := NewProver(sharedKeys, nil, nil)
	verifier := NewVerifier(sharedKeys, nil, nil)

	w := circuit.NewWitness("JOHN DOE", "1990-01-01", "ABC123")
	commitment := mustCommit(t, w)

	testutil.Given(t, "a witness that opens the commitment", func(t *testing.T) {
		proof, out, err := prover.Prove(ctx, commitment, w)
		require.NoError(t, err)

		testutil.Then(t, "the returned commitment is the recomputed one", func(t *testing.T) {
			assert.True(t, out.Equal(commitment.FieldElement))
		})
		testutil.Then(t, "the proof verifies", func(t *testing.T) {
			ok, err := verifier.Verify(ctx, proof, commitment)
			require.NoError(t, err)
			assert.True(t, ok)
		})
		testutil.Then(t, "the proof does not verify against another commitment", func(t *testing.T) {
			other := mustCommit(t, circuit.NewWitness("JOHN DOE", "1990-01-01", "ABC124"))
			ok, err := verifier.Verify(ctx, proof, other)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	})

	testutil.Given(t, "a witness that does not open the commitment", func(t *testing.T) {
		other := circuit.NewWitness("JOHN DOE", "1990-01-01", "ABC124")
		_, _, err := prover.Prove(ctx, commitment, other)

		testutil.Then(t, "proving fails before the backend runs", func(t *testing.T) {
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeProofGeneration))
		})
	})

	testutil.Given(t, "the precheck is bypassed", func(t *testing.T) {
		program, err := sharedKeys.Compile(ctx)
		require.NoError(t, err)
		other := circuit.NewWitness("JANE DOE", "1990-01-01", "ABC123")
		_, err = prover.prove(ctx, program, commitment, other)

		testutil.Then(t, "the backend itself rejects the witness", func(t *testing.T) {
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeProofGeneration))
			assert.NotContains(t, err.Error(), other.FullName.BigInt().String())
		})
	})
}

func TestVerifyNilProof(t *testing.T) {
	verifier := NewVerifier(sharedKeys, nil, nil)
	commitment := mustCommit(t, circuit.NewWitness("A", "B", "C"))

	ok, err := verifier.Verify(context.Background(), nil, commitment)
	require.NoError(t, err)
	assert.False(t, ok)
}
