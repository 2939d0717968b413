package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches wrapped code through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("stage: %w", New(CodeDecode, "bad proof"))
		assert.True(t, HasCode(err, CodeDecode))
		assert.False(t, HasCode(err, CodeValidation))
	})

	t.Run("finds inner code beneath an outer domain error", func(t *testing.T) {
		inner := New(CodeCompilation, "setup failed")
		outer := Wrap(inner, CodeProofGeneration, "prove failed")
		assert.True(t, HasCode(outer, CodeProofGeneration))
		assert.True(t, HasCode(outer, CodeCompilation))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestWrap(t *testing.T) {
	t.Run("nil cause stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "unused"))
	})

	t.Run("keeps the cause for errors.Is", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(cause, CodeUnavailable, "record store down")
		require.ErrorIs(t, err, cause)
		assert.Equal(t, CodeUnavailable, CodeOf(err))
		assert.Equal(t, "record store down", MessageOf(err))
	})
}

func TestIs(t *testing.T) {
	err := New(CodeValidation, "fullName is required")
	require.ErrorIs(t, err, New(CodeValidation, "fullName is required"))
	assert.NotErrorIs(t, err, New(CodeValidation, "dob is required"))
}
