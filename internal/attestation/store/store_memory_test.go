package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zkattest/internal/attestation/models"
	"zkattest/pkg/platform/sentinel"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	_, err := s.Get(ctx, "subject-1")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	first := models.Record{SubjectID: "subject-1", Commitment: "0x01", Signature: "sig-1", UpdatedAt: time.Now()}
	require.NoError(t, s.Upsert(ctx, first))
	got, err := s.Get(ctx, "subject-1")
	require.NoError(t, err)
	assert.Equal(t, first, got)

	second := first
	second.Commitment = "0x02"
	require.NoError(t, s.Upsert(ctx, second))
	got, err = s.Get(ctx, "subject-1")
	require.NoError(t, err)
	assert.Equal(t, "0x02", got.Commitment)
}
