//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"zkattest/internal/attestation/models"
	"zkattest/internal/attestation/store"
	"zkattest/pkg/platform/sentinel"
	"zkattest/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "attestation_records"))
}

func newRecord(subject string) models.Record {
	return models.Record{
		SubjectID:       subject,
		Commitment:      "0x" + uuid.NewString(),
		Proof:           "prf.1.AAAA",
		VerificationKey: "vk.1.BBBB",
		Signature:       "sig",
		UpdatedAt:       time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestUpsertAndGet() {
	ctx := context.Background()
	record := newRecord(uuid.NewString())

	s.Require().NoError(s.store.Upsert(ctx, record))
	got, err := s.store.Get(ctx, record.SubjectID)
	s.Require().NoError(err)
	s.True(record.UpdatedAt.Equal(got.UpdatedAt))
	got.UpdatedAt = record.UpdatedAt
	s.Equal(record, got)
}

func (s *PostgresStoreSuite) TestUpsertReplaces() {
	ctx := context.Background()
	subject := uuid.NewString()
	s.Require().NoError(s.store.Upsert(ctx, newRecord(subject)))

	replacement := newRecord(subject)
	s.Require().NoError(s.store.Upsert(ctx, replacement))

	got, err := s.store.Get(ctx, subject)
	s.Require().NoError(err)
	s.Equal(replacement.Commitment, got.Commitment)
}

func (s *PostgresStoreSuite) TestMissingRecord() {
	_, err := s.store.Get(context.Background(), uuid.NewString())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestMigrateIsIdempotent() {
	s.NoError(s.store.Migrate(context.Background()))
}
