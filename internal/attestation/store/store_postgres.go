package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"zkattest/internal/attestation/models"
	"zkattest/pkg/platform/sentinel"
)

//go:embed schema.sql
var schema string

// PostgresStore persists records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the records table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate attestation records: %w", classify(err))
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, record models.Record) error {
	query := `
		INSERT INTO attestation_records (subject_id, commitment, proof, verification_key, signature, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (subject_id) DO UPDATE SET
			commitment = EXCLUDED.commitment,
			proof = EXCLUDED.proof,
			verification_key = EXCLUDED.verification_key,
			signature = EXCLUDED.signature,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		record.SubjectID,
		record.Commitment,
		record.Proof,
		record.VerificationKey,
		record.Signature,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert attestation record: %w", classify(err))
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, subjectID string) (models.Record, error) {
	query := `
		SELECT subject_id, commitment, proof, verification_key, signature, updated_at
		FROM attestation_records
		WHERE subject_id = $1
	`
	var record models.Record
	err := s.db.QueryRowContext(ctx, query, subjectID).Scan(
		&record.SubjectID,
		&record.Commitment,
		&record.Proof,
		&record.VerificationKey,
		&record.Signature,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Record{}, sentinel.ErrNotFound
		}
		return models.Record{}, fmt.Errorf("get attestation record: %w", classify(err))
	}
	return record, nil
}

// classify marks connection-level failures as unavailable.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "08" {
		return errors.Join(sentinel.ErrUnavailable, err)
	}
	if errors.Is(err, sql.ErrConnDone) {
		return errors.Join(sentinel.ErrUnavailable, err)
	}
	return err
}
