package service

import (
	"context"
	"errors"
	"log/slog"

	"zkattest/internal/attestation/metrics"
	"zkattest/internal/attestation/models"
	"zkattest/internal/audit"
	dErrors "zkattest/pkg/domain-errors"
	"zkattest/pkg/platform/sentinel"
	"zkattest/pkg/requestcontext"
)

// Stage names used in metrics and audit events.
const (
	StageCommit     = "commit"
	StageVerify     = "verify"
	StageCommitment = "commitment"
	StageRecord     = "record"
)

// Engine runs the cryptographic work, normally through the offload pool.
type Engine interface {
	CalculateCommitment(ctx context.Context, f models.Fields) (string, error)
	CreateProof(ctx context.Context, f models.Fields) (models.Bundle, error)
	VerifyProof(ctx context.Context, b models.Bundle) (models.VerifyResult, error)
	Ping(ctx context.Context) (models.Liveness, error)
}

// RecordStore keeps commitment-level records by subject.
type RecordStore interface {
	Upsert(ctx context.Context, record models.Record) error
	Get(ctx context.Context, subjectID string) (models.Record, error)
}

// Signer endorses a commitment on behalf of the identity provider and checks
// earlier endorsements.
type Signer interface {
	Sign(ctx context.Context, commitment string) (string, error)
	Check(ctx context.Context, signature, commitment string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service implements the commit, verify and commitment-only stages.
// Validation always happens before any work reaches the engine.
type Service struct {
	engine  Engine
	records RecordStore
	signer  Signer
	auditor AuditPublisher
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

func New(engine Engine, records RecordStore, signer Signer, opts ...Option) *Service {
	s := &Service{
		engine:  engine,
		records: records,
		signer:  signer,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Commit proves knowledge of the fields, signs the commitment and, when a
// subject is given, stores the record.
func (s *Service) Commit(ctx context.Context, req models.CommitRequest) (models.CommitResult, error) {
	if err := ValidateSubjectID(req.SubjectID); err != nil {
		return models.CommitResult{}, s.fail(ctx, StageCommit, req.SubjectID, err)
	}
	fields, err := NormalizeFields(req.Fields)
	if err != nil {
		return models.CommitResult{}, s.fail(ctx, StageCommit, req.SubjectID, err)
	}

	bundle, err := s.engine.CreateProof(ctx, fields)
	if err != nil {
		return models.CommitResult{}, s.fail(ctx, StageCommit, req.SubjectID, err)
	}
	signature, err := s.signer.Sign(ctx, bundle.PublicOutput)
	if err != nil {
		return models.CommitResult{}, s.fail(ctx, StageCommit, req.SubjectID, err)
	}

	if req.SubjectID != "" {
		record := models.Record{
			SubjectID:       req.SubjectID,
			Commitment:      bundle.PublicOutput,
			Proof:           bundle.Proof,
			VerificationKey: bundle.VerificationKey,
			Signature:       signature,
			UpdatedAt:       requestcontext.Now(ctx),
		}
		if err := s.records.Upsert(ctx, record); err != nil {
			return models.CommitResult{}, s.fail(ctx, StageCommit, req.SubjectID, storeError(err, "failed to store attestation record"))
		}
	}

	s.logger.InfoContext(ctx, "attestation committed",
		"request_id", requestcontext.RequestID(ctx),
		"subject_id", req.SubjectID,
		"commitment", bundle.PublicOutput,
	)
	s.emit(ctx, audit.Event{
		Action:     audit.ActionCommitmentIssued,
		Stage:      StageCommit,
		SubjectID:  req.SubjectID,
		Commitment: bundle.PublicOutput,
	})
	return models.CommitResult{Bundle: bundle, Signature: signature, SubjectID: req.SubjectID}, nil
}

// Verify checks a bundle. A bundle that does not verify is a false result.
func (s *Service) Verify(ctx context.Context, bundle models.Bundle) (models.VerifyResult, error) {
	if err := ValidateBundle(bundle); err != nil {
		return models.VerifyResult{}, s.fail(ctx, StageVerify, "", err)
	}
	result, err := s.engine.VerifyProof(ctx, bundle)
	if err != nil {
		return models.VerifyResult{}, s.fail(ctx, StageVerify, "", err)
	}

	action := audit.ActionProofVerified
	if !result.Verified {
		action = audit.ActionProofRejected
	}
	s.logger.InfoContext(ctx, "attestation verified",
		"request_id", requestcontext.RequestID(ctx),
		"verified", result.Verified,
		"commitment", bundle.PublicOutput,
	)
	s.emit(ctx, audit.Event{
		Action:     action,
		Stage:      StageVerify,
		Commitment: bundle.PublicOutput,
		Reason:     result.Message,
	})
	return result, nil
}

// Commitment returns the expected commitment without proving.
func (s *Service) Commitment(ctx context.Context, raw models.Fields) (string, error) {
	fields, err := NormalizeFields(raw)
	if err != nil {
		return "", s.fail(ctx, StageCommitment, "", err)
	}
	commitment, err := s.engine.CalculateCommitment(ctx, fields)
	if err != nil {
		return "", s.fail(ctx, StageCommitment, "", err)
	}
	s.emit(ctx, audit.Event{
		Action:     audit.ActionCommitmentCalculated,
		Stage:      StageCommitment,
		Commitment: commitment,
	})
	return commitment, nil
}

// Record returns the stored record for subjectID.
func (s *Service) Record(ctx context.Context, subjectID string) (models.Record, error) {
	if subjectID == "" {
		return models.Record{}, dErrors.New(dErrors.CodeValidation, "subjectId is required")
	}
	if err := ValidateSubjectID(subjectID); err != nil {
		return models.Record{}, err
	}
	record, err := s.records.Get(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Record{}, dErrors.New(dErrors.CodeNotFound, "no attestation for subject")
		}
		s.metrics.IncrementStageError(StageRecord, string(dErrors.CodeUnavailable))
		return models.Record{}, storeError(err, "failed to load attestation record")
	}
	// A record is only served while its signature still binds its commitment.
	if err := s.signer.Check(ctx, record.Signature, record.Commitment); err != nil {
		s.metrics.IncrementStageError(StageRecord, string(dErrors.CodeConflict))
		s.logger.ErrorContext(ctx, "stored attestation failed its signature check",
			"request_id", requestcontext.RequestID(ctx),
			"subject_id", subjectID,
			"error", dErrors.MessageOf(err),
		)
		return models.Record{}, dErrors.Wrap(err, dErrors.CodeConflict, "stored attestation is not endorsed by the provider")
	}
	return record, nil
}

// Health pings the engine through the pool.
func (s *Service) Health(ctx context.Context) (models.Liveness, error) {
	return s.engine.Ping(ctx)
}

func (s *Service) fail(ctx context.Context, stage, subjectID string, err error) error {
	code := dErrors.CodeOf(err)
	s.metrics.IncrementStageError(stage, string(code))

	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"stage", stage,
		"code", string(code),
		"error", dErrors.MessageOf(err),
	}
	if code == dErrors.CodeValidation {
		s.logger.WarnContext(ctx, "attestation request rejected", attrs...)
	} else {
		s.logger.ErrorContext(ctx, "attestation stage failed", attrs...)
	}
	s.emit(ctx, audit.Event{
		Action:    audit.ActionStageFailed,
		Stage:     stage,
		SubjectID: subjectID,
		ErrorCode: string(code),
		Reason:    dErrors.MessageOf(err),
	})
	return err
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	event.Timestamp = requestcontext.Now(ctx)
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"request_id", event.RequestID,
			"action", event.Action,
			"error", err,
		)
	}
}

func storeError(err error, msg string) error {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
