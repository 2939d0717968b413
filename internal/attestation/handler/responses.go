package handler

import (
	"time"

	"zkattest/internal/attestation/models"
)

type CommitResponse struct {
	Proof           string `json:"proof"`
	PublicOutput    string `json:"publicOutput"`
	VerificationKey string `json:"verificationKey"`
	Signature       string `json:"signature"`
	SubjectID       string `json:"subjectId,omitempty"`
}

func toCommitResponse(res models.CommitResult) CommitResponse {
	return CommitResponse{
		Proof:           res.Bundle.Proof,
		PublicOutput:    res.Bundle.PublicOutput,
		VerificationKey: res.Bundle.VerificationKey,
		Signature:       res.Signature,
		SubjectID:       res.SubjectID,
	}
}

type CommitmentResponse struct {
	Commitment string `json:"commitment"`
}

// RecordResponse is a stored attestation. It never carries identity fields.
type RecordResponse struct {
	SubjectID       string    `json:"subjectId"`
	Commitment      string    `json:"commitment"`
	Proof           string    `json:"proof"`
	VerificationKey string    `json:"verificationKey"`
	Signature       string    `json:"signature"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toRecordResponse(r models.Record) RecordResponse {
	return RecordResponse{
		SubjectID:       r.SubjectID,
		Commitment:      r.Commitment,
		Proof:           r.Proof,
		VerificationKey: r.VerificationKey,
		Signature:       r.Signature,
		UpdatedAt:       r.UpdatedAt,
	}
}
