package handler

import (
	"strings"

	"zkattest/internal/attestation/models"
	dErrors "zkattest/pkg/domain-errors"
)

// FieldsRequest carries the three identity fields. Full normalization happens
// in the service; Validate only rejects requests missing a field.
type FieldsRequest struct {
	FullName string `json:"fullName"`
	DOB      string `json:"dob"`
	IDNumber string `json:"idNumber"`
}

func (r *FieldsRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.FullName) == "" {
		missing = append(missing, "fullName")
	}
	if strings.TrimSpace(r.DOB) == "" {
		missing = append(missing, "dob")
	}
	if strings.TrimSpace(r.IDNumber) == "" {
		missing = append(missing, "idNumber")
	}
	if len(missing) > 0 {
		return dErrors.New(dErrors.CodeValidation, strings.Join(missing, ", ")+" required")
	}
	return nil
}

func (r *FieldsRequest) Fields() models.Fields {
	return models.Fields{FullName: r.FullName, DOB: r.DOB, IDNumber: r.IDNumber}
}

type CommitRequest struct {
	SubjectID string `json:"subjectId,omitempty"`
	FieldsRequest
}

func (r *CommitRequest) Validate() error {
	r.SubjectID = strings.TrimSpace(r.SubjectID)
	return r.FieldsRequest.Validate()
}

type VerifyRequest struct {
	Proof           string `json:"proof"`
	PublicOutput    string `json:"publicOutput"`
	VerificationKey string `json:"verificationKey"`
}

func (r *VerifyRequest) Validate() error {
	r.Proof = strings.TrimSpace(r.Proof)
	r.PublicOutput = strings.TrimSpace(r.PublicOutput)
	r.VerificationKey = strings.TrimSpace(r.VerificationKey)
	if r.Proof == "" || r.PublicOutput == "" || r.VerificationKey == "" {
		return dErrors.New(dErrors.CodeValidation, "proof, publicOutput and verificationKey are required")
	}
	return nil
}

func (r *VerifyRequest) Bundle() models.Bundle {
	return models.Bundle{Proof: r.Proof, PublicOutput: r.PublicOutput, VerificationKey: r.VerificationKey}
}
