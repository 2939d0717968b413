package service

import (
	"regexp"
	"strings"
	"time"

	"zkattest/internal/attestation/field"
	"zkattest/internal/attestation/models"
	dErrors "zkattest/pkg/domain-errors"
)

// MaxFieldBytes bounds each identity field after normalization.
const MaxFieldBytes = 256

const dobLayout = "2006-01-02"

var subjectIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// NormalizeFields applies the per-field normalization policy and rejects
// anything that must not reach the encoder: blank fields, oversized fields
// and malformed dates.
func NormalizeFields(f models.Fields) (models.Fields, error) {
	out := models.Fields{
		FullName: field.NormalizeFullName(f.FullName),
		DOB:      field.NormalizeDOB(f.DOB),
		IDNumber: field.NormalizeIDNumber(f.IDNumber),
	}

	var problems []string
	check := func(name, value string) bool {
		switch {
		case value == "":
			problems = append(problems, name+" is required")
			return false
		case len(value) > MaxFieldBytes:
			problems = append(problems, name+" is too long")
			return false
		}
		return true
	}
	check("fullName", out.FullName)
	if check("dob", out.DOB) {
		if _, err := time.Parse(dobLayout, out.DOB); err != nil {
			problems = append(problems, "dob must be YYYY-MM-DD")
		}
	}
	check("idNumber", out.IDNumber)

	if len(problems) > 0 {
		return models.Fields{}, dErrors.New(dErrors.CodeValidation, strings.Join(problems, "; "))
	}
	return out, nil
}

// ValidateSubjectID accepts an empty ID (no record is stored) or a short
// opaque key.
func ValidateSubjectID(id string) error {
	if id == "" || subjectIDPattern.MatchString(id) {
		return nil
	}
	return dErrors.New(dErrors.CodeValidation, "subjectId must be 1-128 characters of letters, digits, '.', '_', ':' or '-'")
}

// ValidateBundle only checks presence; content is the engine's concern.
func ValidateBundle(b models.Bundle) error {
	var missing []string
	if strings.TrimSpace(b.Proof) == "" {
		missing = append(missing, "proof")
	}
	if strings.TrimSpace(b.PublicOutput) == "" {
		missing = append(missing, "publicOutput")
	}
	if strings.TrimSpace(b.VerificationKey) == "" {
		missing = append(missing, "verificationKey")
	}
	if len(missing) > 0 {
		return dErrors.New(dErrors.CodeValidation, strings.Join(missing, ", ")+" required")
	}
	return nil
}
