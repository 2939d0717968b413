// Package models holds the plain values that cross the engine boundary and
// the HTTP boundary. Everything here is strings, bools and times.
package models

import "time"

// Fields are the three raw identity fields. They are never persisted.
type Fields struct {
	FullName string `json:"fullName"`
	DOB      string `json:"dob"`
	IDNumber string `json:"idNumber"`
}

// Bundle is the attestation bundle handed to verifiers.
type Bundle struct {
	Proof           string `json:"proof"`
	PublicOutput    string `json:"publicOutput"`
	VerificationKey string `json:"verificationKey"`
}

type VerifyResult struct {
	Verified bool   `json:"verified"`
	Message  string `json:"message,omitempty"`
}

// Record is what the record store keeps for a subject.
type Record struct {
	SubjectID       string    `json:"subjectId"`
	Commitment      string    `json:"commitment"`
	Proof           string    `json:"proof"`
	VerificationKey string    `json:"verificationKey"`
	Signature       string    `json:"signature"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Bundle rebuilds the bundle the record was created from.
func (r Record) Bundle() Bundle {
	return Bundle{
		Proof:           r.Proof,
		PublicOutput:    r.Commitment,
		VerificationKey: r.VerificationKey,
	}
}

// Liveness is the engine's answer to a ping.
type Liveness struct {
	Alive          bool   `json:"alive"`
	Compiled       bool   `json:"compiled"`
	CircuitVersion int    `json:"circuitVersion"`
	KeyFingerprint string `json:"keyFingerprint,omitempty"`
}

// CommitRequest asks for a bundle over Fields. When SubjectID is set the
// resulting record is stored under it.
type CommitRequest struct {
	SubjectID string
	Fields    Fields
}

type CommitResult struct {
	Bundle    Bundle
	Signature string
	SubjectID string
}
