package audit

import "time"

// Action names the attestation stage an event records.
type Action string

const (
	ActionCommitmentIssued     Action = "attestation_committed"
	ActionCommitmentCalculated Action = "commitment_calculated"
	ActionProofVerified        Action = "attestation_verified"
	ActionProofRejected        Action = "attestation_rejected"
	ActionStageFailed          Action = "attestation_stage_failed"
)

// Event is emitted from the attestation service. It carries commitment-level
// data only; identity fields never reach the audit trail.
type Event struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Action     Action    `json:"action"`
	Stage      string    `json:"stage"`
	SubjectID  string    `json:"subjectId,omitempty"`
	Commitment string    `json:"commitment,omitempty"`
	ErrorCode  string    `json:"errorCode,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	RequestID  string    `json:"requestId,omitempty"`
}
