// Package codec converts proofs, verification keys and commitments to and
// from their text forms.
//
// Proofs and keys use the envelope
//
//	<kind>.<version>.<payload>
//
// where payload is the unpadded base64url encoding of the backend's binary
// serialization. Commitments are 0x-prefixed, 64 hex digit canonical field
// elements.
package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark/backend/groth16"
	"golang.org/x/crypto/blake2b"

	"zkattest/internal/attestation/circuit"
	"zkattest/internal/attestation/field"
	"zkattest/internal/attestation/zk"
	dErrors "zkattest/pkg/domain-errors"
)

type Kind string

const (
	KindProof           Kind = "prf"
	KindVerificationKey Kind = "vk"
	KindCommitment      Kind = "commitment"
)

const commitmentPrefix = "0x"

var payloadEncoding = base64.RawURLEncoding.Strict()

// Compressed proof layout for a circuit without commitments: Ar, Bs, Krs, a
// zero commitment count and the commitment proof of knowledge.
const (
	proofCountOffset = 2*bn254.SizeOfG1AffineCompressed + bn254.SizeOfG2AffineCompressed
	proofSize        = proofCountOffset + 4 + bn254.SizeOfG1AffineCompressed
)

// Causes carried by CodeDecode errors. Callers use them to tell a malformed
// envelope from a well-formed envelope with an unusable payload.
var (
	ErrMalformed       = errors.New("malformed envelope")
	ErrKindMismatch    = errors.New("unexpected artifact kind")
	ErrVersionMismatch = errors.New("unsupported artifact version")
	ErrPayload         = errors.New("invalid payload")
)

func EncodeProof(p *zk.Proof) (string, error) {
	if p == nil || p.Backend() == nil {
		return "", dErrors.New(dErrors.CodeInternal, "cannot encode empty proof")
	}
	return seal(KindProof, p.Backend())
}

func EncodeVerificationKey(vk groth16.VerifyingKey) (string, error) {
	if vk == nil {
		return "", dErrors.New(dErrors.CodeInternal, "cannot encode empty verification key")
	}
	return seal(KindVerificationKey, vk)
}

func EncodeCommitment(c circuit.Commitment) string {
	b := c.Bytes()
	return commitmentPrefix + hex.EncodeToString(b[:])
}

func DecodeProof(s string) (*zk.Proof, error) {
	payload, err := open(s, KindProof)
	if err != nil {
		return nil, err
	}
	if err := checkProofLayout(payload); err != nil {
		return nil, dErrors.Wrap(fmt.Errorf("%w: %w", ErrPayload, err), dErrors.CodeDecode, "proof payload is not a valid proof")
	}
	p := groth16.NewProof(circuit.Curve)
	if err := readCanonical(p, payload); err != nil {
		return nil, dErrors.Wrap(fmt.Errorf("%w: %w", ErrPayload, err), dErrors.CodeDecode, "proof payload is not a valid proof")
	}
	return zk.WrapProof(p), nil
}

// DecodeVerificationKey reads a key. The backend sizes its slices from length
// prefixes in the payload, so keys from untrusted sources should be compared
// with CheckEnvelope and string equality instead.
func DecodeVerificationKey(s string) (groth16.VerifyingKey, error) {
	payload, err := open(s, KindVerificationKey)
	if err != nil {
		return nil, err
	}
	vk := groth16.NewVerifyingKey(circuit.Curve)
	if err := readCanonical(vk, payload); err != nil {
		return nil, dErrors.Wrap(fmt.Errorf("%w: %w", ErrPayload, err), dErrors.CodeDecode, "verification key payload is not a valid key")
	}
	return vk, nil
}

func DecodeCommitment(s string) (circuit.Commitment, error) {
	digits, ok := strings.CutPrefix(s, commitmentPrefix)
	if !ok || len(digits) != 64 {
		return circuit.Commitment{}, dErrors.Wrap(ErrMalformed, dErrors.CodeDecode, "commitment must be 0x followed by 64 hex digits")
	}
	b, err := hex.DecodeString(digits)
	if err != nil {
		return circuit.Commitment{}, dErrors.Wrap(ErrMalformed, dErrors.CodeDecode, "commitment must be 0x followed by 64 hex digits")
	}
	e, err := field.FromCanonical(b)
	if err != nil {
		return circuit.Commitment{}, dErrors.Wrap(fmt.Errorf("%w: %w", ErrPayload, err), dErrors.CodeDecode, "commitment is not a canonical field element")
	}
	return circuit.Commitment{FieldElement: e}, nil
}

// Decode dispatches on kind. The result is a *zk.Proof, a
// groth16.VerifyingKey or a circuit.Commitment.
func Decode(s string, kind Kind) (any, error) {
	switch kind {
	case KindProof:
		return DecodeProof(s)
	case KindVerificationKey:
		return DecodeVerificationKey(s)
	case KindCommitment:
		return DecodeCommitment(s)
	default:
		return nil, dErrors.Wrap(ErrKindMismatch, dErrors.CodeDecode, fmt.Sprintf("unknown artifact kind %q", kind))
	}
}

// CheckEnvelope validates kind, version and payload encoding without
// deserializing the payload.
func CheckEnvelope(s string, kind Kind) error {
	_, err := open(s, kind)
	return err
}

// Fingerprint is the hex blake2b-256 digest of the key's binary form.
func Fingerprint(vk groth16.VerifyingKey) (string, error) {
	var buf bytes.Buffer
	if _, err := vk.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("serialize verification key: %w", err)
	}
	sum := blake2b.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

func seal(kind Kind, w io.WriterTo) (string, error) {
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("failed to serialize %s", kind))
	}
	return string(kind) + "." + strconv.Itoa(circuit.Version) + "." + payloadEncoding.EncodeToString(buf.Bytes()), nil
}

func open(s string, kind Kind) ([]byte, error) {
	// The payload alphabet has no ".", so anything after the second
	// separator belongs to the payload.
	parts := strings.SplitN(s, ".", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return nil, dErrors.Wrap(ErrMalformed, dErrors.CodeDecode, fmt.Sprintf("expected %s.<version>.<payload>", kind))
	}
	if Kind(parts[0]) != kind {
		return nil, dErrors.Wrap(ErrKindMismatch, dErrors.CodeDecode, fmt.Sprintf("expected kind %q, got %q", kind, parts[0]))
	}
	version, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, dErrors.Wrap(ErrMalformed, dErrors.CodeDecode, "artifact version is not a number")
	}
	if version != circuit.Version {
		return nil, dErrors.Wrap(ErrVersionMismatch, dErrors.CodeDecode, fmt.Sprintf("artifact version %d is not supported", version))
	}
	payload, err := payloadEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, dErrors.Wrap(fmt.Errorf("%w: %w", ErrPayload, err), dErrors.CodeDecode, "payload is not base64url")
	}
	return payload, nil
}

// checkProofLayout runs before deserialization because the backend allocates
// the commitment list from the untrusted count.
func checkProofLayout(b []byte) error {
	if len(b) != proofSize {
		return fmt.Errorf("proof is %d bytes, want %d", len(b), proofSize)
	}
	if binary.BigEndian.Uint32(b[proofCountOffset:]) != 0 {
		return errors.New("proof carries commitments the circuit does not use")
	}
	return nil
}

type readWriterTo interface {
	io.ReaderFrom
	io.WriterTo
}

// readCanonical reads payload into v and requires that v serializes back to
// exactly payload, which rules out trailing bytes and alternate encodings.
func readCanonical(v readWriterTo, payload []byte) error {
	if _, err := v.ReadFrom(bytes.NewReader(payload)); err != nil {
		return err
	}
	var buf bytes.Buffer
	if _, err := v.WriteTo(&buf); err != nil {
		return err
	}
	if !bytes.Equal(buf.Bytes(), payload) {
		return errors.New("payload is not in canonical form")
	}
	return nil
}
