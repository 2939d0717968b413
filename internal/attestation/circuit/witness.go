package circuit

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"

	"zkattest/internal/attestation/field"
)

// Commitment is the public hash of a Witness.
type Commitment struct {
	field.FieldElement
}

// Witness is the ordered private triple. It lives only for the duration of a
// prove call and must never be logged or persisted.
type Witness struct {
	FullName field.FieldElement
	DOB      field.FieldElement
	IDNumber field.FieldElement
}

// String keeps witnesses out of logs and fmt output.
func (Witness) String() string {
	return "Witness{redacted}"
}

// GoString keeps witnesses out of %#v output.
func (w Witness) GoString() string {
	return w.String()
}

// NewWitness encodes already-normalized field values.
func NewWitness(fullName, dob, idNumber string) Witness {
	return Witness{
		FullName: field.Encode(fullName),
		DOB:      field.Encode(dob),
		IDNumber: field.Encode(idNumber),
	}
}

// Hash computes the commitment natively with the same MiMC instance the
// circuit uses.
func Hash(w Witness) (Commitment, error) {
	h := mimc.NewMiMC()
	for _, e := range []field.FieldElement{w.FullName, w.DOB, w.IDNumber} {
		b := e.Bytes()
		if _, err := h.Write(b[:]); err != nil {
			return Commitment{}, fmt.Errorf("hash witness: %w", err)
		}
	}
	var out fr.Element
	out.SetBytes(h.Sum(nil))
	return Commitment{FieldElement: field.FromElement(out)}, nil
}

// Assignment builds the full (public + private) gnark assignment.
func Assignment(c Commitment, w Witness) *Circuit {
	return &Circuit{
		Commitment: c.BigInt(),
		FullName:   w.FullName.BigInt(),
		DOB:        w.DOB.BigInt(),
		IDNumber:   w.IDNumber.BigInt(),
	}
}

// PublicAssignment builds the public-only assignment used for verification.
func PublicAssignment(c Commitment) *Circuit {
	return &Circuit{Commitment: c.BigInt()}
}
