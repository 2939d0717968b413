// Package field maps identity strings onto BN254 scalar field elements.
//
// A FieldElement can only be obtained through Encode, through Commitment
// hashing in the circuit package, or by parsing a canonical encoding; raw
// untrusted bytes never become an element without reduction.
package field

import (
	"math/big"
	"slices"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// FieldElement is an element of the BN254 scalar field.
type FieldElement struct {
	v fr.Element
}

// Encode reads the bytes of s as a base-256 little-endian integer and reduces
// it modulo the field modulus. The empty string encodes to zero; callers must
// reject empty identity fields before encoding.
//
// Inputs longer than 31 bytes can exceed the modulus, so distinct strings may
// alias to the same element.
func Encode(s string) FieldElement {
	be := []byte(s)
	slices.Reverse(be)
	var e FieldElement
	e.v.SetBigInt(new(big.Int).SetBytes(be))
	return e
}

// FromElement wraps an element produced by backend arithmetic.
func FromElement(v fr.Element) FieldElement {
	return FieldElement{v: v}
}

// FromCanonical parses a 32-byte big-endian canonical encoding. Values at or
// above the modulus are rejected rather than reduced.
func FromCanonical(b []byte) (FieldElement, error) {
	var e FieldElement
	if err := e.v.SetBytesCanonical(b); err != nil {
		return FieldElement{}, err
	}
	return e, nil
}

// Element exposes the backend representation.
func (e FieldElement) Element() fr.Element {
	return e.v
}

// BigInt returns the element as a big integer in [0, modulus).
func (e FieldElement) BigInt() *big.Int {
	return e.v.BigInt(new(big.Int))
}

// Bytes returns the 32-byte big-endian canonical encoding.
func (e FieldElement) Bytes() [fr.Bytes]byte {
	return e.v.Bytes()
}

func (e FieldElement) IsZero() bool {
	return e.v.IsZero()
}

func (e FieldElement) Equal(o FieldElement) bool {
	return e.v.Equal(&o.v)
}

// Modulus returns the scalar field modulus.
func Modulus() *big.Int {
	return fr.Modulus()
}
