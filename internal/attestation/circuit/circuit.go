// Package circuit defines the attestation relation
//
//	MiMC(fullName, dob, idNumber) == commitment
//
// with one public input and three private inputs. The hash and curve are part
// of the protocol: changing either invalidates every issued key and proof, so
// Version must be bumped with it.
package circuit

import (
	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// Version identifies the circuit, hash and curve combination.
const Version = 1

// Curve is the proving curve. Its scalar field is the encoder's field.
const Curve = ecc.BN254

// Circuit is the gnark definition. Public inputs are declared first and there
// is exactly one.
type Circuit struct {
	Commitment frontend.Variable `gnark:",public"`

	FullName frontend.Variable
	DOB      frontend.Variable
	IDNumber frontend.Variable
}

// Define asserts that the private fields hash to the public commitment.
func (c *Circuit) Define(api frontend.API) error {
	hasher, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	hasher.Write(c.FullName, c.DOB, c.IDNumber)
	api.AssertIsEqual(hasher.Sum(), c.Commitment)
	return nil
}
