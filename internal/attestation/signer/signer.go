// Package signer is a stand-in for the off-chain identity provider that
// endorses commitments. It issues an HS256 JWT over the commitment string.
package signer

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "zkattest/pkg/domain-errors"
)

// Claims carry only commitment-level data.
type Claims struct {
	Commitment     string `json:"commitment"`
	CircuitVersion int    `json:"circuit_version"`
	jwt.RegisteredClaims
}

type Signer struct {
	signingKey     []byte
	issuer         string
	circuitVersion int
	now            func() time.Time
}

func New(signingKey, issuer string, circuitVersion int) *Signer {
	return &Signer{
		signingKey:     []byte(signingKey),
		issuer:         issuer,
		circuitVersion: circuitVersion,
		now:            time.Now,
	}
}

// Sign endorses commitment. The signature does not expire.
func (s *Signer) Sign(_ context.Context, commitment string) (string, error) {
	if commitment == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "commitment is required")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Commitment:     commitment,
		CircuitVersion: s.circuitVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(s.now()),
			Issuer:   s.issuer,
			ID:       uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign commitment")
	}
	return signed, nil
}

// Parse validates a signature and returns its claims.
func (s *Signer) Parse(signature string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(signature, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "signature does not match")
		}
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid signature")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid signature")
	}
	return claims, nil
}

// Check reports whether signature is a valid endorsement of commitment.
func (s *Signer) Check(_ context.Context, signature, commitment string) error {
	claims, err := s.Parse(signature)
	if err != nil {
		return err
	}
	if claims.Commitment != commitment {
		return dErrors.New(dErrors.CodeInvalidInput, "signature endorses a different commitment")
	}
	return nil
}
