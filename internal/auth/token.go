// Package auth holds the credential issuer and the token gate shared by
// every externally exposed surface. Tokens are stateless HS256 JWTs; any
// holder of the signing key can verify them independently.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the fixed validity window of issued tokens.
const TokenTTL = 2 * time.Hour

// TokenPolicy is the single token-validation configuration consumed by
// both the issuer and every component that gates on identity.
type TokenPolicy struct {
	Key      []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

// Verifier decides whether a username/password pair identifies a known
// caller. Injected so the identity source can be swapped without touching
// token issuance.
type Verifier interface {
	Verify(username, password string) bool
}

// StaticVerifier matches a single configured credential.
type StaticVerifier struct {
	Username string
	Password string
}

func (v StaticVerifier) Verify(username, password string) bool {
	return username == v.Username && password == v.Password
}

// Issue signs a token for subject, valid for policy.TTL.
func Issue(policy TokenPolicy, subject string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    policy.Issuer,
		Audience:  jwt.ClaimStrings{policy.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(policy.TTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(policy.Key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature, expiry, issuer and audience, and returns the
// subject claim.
func Parse(policy TokenPolicy, raw string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
			}
			return policy.Key, nil
		},
		jwt.WithIssuer(policy.Issuer),
		jwt.WithAudience(policy.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return "", fmt.Errorf("invalid token: unexpected claims type")
	}
	return claims.Subject, nil
}
