package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenMalformed   = errors.New("token malformed")
	ErrInvalidSignature = errors.New("token signature invalid")
	ErrTokenExpired     = errors.New("token expired")
)

// TokenIssuer mints and verifies signed access tokens. It is stateless and
// safe for concurrent use; the signing key is read-only after construction.
type TokenIssuer struct {
	signingKey []byte
}

func NewTokenIssuer(signingKey []byte) (*TokenIssuer, error) {
	if len(signingKey) == 0 {
		return nil, errors.New("signing key must not be empty")
	}
	return &TokenIssuer{signingKey: signingKey}, nil
}

// Issue returns a signed token carrying the subject, issued now and
// expiring after ttl.
func (issuer *TokenIssuer) Issue(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(issuer.signingKey)
}

// Verify checks signature and expiry and returns the embedded subject.
// Failures are reported as ErrTokenMalformed, ErrInvalidSignature or
// ErrTokenExpired.
func (issuer *TokenIssuer) Verify(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return issuer.signingKey, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return "", ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return "", ErrInvalidSignature
		default:
			return "", ErrTokenMalformed
		}
	}
	if !token.Valid {
		return "", ErrInvalidSignature
	}
	return claims.Subject, nil
}

// IsExpired reports whether the token's expiry has passed without treating
// expiry as a verification failure. Unusable tokens count as expired.
func (issuer *TokenIssuer) IsExpired(tokenStr string) bool {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := &jwt.RegisteredClaims{}
	_, err := parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return issuer.signingKey, nil
	})
	if err != nil || claims.ExpiresAt == nil {
		return true
	}
	return !time.Now().Before(claims.ExpiresAt.Time)
}
