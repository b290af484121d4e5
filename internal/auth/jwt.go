// Package auth issues and validates access tokens and serves the local
// username and password endpoints.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// ErrInvalidIssuer is returned for a well-signed token from another issuer
var ErrInvalidIssuer = errors.New("invalid token issuer")

// TokenIssuer signs and checks HS256 access tokens
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer returns an issuer signing with secret. Tokens live for ttl.
func NewTokenIssuer(secret, issuer string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// Issuer returns the iss claim the issuer writes and expects
func (ti *TokenIssuer) Issuer() string {
	return ti.issuer
}

// Generate returns a signed access token for userID
func (ti *TokenIssuer) Generate(userID uuid.UUID) (string, error) {
	return ti.GenerateWithDuration(userID, ti.ttl)
}

// GenerateWithDuration returns a token expiring after d. A negative d yields
// an already expired token.
func (ti *TokenIssuer) GenerateWithDuration(userID uuid.UUID, d time.Duration) (string, error) {
	now := ti.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    ti.issuer,
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	})

	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses encoded and returns its claims. Expired tokens fail with an
// error wrapping jwt.ErrTokenExpired.
func (ti *TokenIssuer) Validate(encoded string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(encoded, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return ti.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid access token")
	}
	if !claims.VerifyIssuer(ti.issuer, true) {
		return nil, ErrInvalidIssuer
	}
	return claims, nil
}

// UserID returns the subject of claims as a uuid
func UserID(claims *jwt.RegisteredClaims) (uuid.UUID, error) {
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid token subject: %w", err)
	}
	return id, nil
}
