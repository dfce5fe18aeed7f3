// Package auth implements the stateless access-token scheme (HS256 JWTs)
// and password hashing used by the session service.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/taskboard/internal/common"
)

// TokenIssuer creates and validates signed access tokens. Validity is a pure
// function of the signature and the embedded expiry; nothing is looked up.
type TokenIssuer struct {
	secretKey []byte
	ttl       time.Duration
}

func NewTokenIssuer(secretKey []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secretKey: secretKey, ttl: ttl}
}

// Issue signs a token embedding the subject, the issuance time, and
// issuance time + the configured TTL. No side effects.
func (i *TokenIssuer) Issue(subject string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	})

	return token.SignedString(i.secretKey)
}

// Validate verifies the signature and expiry and returns the embedded
// subject. Failures map onto exactly one of common.ErrTokenExpired,
// common.ErrTokenSignature, or common.ErrTokenMalformed.
func (i *TokenIssuer) Validate(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", common.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return "", common.ErrTokenSignature
		default:
			return "", common.ErrTokenMalformed
		}
	}
	if !token.Valid {
		return "", common.ErrTokenMalformed
	}

	// Expiry is re-checked against the clock here rather than trusted to the
	// library: a token with expiresAt <= now must never validate.
	if claims.ExpiresAt == nil {
		return "", common.ErrTokenMalformed
	}
	if !time.Now().Before(claims.ExpiresAt.Time) {
		return "", common.ErrTokenExpired
	}

	return claims.Subject, nil
}

// ExpiryOf returns the token's own embedded expiry without verifying the
// signature. Callers use it to size revocation TTLs for tokens that already
// failed full validation (an expired token still carries its expiry).
func (i *TokenIssuer) ExpiryOf(tokenString string) (time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, common.ErrTokenMalformed
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, common.ErrTokenMalformed
	}
	return claims.ExpiresAt.Time, nil
}

// Fingerprint derives the identity under which a token is tracked on the
// revocation list. The raw token value never reaches the store.
func Fingerprint(tokenString string) string {
	sum := sha256.Sum256([]byte(tokenString))
	return hex.EncodeToString(sum[:])
}
