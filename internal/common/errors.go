// Package common defines shared constants and sentinel errors used across
// the taskboard auth service. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal           = errors.New("internal error")
	ErrorEmailInUse         = errors.New("email already in use")
	ErrorInvalidCredentials = errors.New("invalid credentials")

	// Access token validation outcomes. A finite set: every failure of
	// TokenIssuer.Validate maps to exactly one of these.
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenSignature = errors.New("token signature invalid")

	// Refresh token lifecycle. Absent and expired are deliberately not
	// distinguished to the caller.
	ErrRefreshTokenInvalid = errors.New("refresh token invalid or expired")
)
