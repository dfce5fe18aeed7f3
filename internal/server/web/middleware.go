package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/taskboard/internal/common"
	"github.com/dmitrijs2005/taskboard/internal/logging"
	"github.com/dmitrijs2005/taskboard/internal/server/auth"
	"github.com/dmitrijs2005/taskboard/internal/server/models"
)

// PrincipalStore is the slice of the user store the gateway needs: resolving
// a token subject to a principal. No caching — every request re-derives truth
// so behavior stays correct across concurrently running instances.
type PrincipalStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// RevocationChecker is the gateway's view of the revocation list.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, fingerprint string) bool
	Blacklist(ctx context.Context, fingerprint string, expiresAt time.Time)
}

// GatewayDeps bundles what the authentication middleware needs.
type GatewayDeps struct {
	Issuer     *auth.TokenIssuer
	Principals PrincipalStore
	Revoked    RevocationChecker
	Logger     logging.Logger
}

// publicPaths lists endpoints reachable without a bearer token. The session
// endpoints authenticate by other means (password or refresh cookie).
var publicPaths = map[string]struct{}{
	"/auth/register": {},
	"/auth/login":    {},
	"/auth/refresh":  {},
	"/auth/logout":   {},
	"/healthz":       {},
}

// Authenticate is the per-request authentication gateway. For every
// non-public request carrying a bearer token it checks the revocation list,
// validates the token, resolves the principal, and attaches it to the
// request context. Requests without a bearer pass through unauthenticated;
// downstream authorization rejects them.
func Authenticate(deps GatewayDeps, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := publicPaths[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}

		raw := extractBearer(r.Header.Get("Authorization"))
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		fingerprint := auth.Fingerprint(raw)

		// IsRevoked fails open on store outages: availability over strict
		// revocation, bounded by the token's own expiry.
		if deps.Revoked.IsRevoked(ctx, fingerprint) {
			deps.Logger.Warn(ctx, "rejected blacklisted token", "path", r.URL.Path)
			writeError(w, http.StatusUnauthorized, "token has been invalidated")
			return
		}

		subject, err := deps.Issuer.Validate(raw)
		if err != nil {
			switch {
			case errors.Is(err, common.ErrTokenExpired):
				// Blacklist proactively: covers a token revoked while it was
				// still in flight, using its own expiry as the entry TTL.
				if exp, expErr := deps.Issuer.ExpiryOf(raw); expErr == nil {
					deps.Revoked.Blacklist(ctx, fingerprint, exp)
				}
				writeError(w, http.StatusUnauthorized, "token has expired")
			case errors.Is(err, common.ErrTokenSignature), errors.Is(err, common.ErrTokenMalformed):
				deps.Logger.Warn(ctx, "rejected invalid token", "path", r.URL.Path, "error", err)
				writeError(w, http.StatusUnauthorized, "invalid token")
			default:
				deps.Logger.Error(ctx, "token validation failed", "error", err)
				writeError(w, http.StatusInternalServerError, "internal error")
			}
			return
		}

		user, err := deps.Principals.FindByEmail(ctx, subject)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				// Valid token, but the subject no longer exists.
				writeError(w, http.StatusForbidden, "unknown principal")
				return
			}
			deps.Logger.Error(ctx, "principal lookup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, *user)))
	})
}

// RequestLogging logs each request with its duration and recovers panics
// into a generic 500 so no internals leak.
func RequestLogging(logger logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		defer func() {
			if p := recover(); p != nil {
				logger.Error(r.Context(), "panic while handling request",
					"method", r.Method, "path", r.URL.Path, "panic", p)
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			logger.Debug(r.Context(), "request handled",
				"method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
		}()
		next.ServeHTTP(w, r)
	})
}

func extractBearer(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
