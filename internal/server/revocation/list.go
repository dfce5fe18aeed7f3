// Package revocation maintains the ephemeral denylist of access-token
// fingerprints. Entries live only until the token's own expiry, so losing
// the store is bounded: a token missed here is still rejected by its clock.
package revocation

import (
	"context"
	"time"

	"github.com/dmitrijs2005/taskboard/internal/logging"
)

const keyPrefix = "blacklisted_token:"

// KV is the minimal key-value contract the list needs from its store:
// a TTL-bound set and an existence check.
type KV interface {
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
}

// List is the revocation list over a TTL-capable key-value store.
type List struct {
	kv     KV
	logger logging.Logger
}

func NewList(kv KV, logger logging.Logger) *List {
	return &List{kv: kv, logger: logger.With("module", "revocation")}
}

// Blacklist records the fingerprint until expiresAt. A fingerprint whose
// expiry is already past is not stored: the token is rejected by its own
// clock anyway. Write failures are logged and swallowed; natural expiry is
// the fallback, and a logout must not fail because the store is down.
func (l *List) Blacklist(ctx context.Context, fingerprint string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	if err := l.kv.Set(ctx, keyPrefix+fingerprint, "1", ttl); err != nil {
		l.logger.Error(ctx, "blacklist write failed, relying on natural token expiry",
			"fingerprint", fingerprint, "error", err)
	}
}

// IsRevoked reports whether the fingerprint is on the list.
//
// Fail-open: when the store is unreachable this returns false and logs the
// failure. Availability is deliberately prioritized over strict revocation
// enforcement; the exposure is bounded by each token's embedded expiry.
func (l *List) IsRevoked(ctx context.Context, fingerprint string) bool {
	revoked, err := l.kv.Exists(ctx, keyPrefix+fingerprint)
	if err != nil {
		l.logger.Error(ctx, "revocation check failed, failing open",
			"fingerprint", fingerprint, "error", err)
		return false
	}
	return revoked
}
