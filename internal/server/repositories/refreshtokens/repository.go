// Package refreshtokens declares the durable refresh-record store. It owns
// the anti-replay guarantee: the conditional Delete is the rotation arbiter,
// so two concurrent rotations of the same token admit exactly one winner.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/taskboard/internal/server/models"
)

type Repository interface {
	// Create stores a new refresh token for userID expiring at now+validity.
	Create(ctx context.Context, userID string, token string, validity time.Duration) error

	// Find looks up a refresh token by its opaque value and returns its
	// metadata, or common.ErrorNotFound when absent. Expiry is the caller's
	// check: a found-but-stale row is indistinguishable from absent to the
	// outside world.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a refresh token by value and reports whether a row was
	// actually deleted. Run inside a transaction, the returned flag decides
	// the single winner of a concurrent rotation.
	Delete(ctx context.Context, token string) (bool, error)

	// DeleteByUser removes every refresh token owned by userID (password
	// change, log out everywhere).
	DeleteByUser(ctx context.Context, userID string) error

	// DeleteExpired removes rows whose expiry has passed and returns the
	// number deleted. Used by the periodic sweep.
	DeleteExpired(ctx context.Context) (int64, error)
}
