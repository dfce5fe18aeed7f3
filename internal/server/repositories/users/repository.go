// Package users declares the principal-store contract consumed by the
// session service and the authentication gateway.
package users

import (
	"context"

	"github.com/dmitrijs2005/taskboard/internal/server/models"
)

type Repository interface {
	// Create stores a new user and returns it with its generated ID.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// FindByEmail returns the user with the given email or common.ErrorNotFound.
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// FindByID returns the user with the given ID or common.ErrorNotFound.
	FindByID(ctx context.Context, id string) (*models.User, error)

	// ExistsByEmail reports whether a user with the given email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// UpdatePassword replaces the stored password hash for a user.
	UpdatePassword(ctx context.Context, userID string, passwordHash string) error
}
