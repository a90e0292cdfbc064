// Package users stores the mirror's login credentials.
package users

import (
	"context"

	"github.com/obralink/obralink/internal/server/models"
)

type Repository interface {
	// Create inserts a new user. Returns common.ErrUsernameTaken when the
	// username is already registered.
	Create(ctx context.Context, u *models.User) error

	// GetByUsername returns the user, or common.ErrNotFound.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}
