// Package users declares the server-side repository contract for user
// accounts and its PostgreSQL and in-memory implementations.
package users

import (
	"context"

	"github.com/hefi-app/hefi/internal/server/models"
)

// Repository stores user accounts.
type Repository interface {
	// Create inserts user and fills its ID and CreatedAt. A duplicate email
	// yields common.ErrorConflict.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByEmail returns common.ErrorNotFound when no user has that email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByID returns common.ErrorNotFound when the id is unknown.
	GetByID(ctx context.Context, id int64) (*models.User, error)
}
