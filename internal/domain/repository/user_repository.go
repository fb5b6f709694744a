// Package repository defines persistence contracts for domain objects.
package repository

import (
	"context"

	"github.com/turtacn/perimeter/internal/domain/models"
)

// UserRepository is the identity store's persistence contract.
// Implementation: internal/infrastructure/persistence/gormstore/user_repository.go
type UserRepository interface {
	// FindByUsername loads a user with roles. Missing users return errors.ErrNotFound.
	FindByUsername(ctx context.Context, username string) (*models.User, error)

	// Create persists a user, creating any roles that do not yet exist.
	Create(ctx context.Context, user *models.User) error

	// Count returns the number of stored users.
	Count(ctx context.Context) (int64, error)
}

// UserCache caches user lookups by username.
// Implementation: internal/infrastructure/persistence/redis/user_cache.go
type UserCache interface {
	// Get returns the cached user, or (nil, nil) on a miss.
	Get(ctx context.Context, username string) (*models.User, error)
	Set(ctx context.Context, user *models.User) error
}
