package storage

import (
	"context"

	"github.com/iudanet/inventory/internal/models"
)

// UserStorage defines interface for user data persistence
type UserStorage interface {
	// CreateUser creates a new user in the storage
	// Returns ErrUserAlreadyExists if email is already taken
	CreateUser(ctx context.Context, user *models.User) error

	// DeleteUnverifiedUser removes a user whose email is not verified
	// Returns ErrUserNotFound if there is no such unverified user
	DeleteUnverifiedUser(ctx context.Context, userID string) error

	// GetUserByEmail retrieves user by (normalized) email
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves user by ID
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	// MarkVerified flips is_verified from false to true
	// Returns ErrUserNotFound or ErrUserAlreadyVerified
	MarkVerified(ctx context.Context, userID string) error

	// Ping checks the connection
	Ping(ctx context.Context) error
}
