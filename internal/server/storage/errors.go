package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that user with this email already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrUserAlreadyVerified indicates that the user email is already verified
	ErrUserAlreadyVerified = errors.New("user already verified")

	// ErrProductNotFound indicates that product was not found or belongs to another user
	ErrProductNotFound = errors.New("product not found")
)
