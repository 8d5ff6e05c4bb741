package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iudanet/inventory/internal/models"
	"github.com/iudanet/inventory/internal/server/storage"
)

var _ storage.UserStorage = (*Storage)(nil)

const userColumns = `id, full_name, email, password_hash, is_verified, created_at`

// CreateUser creates a new user in the storage
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	query := s.rebind(`
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
	`)

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.FullName,
		user.Email,
		user.PasswordHash,
		boolToInt(user.IsVerified),
		timeToUnix(user.CreatedAt),
	)

	if err != nil {
		// Проверяем на duplicate email
		if isUniqueViolation(err) {
			return storage.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// DeleteUnverifiedUser removes a user that has not confirmed the email yet
func (s *Storage) DeleteUnverifiedUser(ctx context.Context, userID string) error {
	query := s.rebind(`DELETE FROM users WHERE id = ? AND is_verified = 0`)

	result, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrUserNotFound
	}
	return nil
}

// GetUserByEmail retrieves user by email
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := s.rebind(`SELECT ` + userColumns + ` FROM users WHERE email = ?`)
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

// GetUserByID retrieves user by ID
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	query := s.rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)
	return s.scanUser(s.db.QueryRowContext(ctx, query, userID))
}

func (s *Storage) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var verified int
	var createdAt int64

	err := row.Scan(
		&user.ID,
		&user.FullName,
		&user.Email,
		&user.PasswordHash,
		&verified,
		&createdAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.IsVerified = verified != 0
	user.CreatedAt = unixToTime(createdAt)

	return user, nil
}

// MarkVerified flips is_verified for an unverified user
func (s *Storage) MarkVerified(ctx context.Context, userID string) error {
	query := s.rebind(`UPDATE users SET is_verified = 1 WHERE id = ? AND is_verified = 0`)

	result, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 1 {
		return nil
	}

	// Ни одной строки: пользователя нет либо он уже подтвержден
	if _, err := s.GetUserByID(ctx, userID); err != nil {
		return err
	}
	return storage.ErrUserAlreadyVerified
}
