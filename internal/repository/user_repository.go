package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/oszuidwest/zwfm-soundscape/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, username, fullName string, email *string, passwordHash string, role models.UserRole) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	IsUsernameTaken(ctx context.Context, username string) (bool, error)
	Count(ctx context.Context) (int64, error)

	// RecordLoginSuccess resets failed attempts and bumps login statistics.
	RecordLoginSuccess(ctx context.Context, id int64) error
	// RecordLoginFailure increments the failed attempt counter.
	RecordLoginFailure(ctx context.Context, id int64) error
}

// userRepository implements UserRepository.
type userRepository struct {
	*BaseRepository[models.User]
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{
		BaseRepository: NewBaseRepository[models.User](db, "users"),
	}
}

// Create inserts a new user and returns the created record.
func (r *userRepository) Create(ctx context.Context, username, fullName string, email *string, passwordHash string, role models.UserRole) (*models.User, error) {
	q := r.getQueryable(ctx)

	result, err := q.ExecContext(ctx,
		"INSERT INTO users (username, full_name, email, password_hash, role) VALUES (?, ?, ?, ?, ?)",
		username, fullName, email, passwordHash, role,
	)
	if err != nil {
		return nil, ParseDBError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return r.GetByID(ctx, id)
}

// GetByID retrieves a user that has not been deleted.
func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.FindBy(ctx, "id = ? AND deleted_at IS NULL", id)
}

// GetByUsername retrieves a user by username.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.FindBy(ctx, "username = ? AND deleted_at IS NULL", username)
}

// GetByEmail retrieves a user by email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.FindBy(ctx, "email = ? AND deleted_at IS NULL", email)
}

// IsUsernameTaken checks if username is in use.
func (r *userRepository) IsUsernameTaken(ctx context.Context, username string) (bool, error) {
	return r.ExistsBy(ctx, "username = ? AND deleted_at IS NULL", username)
}

func (r *userRepository) RecordLoginSuccess(ctx context.Context, id int64) error {
	q := r.getQueryable(ctx)

	result, err := q.ExecContext(ctx,
		"UPDATE users SET last_login_at = NOW(), login_count = login_count + 1, failed_login_attempts = 0 WHERE id = ?",
		id,
	)
	if err != nil {
		return ParseDBError(err)
	}
	return requireRowsAffected(result)
}

func (r *userRepository) RecordLoginFailure(ctx context.Context, id int64) error {
	q := r.getQueryable(ctx)

	_, err := q.ExecContext(ctx,
		"UPDATE users SET failed_login_attempts = failed_login_attempts + 1 WHERE id = ?",
		id,
	)
	return ParseDBError(err)
}
