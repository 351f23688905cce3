package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	pool database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(pool database.DBTX) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new user into the database. The unique indexes on email
// and firebase_uid are the source of truth for duplicates: concurrent
// inserts race here and exactly one wins.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, auth_provider, firebase_uid, photo_url, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		u.ID,
		u.Name,
		u.Email,
		u.PasswordHash,
		u.AuthProvider,
		u.FirebaseUID,
		u.PhotoURL,
		u.Role,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Duplicate(fmt.Sprintf("user with email %q already exists", u.Email))
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := userSelect + ` WHERE id = $1`
	return r.scanUser(ctx, query, id)
}

// GetByEmail retrieves a user by their email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := userSelect + ` WHERE email = $1`
	return r.scanUser(ctx, query, email)
}

// GetByFirebaseUID retrieves a user by their external subject identifier.
func (r *UserRepository) GetByFirebaseUID(ctx context.Context, uid string) (*domain.User, error) {
	query := userSelect + ` WHERE firebase_uid = $1`
	return r.scanUser(ctx, query, uid)
}

// LinkFirebaseUID attaches an external subject identifier to an existing
// user found by email lookup during external sign-in.
func (r *UserRepository) LinkFirebaseUID(ctx context.Context, userID, uid string) error {
	query := `
		UPDATE users
		SET firebase_uid = $1, updated_at = $2
		WHERE id = $3`

	ct, err := r.pool.Exec(ctx, query, uid, time.Now().UTC(), userID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Duplicate(fmt.Sprintf("identity %q is already linked to another user", uid))
		}
		return fmt.Errorf("link firebase uid: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", userID)
	}

	return nil
}

// Update modifies an existing user in the database.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users
		SET name = $1, email = $2, password_hash = $3, auth_provider = $4,
		    firebase_uid = $5, photo_url = $6, role = $7, updated_at = $8
		WHERE id = $9`

	ct, err := r.pool.Exec(ctx, query,
		u.Name,
		u.Email,
		u.PasswordHash,
		u.AuthProvider,
		u.FirebaseUID,
		u.PhotoURL,
		u.Role,
		u.UpdatedAt,
		u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Duplicate(fmt.Sprintf("user with email %q already exists", u.Email))
		}
		return fmt.Errorf("update user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", u.ID)
	}

	return nil
}

const userSelect = `
		SELECT id, name, email, password_hash, auth_provider, firebase_uid, photo_url, role, created_at, updated_at
		FROM users`

// scanUser is a helper that executes a query expected to return a single user row.
func (r *UserRepository) scanUser(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var u domain.User

	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.AuthProvider,
		&u.FirebaseUID,
		&u.PhotoURL,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &u, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
