package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/viewtube/viewtube/internal/apperror"
)

// userColumns is the full column list scanned into a User.
const userColumns = `id, username, email, full_name, password_hash,
                 avatar_url, avatar_public_id, cover_url, cover_public_id,
                 refresh_token, created_at, updated_at`

// UserRepository defines the data access contract for user records.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	UsernameOrEmailTaken(ctx context.Context, username, email string) (bool, error)

	// UpdateRefreshToken overwrites the stored refresh token. A nil token
	// clears it (logout). Single-column last-write-wins is the entirety of
	// the rotation story; no stronger guarantee is needed.
	UpdateRefreshToken(ctx context.Context, id string, token *string) error

	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateAccount(ctx context.Context, id, fullName, email string) error
	UpdateAvatar(ctx context.Context, id, url, publicID string) error
	UpdateCover(ctx context.Context, id, url, publicID string) error
}

// userRepository implements UserRepository with hand-written MariaDB queries.
type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository backed by the given DB pool.
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new user row. A duplicate username or email surfaces as
// apperror.Conflict so racing registrations behave the same as the upfront
// uniqueness check.
func (r *userRepository) Create(ctx context.Context, user *User) error {
	query := `INSERT INTO users (id, username, email, full_name, password_hash,
	          avatar_url, avatar_public_id, cover_url, cover_public_id, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.FullName,
		user.PasswordHash,
		user.AvatarURL,
		user.AvatarPublicID,
		user.CoverURL,
		user.CoverPublicID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return apperror.NewConflict("user with email or username already exists")
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

// FindByID retrieves a user by their UUID.
// Returns apperror.NotFound if no user exists with this ID.
func (r *userRepository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.findBy(ctx, "id", id)
}

// FindByUsername retrieves a user by username. The caller is expected to have
// lower-cased the username already; usernames are stored lower-case.
func (r *userRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.findBy(ctx, "username", username)
}

// FindByEmail retrieves a user by their email address.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findBy(ctx, "email", email)
}

// findBy retrieves a single user by an exact-match column lookup.
// Returns apperror.NotFound if no row matches.
func (r *userRepository) findBy(ctx context.Context, column, value string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s = ?`, userColumns, column)

	user := &User{}
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&user.PasswordHash,
		&user.AvatarURL,
		&user.AvatarPublicID,
		&user.CoverURL,
		&user.CoverPublicID,
		&user.RefreshToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by %s: %w", column, err)
	}

	return user, nil
}

// UsernameOrEmailTaken returns true if any user holds the given username or
// email. Used during registration to reject duplicates before the expensive
// password hash and media upload.
func (r *userRepository) UsernameOrEmailTaken(ctx context.Context, username, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = ? OR email = ?)`

	var taken bool
	err := r.db.QueryRowContext(ctx, query, username, email).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("checking username/email existence: %w", err)
	}

	return taken, nil
}

// UpdateRefreshToken overwrites (or clears, when nil) the stored refresh token.
func (r *userRepository) UpdateRefreshToken(ctx context.Context, id string, token *string) error {
	query := `UPDATE users SET refresh_token = ?, updated_at = NOW() WHERE id = ?`

	// Logout clears unconditionally, so a zero-row result (already-cleared
	// token) is not an error here.
	_, err := r.db.ExecContext(ctx, query, token, id)
	if err != nil {
		return fmt.Errorf("updating refresh token: %w", err)
	}
	return nil
}

// UpdatePassword sets a new password hash for a user.
func (r *userRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE users SET password_hash = ?, updated_at = NOW() WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return requireRow(result)
}

// UpdateAccount sets the display name and email for a user. A duplicate
// email surfaces as apperror.Conflict.
func (r *userRepository) UpdateAccount(ctx context.Context, id, fullName, email string) error {
	query := `UPDATE users SET full_name = ?, email = ?, updated_at = NOW() WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, fullName, email, id)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return apperror.NewConflict("email already in use")
		}
		return fmt.Errorf("updating account: %w", err)
	}
	return requireRow(result)
}

// UpdateAvatar sets a new avatar reference for a user.
func (r *userRepository) UpdateAvatar(ctx context.Context, id, url, publicID string) error {
	query := `UPDATE users SET avatar_url = ?, avatar_public_id = ?, updated_at = NOW() WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, url, publicID, id)
	if err != nil {
		return fmt.Errorf("updating avatar: %w", err)
	}
	return requireRow(result)
}

// UpdateCover sets a new cover-image reference for a user.
func (r *userRepository) UpdateCover(ctx context.Context, id, url, publicID string) error {
	query := `UPDATE users SET cover_url = ?, cover_public_id = ?, updated_at = NOW() WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, url, publicID, id)
	if err != nil {
		return fmt.Errorf("updating cover image: %w", err)
	}
	return requireRow(result)
}

// requireRow converts a zero-row UPDATE into apperror.NotFound.
func requireRow(result sql.Result) error {
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("user not found")
	}
	return nil
}
