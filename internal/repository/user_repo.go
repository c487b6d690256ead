package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"weather_favorites/internal/models"
	"weather_favorites/internal/repository/db"
)

type UserRepository struct {
	db      *sql.DB
	dialect db.Dialect
	now     func() time.Time
}

func NewUserRepository(conn *sql.DB, d db.Dialect) *UserRepository {
	return &UserRepository{db: conn, dialect: d, now: func() time.Time { return time.Now().UTC() }}
}

// Ensure implementation of Users interface at compile time.
var _ Users = (*UserRepository)(nil)

const userColumns = `id, username, password, email, first_name, last_name, profile_image_url, token_version, created_at, updated_at`

const (
	insertUserSQL = `INSERT INTO users (username, password, email, first_name, last_name, profile_image_url, token_version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`
	selectUserByIDSQL       = `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	selectUserByUsernameSQL = `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	usernameExistsSQL       = `SELECT 1 FROM users WHERE username = ? LIMIT 1`
	emailExistsSQL          = `SELECT 1 FROM users WHERE email = ? LIMIT 1`
	bumpTokenVersionSQL     = `UPDATE users SET token_version = token_version + 1, updated_at = ? WHERE id = ? RETURNING token_version`
	updatePasswordSQL       = `UPDATE users SET password = ?, updated_at = ? WHERE id = ?`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u                                   models.User
		email, first, last, profileImageURL sql.NullString
	)
	if err := row.Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&email,
		&first,
		&last,
		&profileImageURL,
		&u.TokenVersion,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.Email = stringPtr(email)
	u.FirstName = stringPtr(first)
	u.LastName = stringPtr(last)
	u.ProfileImageURL = stringPtr(profileImageURL)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

// Create inserts a new user and returns its ID. A taken username or email
// yields ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, u models.User) (int, error) {
	now := r.now()
	if u.TokenVersion == 0 {
		u.TokenVersion = 1
	}
	var id int
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(insertUserSQL),
		u.Username,
		u.PasswordHash,
		nullString(u.Email),
		nullString(u.FirstName),
		nullString(u.LastName),
		nullString(u.ProfileImageURL),
		u.TokenVersion,
		now,
		now,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert user %q: %w", u.Username, ErrDuplicate)
		}
		return 0, fmt.Errorf("insert user %q: %w", u.Username, err)
	}
	return id, nil
}

// GetByID fetches a user by id. Returns (nil, nil) if not found.
func (r *UserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, r.dialect.Rebind(selectUserByIDSQL), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select user %d: %w", id, err)
	}
	return u, nil
}

// GetByUsername fetches a user by username. Returns (nil, nil) if not found.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, r.dialect.Rebind(selectUserByUsernameSQL), username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select user %q: %w", username, err)
	}
	return u, nil
}

func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	ok, err := r.exists(ctx, usernameExistsSQL, username)
	if err != nil {
		return false, fmt.Errorf("check username %q: %w", username, err)
	}
	return ok, nil
}

func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	ok, err := r.exists(ctx, emailExistsSQL, email)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return ok, nil
}

func (r *UserRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), arg).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// BumpTokenVersion atomically increments token_version. Returns ErrNotFound
// if the user does not exist.
func (r *UserRepository) BumpTokenVersion(ctx context.Context, id int) (int, error) {
	var version int
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(bumpTokenVersionSQL), r.now(), id).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("bump token version for user %d: %w", id, ErrNotFound)
		}
		return 0, fmt.Errorf("bump token version for user %d: %w", id, err)
	}
	return version, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int, hash string) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(updatePasswordSQL), hash, r.now(), id)
	if err != nil {
		return fmt.Errorf("update password for user %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for user %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update password for user %d: %w", id, ErrNotFound)
	}
	return nil
}

// buildUserUpdate assembles the UPDATE for the non-nil patch fields.
func buildUserUpdate(id int, patch models.UserPatch, now time.Time) (string, []any) {
	var (
		sets []string
		args []any
	)
	add := func(col string, v *string, nullable bool) {
		if v == nil {
			return
		}
		sets = append(sets, col+" = ?")
		if nullable && *v == "" {
			args = append(args, nil)
			return
		}
		args = append(args, *v)
	}
	add("username", patch.Username, false)
	add("email", patch.Email, true)
	add("first_name", patch.FirstName, false)
	add("last_name", patch.LastName, true)
	add("profile_image_url", patch.ProfileImageURL, true)

	sets = append(sets, "updated_at = ?")
	args = append(args, now, id)

	q := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	return q, args
}

// Update applies patch and returns the updated row. Blank optional fields are
// stored as NULL.
func (r *UserRepository) Update(ctx context.Context, id int, patch models.UserPatch) (*models.User, error) {
	if patch.Empty() {
		u, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, fmt.Errorf("update user %d: %w", id, ErrNotFound)
		}
		return u, nil
	}

	q, args := buildUserUpdate(id, patch, r.now())
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(q), args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("update user %d: %w", id, ErrDuplicate)
		}
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected for user %d: %w", id, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("update user %d: %w", id, ErrNotFound)
	}

	u, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("update user %d: %w", id, ErrNotFound)
	}
	return u, nil
}
