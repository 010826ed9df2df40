package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/blackpearlke/blackpearl-api/internal/apperr"
	"github.com/blackpearlke/blackpearl-api/internal/database"
	"github.com/blackpearlke/blackpearl-api/internal/models"
)

type UserStore struct {
	db *database.DB
}

func NewUserStore(db *database.DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, name, phone, password_hash, role, refresh_token, reset_code_hash,
	reset_expires, created_at, updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u            models.User
		resetExpires sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Name, &u.Phone, &u.PasswordHash, &u.Role, &u.RefreshToken,
		&u.ResetCodeHash, &resetExpires, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if resetExpires.Valid {
		u.ResetExpires = &resetExpires.Time
	}
	return &u, nil
}

// Create inserts a new user. Phone numbers are unique; a duplicate
// surfaces as a conflict.
func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, phone, password_hash, role) VALUES (?, ?, ?, ?)`,
		u.Name, u.Phone, u.PasswordHash, u.Role)
	if isDuplicate(err) {
		return apperr.Conflict("Phone already registered.")
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	return err
}

// ByID returns the user or nil when absent.
func (s *UserStore) ByID(ctx context.Context, id int64) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return u, nil
}

// ByPhone returns the user with the given normalized phone, or nil.
func (s *UserStore) ByPhone(ctx context.Context, phone string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE phone = ?`, phone)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return u, nil
}

// ByRefreshToken resolves the user holding the given refresh token, or nil.
func (s *UserStore) ByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE refresh_token = ?`, token)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user by refresh token: %w", err)
	}
	return u, nil
}

// SetRefreshToken rotates the stored refresh token. An empty token logs
// the user out.
func (s *UserStore) SetRefreshToken(ctx context.Context, userID int64, token string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET refresh_token = ? WHERE id = ?`, token, userID)
	if err != nil {
		return fmt.Errorf("failed to set refresh token: %w", err)
	}
	return nil
}

// UpdateProfile updates name and, when non-empty, the password hash.
func (s *UserStore) UpdateProfile(ctx context.Context, userID int64, name, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET name = COALESCE(NULLIF(?, ''), name),
			password_hash = COALESCE(NULLIF(?, ''), password_hash)
		WHERE id = ?`,
		name, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// SetResetCode stores the hashed SMS reset code with its expiry.
func (s *UserStore) SetResetCode(ctx context.Context, userID int64, codeHash string, expires time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET reset_code_hash = ?, reset_expires = ? WHERE id = ?`,
		codeHash, expires, userID)
	if err != nil {
		return fmt.Errorf("failed to set reset code: %w", err)
	}
	return nil
}

// ResetPassword swaps the password hash if the hashed code matches and has
// not expired, clearing the code either way it matches. Returns false when
// the code is invalid or expired.
func (s *UserStore) ResetPassword(ctx context.Context, phone, codeHash, passwordHash string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = ?, reset_code_hash = '', reset_expires = NULL
		WHERE phone = ? AND reset_code_hash = ? AND reset_code_hash <> '' AND reset_expires > ?`,
		passwordHash, phone, codeHash, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to reset password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes the user account. The cart cascades; orders are kept for
// bookkeeping.
func (s *UserStore) Delete(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (s *UserStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
