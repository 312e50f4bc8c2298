package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// User roles.
const (
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
	RoleGuest  = "GUEST"
)

// User is a gallery account record.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// CreateUser inserts a new account. The password hash must already be
// computed by the caller.
func (s *Store) CreateUser(ctx context.Context, user *User) error {
	if user == nil {
		return errors.New("user is nil")
	}
	if strings.TrimSpace(user.Username) == "" {
		return errors.New("username is required")
	}
	switch user.Role {
	case RoleAdmin, RoleMember, RoleGuest:
	default:
		return fmt.Errorf("unknown role %q", user.Role)
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO users (id, username, email, password_hash, role, is_active, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		nullableString(user.Email),
		user.PasswordHash,
		user.Role,
		boolToInt(user.IsActive),
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByUsername fetches an account by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, username, email, password_hash, role, is_active, created_at, updated_at
         FROM users WHERE username = ?`,
		username,
	)
	return scanUser(row)
}

// GetUser fetches an account by identity.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, username, email, password_hash, role, is_active, created_at, updated_at
         FROM users WHERE id = ?`,
		id,
	)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var (
		user     User
		email    sql.NullString
		isActive int64
		created  string
		updated  string
	)
	err := row.Scan(&user.ID, &user.Username, &email, &user.PasswordHash, &user.Role, &isActive, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.Email = email.String
	user.IsActive = isActive != 0
	if t, err := parseTimeString(created); err == nil {
		user.CreatedAt = t
	}
	if t, err := parseTimeString(updated); err == nil {
		user.UpdatedAt = t
	}
	return &user, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
