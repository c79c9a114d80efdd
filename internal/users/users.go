// Package users owns accounts, credentials and the password-reset token
// lifecycle.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Rifate-nur-shawn/Ecom-server/internal/auth"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/email"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/stores/postgres"
	"github.com/Rifate-nur-shawn/Ecom-server/pkg/apperror"
	"github.com/Rifate-nur-shawn/Ecom-server/pkg/logkey"
)

type Conf struct {
	db     *sql.DB
	sender email.Sender
}

func NewConf(db *sql.DB, sender email.Sender) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db, sender: sender}, nil
}

// InsertUser registers a new account. Duplicate emails conflict.
func (c *Conf) InsertUser(ctx context.Context, nu NewUser) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hashing password: %w", err)
	}

	u := User{
		ID:    uuid.NewString(),
		Email: strings.ToLower(strings.TrimSpace(nu.Email)),
		Name:  nu.Name,
		Phone: nu.Phone,
		Role:  auth.RoleUser,
	}

	query := `
		INSERT INTO users (id, email, password_hash, name, phone, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err = c.db.QueryRowContext(ctx, query, u.ID, u.Email, string(hash), u.Name, u.Phone, u.Role).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return User{}, apperror.Conflictf("email already registered")
		}
		return User{}, fmt.Errorf("failed to insert user: %w", err)
	}
	return u, nil
}

// Authenticate verifies credentials. The failure message is identical whether
// the email is unknown or the password mismatches.
func (c *Conf) Authenticate(ctx context.Context, emailAddr, password string) (User, error) {
	query := `
		SELECT id, email, password_hash, name, phone, role, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	var u User
	var hash string
	err := c.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(emailAddr))).
		Scan(&u.ID, &u.Email, &hash, &u.Name, &u.Phone, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, apperror.Unauthorizedf("invalid credentials")
		}
		return User{}, fmt.Errorf("failed to query user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return User{}, apperror.Unauthorizedf("invalid credentials")
	}
	return u, nil
}

// GetByID fetches a single account.
func (c *Conf) GetByID(ctx context.Context, userID string) (User, error) {
	query := `
		SELECT id, email, name, phone, role, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var u User
	err := c.db.QueryRowContext(ctx, query, userID).
		Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, apperror.NotFoundf("user not found")
		}
		return User{}, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

// Update applies profile edits for the given user.
func (c *Conf) Update(ctx context.Context, userID string, up UpdateProfile) (User, error) {
	query := `
		UPDATE users
		SET name = COALESCE($2, name), phone = COALESCE($3, phone), updated_at = NOW()
		WHERE id = $1
		RETURNING id, email, name, phone, role, created_at, updated_at
	`
	var u User
	err := c.db.QueryRowContext(ctx, query, userID, up.Name, up.Phone).
		Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, apperror.NotFoundf("user not found")
		}
		return User{}, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}

// ResetRequestMessage is returned for every reset request so responses do not
// reveal whether the email is registered.
const ResetRequestMessage = "If that email is registered, a reset link has been sent"

// RequestPasswordReset mints a one-time reset token for the account behind
// emailAddr, superseding any previous token. The raw token goes out by email
// only; the store keeps just its digest.
func (c *Conf) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	var userID string
	err := c.db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(emailAddr))).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Anti-enumeration: succeed silently.
			return nil
		}
		return fmt.Errorf("failed to query user: %w", err)
	}

	token, digest, err := MintResetToken()
	if err != nil {
		return fmt.Errorf("minting reset token: %w", err)
	}

	query := `
		INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id)
		DO UPDATE SET token_hash = EXCLUDED.token_hash,
		              expires_at = EXCLUDED.expires_at,
		              created_at = NOW()
	`
	_, err = c.db.ExecContext(ctx, query, uuid.NewString(), userID, digest, time.Now().Add(ResetTokenTTL))
	if err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	// The email is a notification, not part of the operation: a broken relay
	// must not make registered addresses answer differently from unknown ones.
	if c.sender != nil {
		subject, body := email.PasswordResetBody(token)
		if err := c.sender.Send(emailAddr, subject, body); err != nil {
			slog.Error("sending reset email",
				slog.String(logkey.UserID, userID), slog.String(logkey.ERROR, err.Error()))
		}
	}
	return nil
}

// ResetPassword consumes a reset token and installs the new password hash.
func (c *Conf) ResetPassword(ctx context.Context, token, newPassword string) error {
	digest := DigestResetToken(token)

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	return postgres.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		var tokenID, userID string
		var expiresAt time.Time
		query := `
			SELECT id, user_id, expires_at
			FROM password_reset_tokens
			WHERE token_hash = $1
			FOR UPDATE
		`
		err := tx.QueryRowContext(ctx, query, digest).Scan(&tokenID, &userID, &expiresAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.BadRequestf("invalid or expired reset token")
			}
			return fmt.Errorf("failed to query reset token: %w", err)
		}

		if time.Now().After(expiresAt) {
			if _, err := tx.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE id = $1`, tokenID); err != nil {
				return fmt.Errorf("failed to delete expired token: %w", err)
			}
			return apperror.BadRequestf("invalid or expired reset token")
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, userID, string(hash)); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE id = $1`, tokenID); err != nil {
			return fmt.Errorf("failed to delete reset token: %w", err)
		}
		return nil
	})
}

// List returns accounts for the admin surface, optionally filtered by role or
// an email/name search term.
func (c *Conf) List(ctx context.Context, role, search string, page, limit int) ([]User, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	where := "WHERE 1=1"
	args := []any{}
	if role != "" {
		args = append(args, role)
		where += fmt.Sprintf(" AND role = $%d", len(args))
	}
	if search != "" {
		args = append(args, "%"+search+"%")
		where += fmt.Sprintf(" AND (email ILIKE $%d OR name ILIKE $%d)", len(args), len(args))
	}

	var total int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(`
		SELECT id, email, name, phone, role, created_at, updated_at
		FROM users %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating users: %w", err)
	}
	return users, total, nil
}

// UpdateRole flips an account between CUSTOMER and ADMIN.
func (c *Conf) UpdateRole(ctx context.Context, userID, role string) (User, error) {
	if role != auth.RoleUser && role != auth.RoleAdmin {
		return User{}, apperror.BadRequestf("unknown role %q", role)
	}
	query := `
		UPDATE users SET role = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, email, name, phone, role, created_at, updated_at
	`
	var u User
	err := c.db.QueryRowContext(ctx, query, userID, role).
		Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, apperror.NotFoundf("user not found")
		}
		return User{}, fmt.Errorf("failed to update role: %w", err)
	}
	return u, nil
}
