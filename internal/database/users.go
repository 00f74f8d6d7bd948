package database

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when an email/password pair does not
// match a stored user. It is deliberately indistinguishable between an
// unknown email and a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// User is an account that can upload and manage media.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateUser creates an account with a bcrypt-hashed password and returns
// the new user's id.
func (d *Database) CreateUser(ctx context.Context, email, password string, isAdmin bool) (string, error) {
	done := observeQuery("create_user")

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		done(err)
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id := uuid.NewString()
	admin := 0
	if isAdmin {
		admin = 1
	}

	_, err = d.db.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, is_admin) VALUES (?, ?, ?, ?)",
		id, email, string(hash), admin,
	)
	if err != nil {
		err = fmt.Errorf("failed to create user: %w", err)
		done(err)
		return "", err
	}

	done(nil)
	return id, nil
}

// GetUserByEmail retrieves a user by email, case-insensitively.
func (d *Database) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	done := observeQuery("get_user_by_email")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var u User
	var admin int
	var createdAt int64
	err := d.db.QueryRowContext(ctx,
		"SELECT id, email, is_admin, created_at FROM users WHERE email = ?",
		email,
	).Scan(&u.ID, &u.Email, &admin, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			done(nil)
			return nil, ErrNotFound
		}
		done(err)
		return nil, err
	}
	u.IsAdmin = admin != 0
	u.CreatedAt = time.Unix(createdAt, 0).UTC()

	done(nil)
	return &u, nil
}

// Authenticate verifies an email/password pair and returns the user on
// success. Failures of either kind return ErrInvalidCredentials.
func (d *Database) Authenticate(ctx context.Context, email, password string) (*User, error) {
	done := observeQuery("authenticate")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var u User
	var hash string
	var admin int
	var createdAt int64
	err := d.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, is_admin, created_at FROM users WHERE email = ?",
		email,
	).Scan(&u.ID, &u.Email, &hash, &admin, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			done(nil)
			return nil, ErrInvalidCredentials
		}
		done(err)
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		done(nil)
		return nil, ErrInvalidCredentials
	}
	u.IsAdmin = admin != 0
	u.CreatedAt = time.Unix(createdAt, 0).UTC()

	done(nil)
	return &u, nil
}

// SetPassword replaces a user's password hash.
func (d *Database) SetPassword(ctx context.Context, userID, password string) error {
	done := observeQuery("set_password")

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		done(err)
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx,
		"UPDATE users SET password_hash = ? WHERE id = ?",
		string(hash), userID,
	)
	if err != nil {
		done(err)
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		done(nil)
		return ErrNotFound
	}

	done(nil)
	return nil
}

// CountUsers returns the total number of accounts.
func (d *Database) CountUsers(ctx context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// hashSessionToken derives the stored form of a session token. Only the
// hash touches disk, so a leaked database does not leak live sessions.
func hashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// CreateSession issues a new session token for the user, valid for the
// given duration. The returned token is the only copy of the secret.
func (d *Database) CreateSession(ctx context.Context, userID string, duration time.Duration) (string, error) {
	done := observeQuery("create_session")

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		done(err)
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	token := hex.EncodeToString(raw)

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	expires := time.Now().Add(duration).Unix()
	_, err := d.db.ExecContext(ctx,
		"INSERT INTO sessions (user_id, token_hash, expires_at) VALUES (?, ?, ?)",
		userID, hashSessionToken(token), expires,
	)
	if err != nil {
		done(err)
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	done(nil)
	return token, nil
}

// ValidateSession resolves a session token to its user, rejecting expired
// or unknown tokens with ErrInvalidCredentials.
func (d *Database) ValidateSession(ctx context.Context, token string) (*User, error) {
	done := observeQuery("validate_session")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var u User
	var admin int
	var createdAt, expiresAt int64
	err := d.db.QueryRowContext(ctx, `
		SELECT u.id, u.email, u.is_admin, u.created_at, s.expires_at
		FROM sessions s
		INNER JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = ?
	`, hashSessionToken(token)).Scan(&u.ID, &u.Email, &admin, &createdAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			done(nil)
			return nil, ErrInvalidCredentials
		}
		done(err)
		return nil, err
	}

	if time.Now().Unix() >= expiresAt {
		done(nil)
		return nil, ErrInvalidCredentials
	}

	u.IsAdmin = admin != 0
	u.CreatedAt = time.Unix(createdAt, 0).UTC()

	done(nil)
	return &u, nil
}

// DeleteSession revokes a session token. Unknown tokens are a no-op.
func (d *Database) DeleteSession(ctx context.Context, token string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE token_hash = ?",
		hashSessionToken(token),
	)
	return err
}

// CleanExpiredSessions removes sessions past their expiry and returns how
// many were removed.
func (d *Database) CleanExpiredSessions(ctx context.Context) (int64, error) {
	done := observeQuery("clean_expired_sessions")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at < ?",
		time.Now().Unix(),
	)
	if err != nil {
		done(err)
		return 0, err
	}

	removed, err := result.RowsAffected()
	done(err)
	return removed, err
}
