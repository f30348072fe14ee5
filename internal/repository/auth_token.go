package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/index-checker/internal/models"
)

// AuthTokenRepository tracks issued bearer tokens by their JWT ID so they can be revoked.
type AuthTokenRepository struct {
	db *sqlx.DB
}

// NewAuthTokenRepository creates an AuthTokenRepository.
func NewAuthTokenRepository(db *sqlx.DB) *AuthTokenRepository {
	return &AuthTokenRepository{db: db}
}

// Create stores token.
func (r *AuthTokenRepository) Create(ctx context.Context, token *models.AuthToken) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = now()
	}

	query := r.db.Rebind(`
		INSERT INTO auth_tokens (token, username, role, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)
	if err := r.db.QueryRowxContext(ctx, query,
		token.Token, token.Username, token.Role, token.CreatedAt, token.ExpiresAt,
	).Scan(&token.ID); err != nil {
		return fmt.Errorf("failed to create auth token: %w", err)
	}
	return nil
}

// Get returns the live token for jti and records its use.
// An expired token is deleted and reported as models.ErrTokenExpired.
func (r *AuthTokenRepository) Get(ctx context.Context, jti string) (*models.AuthToken, error) {
	token := &models.AuthToken{}
	query := r.db.Rebind(`
		SELECT id, token, username, role, created_at, expires_at, last_used
		FROM auth_tokens
		WHERE token = ?
	`)
	if err := r.db.GetContext(ctx, token, query, jti); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get auth token: %w", err)
	}

	ts := now()
	if !token.ExpiresAt.After(ts) {
		if err := r.Delete(ctx, jti); err != nil {
			return nil, err
		}
		return nil, models.ErrTokenExpired
	}

	touch := r.db.Rebind(`UPDATE auth_tokens SET last_used = ? WHERE token = ?`)
	if _, err := r.db.ExecContext(ctx, touch, ts, jti); err != nil {
		return nil, fmt.Errorf("failed to touch auth token: %w", err)
	}
	token.LastUsed = &ts

	return token, nil
}

// Delete revokes jti. Deleting an unknown token is not an error.
func (r *AuthTokenRepository) Delete(ctx context.Context, jti string) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM auth_tokens WHERE token = ?`), jti); err != nil {
		return fmt.Errorf("failed to delete auth token: %w", err)
	}
	return nil
}

// DeleteExpired removes tokens that expired before cutoff.
func (r *AuthTokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM auth_tokens WHERE expires_at < ?`), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired auth tokens: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count expired auth tokens: %w", err)
	}
	return n, nil
}

// CredentialRepository stores the admin password hash override.
type CredentialRepository struct {
	db *sqlx.DB
}

// NewCredentialRepository creates a CredentialRepository.
func NewCredentialRepository(db *sqlx.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// PasswordHash returns the stored hash or models.ErrNotFound when none was set.
func (r *CredentialRepository) PasswordHash(ctx context.Context) (string, error) {
	var hash string
	if err := r.db.GetContext(ctx, &hash, `SELECT password_hash FROM admin_credentials WHERE id = 1`); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", models.ErrNotFound
		}
		return "", fmt.Errorf("failed to get password hash: %w", err)
	}
	return hash, nil
}

// SetPasswordHash replaces the stored hash.
func (r *CredentialRepository) SetPasswordHash(ctx context.Context, hash string) error {
	query := r.db.Rebind(`
		INSERT INTO admin_credentials (id, password_hash, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET password_hash = excluded.password_hash, updated_at = excluded.updated_at
	`)
	if _, err := r.db.ExecContext(ctx, query, hash, now()); err != nil {
		return fmt.Errorf("failed to set password hash: %w", err)
	}
	return nil
}
