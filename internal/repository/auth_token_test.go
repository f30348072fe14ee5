package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/index-checker/internal/models"
	"github.com/jonesrussell/index-checker/internal/repository"
)

var authTokenColumns = []string{"id", "token", "username", "role", "created_at", "expires_at", "last_used"}

func TestAuthTokenRepository_Get(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		wantErr   error
	}{
		{
			name: "live token is touched",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT .+ FROM auth_tokens WHERE token").
					WithArgs("jti-1").
					WillReturnRows(sqlmock.NewRows(authTokenColumns).
						AddRow(1, "jti-1", "admin", "admin", time.Now(), time.Now().Add(time.Hour), nil))
				mock.ExpectExec("UPDATE auth_tokens SET last_used").
					WithArgs(sqlmock.AnyArg(), "jti-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "expired token is deleted",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT .+ FROM auth_tokens WHERE token").
					WithArgs("jti-1").
					WillReturnRows(sqlmock.NewRows(authTokenColumns).
						AddRow(1, "jti-1", "admin", "admin", time.Now().Add(-8*24*time.Hour), time.Now().Add(-time.Hour), nil))
				mock.ExpectExec("DELETE FROM auth_tokens WHERE token").
					WithArgs("jti-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			wantErr: models.ErrTokenExpired,
		},
		{
			name: "unknown token",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT .+ FROM auth_tokens WHERE token").
					WithArgs("jti-1").
					WillReturnRows(sqlmock.NewRows(authTokenColumns))
			},
			wantErr: models.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := repository.NewAuthTokenRepository(db)
			tt.setupMock(mock)

			token, err := repo.Get(context.Background(), "jti-1")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "admin", token.Username)
				assert.NotNil(t, token.LastUsed)
			}
			expectationsMet(t, mock)
		})
	}
}

func TestAuthTokenRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewAuthTokenRepository(db)

	expires := time.Now().Add(7 * 24 * time.Hour)
	mock.ExpectQuery("INSERT INTO auth_tokens").
		WithArgs("jti-1", "admin", models.RoleAdmin, sqlmock.AnyArg(), expires).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

	token := &models.AuthToken{Token: "jti-1", Username: "admin", Role: models.RoleAdmin, ExpiresAt: expires}
	require.NoError(t, repo.Create(context.Background(), token))
	assert.Equal(t, int64(3), token.ID)
	expectationsMet(t, mock)
}

func TestAuthTokenRepository_DeleteExpired(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewAuthTokenRepository(db)

	cutoff := time.Now()
	mock.ExpectExec("DELETE FROM auth_tokens WHERE expires_at").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.DeleteExpired(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	expectationsMet(t, mock)
}

func TestCredentialRepository(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewCredentialRepository(db)

	mock.ExpectQuery("SELECT password_hash FROM admin_credentials").
		WillReturnRows(sqlmock.NewRows([]string{"password_hash"}))
	mock.ExpectExec("INSERT INTO admin_credentials .+ ON CONFLICT").
		WithArgs("$2a$10$hash", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT password_hash FROM admin_credentials").
		WillReturnRows(sqlmock.NewRows([]string{"password_hash"}).AddRow("$2a$10$hash"))

	_, err := repo.PasswordHash(context.Background())
	require.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, repo.SetPasswordHash(context.Background(), "$2a$10$hash"))

	hash, err := repo.PasswordHash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$hash", hash)
	expectationsMet(t, mock)
}
