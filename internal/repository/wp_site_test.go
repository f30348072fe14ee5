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

var wpSiteColumns = []string{
	"id", "name", "site_url", "username", "app_password", "wordpress_password", "wordpress_url",
	"is_active", "created_at", "updated_at",
}

func siteRow(rows *sqlmock.Rows, id int64, siteURL string, active bool) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, "Site", siteURL, "editor", "app pass", nil, nil, active, now, now)
}

func ptr[T any](v T) *T { return &v }

func TestWPSiteRepository_Create_FirstSiteIsActive(t *testing.T) {
	tests := []struct {
		name       string
		existing   int
		wantActive bool
	}{
		{name: "first site", existing: 0, wantActive: true},
		{name: "additional site", existing: 2, wantActive: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := repository.NewWPSiteRepository(db)

			mock.ExpectQuery("SELECT COUNT").
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(tt.existing))
			mock.ExpectQuery("INSERT INTO wp_sites").
				WithArgs("Blog", "https://blog.com", "editor", "xxxx", nil, nil, tt.wantActive,
					sqlmock.AnyArg(), sqlmock.AnyArg()).
				WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
			mock.ExpectQuery("SELECT .+ FROM wp_sites WHERE id").
				WithArgs(int64(3)).
				WillReturnRows(siteRow(sqlmock.NewRows(wpSiteColumns), 3, "https://blog.com", tt.wantActive))

			site, err := repo.Create(context.Background(), &models.WPSiteInput{
				Name:        ptr("Blog"),
				SiteURL:     ptr("https://blog.com"),
				Username:    ptr("editor"),
				AppPassword: ptr("xxxx"),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantActive, site.IsActive)
			expectationsMet(t, mock)
		})
	}
}

func TestWPSiteRepository_GetActive_None(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewWPSiteRepository(db)

	mock.ExpectQuery("SELECT .+ FROM wp_sites WHERE is_active").
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows(wpSiteColumns))

	_, err := repo.GetActive(context.Background())
	require.ErrorIs(t, err, models.ErrNoActiveSite)
	expectationsMet(t, mock)
}

func TestWPSiteRepository_Update_Partial(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewWPSiteRepository(db)

	mock.ExpectExec(`UPDATE wp_sites SET name = \?, updated_at = \? WHERE id = \?`).
		WithArgs("Renamed", sqlmock.AnyArg(), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .+ FROM wp_sites WHERE id").
		WithArgs(int64(3)).
		WillReturnRows(siteRow(sqlmock.NewRows(wpSiteColumns), 3, "https://blog.com", true))

	_, err := repo.Update(context.Background(), 3, &models.WPSiteInput{Name: ptr("Renamed")})
	require.NoError(t, err)
	expectationsMet(t, mock)
}

func TestWPSiteRepository_Update_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewWPSiteRepository(db)

	mock.ExpectExec("UPDATE wp_sites SET").WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Update(context.Background(), 9, &models.WPSiteInput{Name: ptr("x")})
	require.ErrorIs(t, err, models.ErrNotFound)
	expectationsMet(t, mock)
}

func TestWPSiteRepository_Delete(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		wantErr   error
	}{
		{
			name: "active site promotes oldest",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery("SELECT is_active FROM wp_sites").
					WithArgs(int64(1)).
					WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(true))
				mock.ExpectExec("DELETE FROM wp_sites").WithArgs(int64(1)).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(`UPDATE wp_sites SET is_active = \?, updated_at = \? WHERE id = \(SELECT id FROM wp_sites ORDER BY created_at ASC`).
					WithArgs(true, sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "inactive site",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery("SELECT is_active FROM wp_sites").
					WithArgs(int64(1)).
					WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(false))
				mock.ExpectExec("DELETE FROM wp_sites").WithArgs(int64(1)).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "missing site",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery("SELECT is_active FROM wp_sites").
					WithArgs(int64(1)).
					WillReturnRows(sqlmock.NewRows([]string{"is_active"}))
				mock.ExpectRollback()
			},
			wantErr: models.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := repository.NewWPSiteRepository(db)
			tt.setupMock(mock)

			err := repo.Delete(context.Background(), 1)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			expectationsMet(t, mock)
		})
	}
}

func TestWPSiteRepository_SetActive(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewWPSiteRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT").WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(`UPDATE wp_sites SET is_active = \?$`).WithArgs(false).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`UPDATE wp_sites SET is_active = \?, updated_at = \? WHERE id = \?`).
		WithArgs(true, sqlmock.AnyArg(), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT .+ FROM wp_sites WHERE id").
		WithArgs(int64(2)).
		WillReturnRows(siteRow(sqlmock.NewRows(wpSiteColumns), 2, "https://two.com", true))

	site, err := repo.SetActive(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, site.IsActive)
	expectationsMet(t, mock)
}

func TestWPSiteRepository_FindByDomain(t *testing.T) {
	tests := []struct {
		name    string
		domain  string
		wantID  int64
		wantErr error
	}{
		{name: "bare domain", domain: "blog.com", wantID: 1},
		{name: "www and scheme ignored", domain: "https://www.blog.com/some/post", wantID: 1},
		{name: "stored with www", domain: "other.net", wantID: 2},
		{name: "no match", domain: "nowhere.org", wantErr: models.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := repository.NewWPSiteRepository(db)

			rows := sqlmock.NewRows(wpSiteColumns)
			siteRow(rows, 1, "https://blog.com", true)
			siteRow(rows, 2, "http://www.other.net/", false)
			mock.ExpectQuery("SELECT .+ FROM wp_sites ORDER BY created_at DESC").WillReturnRows(rows)

			site, err := repo.FindByDomain(context.Background(), tt.domain)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, site.ID)
		})
	}
}
