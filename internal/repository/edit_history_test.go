package repository_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/index-checker/internal/models"
	"github.com/jonesrussell/index-checker/internal/repository"
)

var editHistoryColumns = []string{
	"id", "wp_site_id", "session_name", "total_posts", "edited_posts", "snapshot_data", "created_at", "updated_at",
}

func TestEditHistoryRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewEditHistoryRepository(db)

	mock.ExpectQuery("INSERT INTO wp_edit_history").
		WithArgs(nil, "Morning edits", 5, 0, `[{"id":1}]`, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))

	h := &models.EditHistory{SessionName: "Morning edits", TotalPosts: 5, SnapshotData: json.RawMessage(`[{"id":1}]`)}
	id, err := repo.Create(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, int64(8), id)
	assert.Equal(t, int64(8), h.ID)
	expectationsMet(t, mock)
}

func TestEditHistoryRepository_Update_OptionalCounters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewEditHistoryRepository(db)

	edited := 2
	mock.ExpectExec(`UPDATE wp_edit_history SET snapshot_data = \?, updated_at = \?, edited_posts = \? WHERE id = \?`).
		WithArgs(`[]`, sqlmock.AnyArg(), 2, int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), 8, json.RawMessage(`[]`), nil, &edited))
	expectationsMet(t, mock)
}

func TestEditHistoryRepository_Get_ParsesSnapshot(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewEditHistoryRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT .+ FROM wp_edit_history WHERE id").
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows(editHistoryColumns).
			AddRow(8, nil, "Morning edits", 5, 2, `[{"id":1,"title":"A"}]`, now, nil))

	h, err := repo.Get(context.Background(), 8)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"title":"A"}]`, string(h.SnapshotData))
	assert.Nil(t, h.UpdatedAt)
	expectationsMet(t, mock)
}

func TestEditHistoryRepository_List_OmitsSnapshot(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewEditHistoryRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT .+ FROM wp_edit_history ORDER BY created_at DESC LIMIT").
		WithArgs(repository.DefaultListLimit).
		WillReturnRows(sqlmock.NewRows(editHistoryColumns).AddRow(8, 1, "Morning edits", 5, 2, nil, now, now))

	history, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].SnapshotData)
	expectationsMet(t, mock)
}

func TestEditHistoryRepository_Delete_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewEditHistoryRepository(db)

	mock.ExpectExec("DELETE FROM wp_edit_history").WithArgs(int64(99)).WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, repo.Delete(context.Background(), 99), models.ErrNotFound)
	expectationsMet(t, mock)
}
