package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/index-checker/internal/models"
	"github.com/jonesrussell/index-checker/internal/repository"
	"github.com/jonesrussell/index-checker/internal/testhelpers"
)

func TestSQLite_WPSites(t *testing.T) {
	db := testhelpers.NewSQLiteDB(t)
	repo := repository.NewWPSiteRepository(db)
	ctx := context.Background()

	first, err := repo.Create(ctx, &models.WPSiteInput{
		Name: ptr("Blog"), SiteURL: ptr("https://www.blog.com"),
		Username: ptr("admin"), AppPassword: ptr("abcd efgh"),
	})
	require.NoError(t, err)
	assert.True(t, first.IsActive)

	second, err := repo.Create(ctx, &models.WPSiteInput{
		Name: ptr("Shop"), SiteURL: ptr("https://shop.example.org"),
		Username: ptr("editor"), AppPassword: ptr("ijkl mnop"),
	})
	require.NoError(t, err)
	assert.False(t, second.IsActive)

	found, err := repo.FindByDomain(ctx, "blog.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	active, err := repo.SetActive(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, active.IsActive)

	current, err := repo.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)

	require.NoError(t, repo.Delete(ctx, second.ID))
	promoted, err := repo.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, promoted.ID)

	_, err = repo.Get(ctx, second.ID)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestSQLite_EditorSessions(t *testing.T) {
	db := testhelpers.NewSQLiteDB(t)
	repo := repository.NewEditorSessionRepository(db)
	ctx := context.Background()

	session := &models.EditorSession{SessionID: "session-0001", Domain: "blog.com"}
	posts := []models.EditorPost{
		{PostID: 7, URL: "https://blog.com/a", Title: "A", Status: "publish"},
		{URL: "https://blog.com/missing"},
		{PostID: 9, URL: "https://blog.com/b", Title: "B", Status: "draft"},
	}
	require.NoError(t, repo.Create(ctx, session, posts))
	assert.Equal(t, 2, session.TotalPosts)

	links := []models.OutgoingLink{{Domain: "partner.com", Anchor: "Partner", URL: "https://partner.com/"}}
	require.NoError(t, repo.UpdatePostField(ctx, session.SessionID, 9, models.FieldOutgoingLinks, links))
	require.NoError(t, repo.UpdatePostField(ctx, session.SessionID, 7, models.FieldTitle, "A2"))

	got, err := repo.Get(ctx, session.SessionID)
	require.NoError(t, err)
	require.Len(t, got.Posts, 2)
	assert.Equal(t, "A2", got.Posts[0].Title)
	assert.Equal(t, links, got.Posts[1].OutgoingLinks)
	assert.Empty(t, got.Posts[0].OutgoingLinks)

	err = repo.UpdatePostField(ctx, session.SessionID, 7, "content", "x")
	require.ErrorIs(t, err, models.ErrInvalidInput)

	snapshot := &models.EditorSession{SessionID: "snapshot-0001", Domain: "blog.com", SessionName: ptr("before")}
	require.NoError(t, repo.CreateSnapshot(ctx, snapshot, got.Posts))

	deleted, err := repo.DeleteStale(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.Get(ctx, session.SessionID)
	require.ErrorIs(t, err, models.ErrNotFound)

	kept, err := repo.Get(ctx, snapshot.SessionID)
	require.NoError(t, err)
	assert.True(t, kept.IsSnapshot)
	assert.Len(t, kept.Posts, 2)

	// Duplicate post ids violate idx_session_post, so the insert half fails.
	broken := &models.EditorSession{SessionID: "snapshot-0002", Domain: "blog.com", SessionName: ptr("after")}
	dupes := []models.EditorPost{{PostID: 7, URL: "https://blog.com/a"}, {PostID: 7, URL: "https://blog.com/a"}}
	require.Error(t, repo.ReplaceSnapshot(ctx, snapshot.SessionID, broken, dupes))

	kept, err = repo.Get(ctx, snapshot.SessionID)
	require.NoError(t, err, "a failed replace keeps the old snapshot")
	assert.Len(t, kept.Posts, 2)
	_, err = repo.Get(ctx, broken.SessionID)
	require.ErrorIs(t, err, models.ErrNotFound)

	replacement := &models.EditorSession{SessionID: "snapshot-0003", Domain: "blog.com", SessionName: ptr("after")}
	require.NoError(t, repo.ReplaceSnapshot(ctx, snapshot.SessionID, replacement, kept.Posts[:1]))

	_, err = repo.Get(ctx, snapshot.SessionID)
	require.ErrorIs(t, err, models.ErrNotFound)
	found, err := repo.FindSnapshot(ctx, nil, "blog.com")
	require.NoError(t, err)
	assert.Equal(t, replacement.SessionID, found.SessionID)
	assert.Equal(t, 1, found.TotalPosts)
}
