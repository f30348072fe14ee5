package appstate_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/index-checker/internal/appstate"
	"github.com/jonesrussell/index-checker/internal/kvstore"
	"github.com/jonesrussell/index-checker/internal/models"
)

func TestState_LoginLogout(t *testing.T) {
	ctx := context.Background()
	s := appstate.NewInMemory()

	require.NoError(t, s.Login(ctx, "jwt-token"))
	token, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", token)

	require.NoError(t, s.Logout(ctx))
	token, err = s.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestState_ActiveSite(t *testing.T) {
	ctx := context.Background()
	s := appstate.NewInMemory()

	site, err := s.ActiveSite(ctx)
	require.NoError(t, err)
	assert.Nil(t, site)

	require.NoError(t, s.SetActiveSite(ctx, &models.WPSite{ID: 4, Name: "Blog", SiteURL: "https://blog.com"}))
	site, err = s.ActiveSite(ctx)
	require.NoError(t, err)
	require.NotNil(t, site)
	assert.Equal(t, int64(4), site.ID)

	require.NoError(t, s.SetActiveSite(ctx, nil))
	site, err = s.ActiveSite(ctx)
	require.NoError(t, err)
	assert.Nil(t, site)
}

func TestState_SessionIDSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")

	first := appstate.New(kvstore.NewFile(path), kvstore.NewMemory())
	require.NoError(t, first.RememberSession(ctx, "sess-1"))

	// A new run starts with an empty transient store.
	second := appstate.New(kvstore.NewFile(path), kvstore.NewMemory())
	id, err := second.SessionID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", id)

	require.NoError(t, second.ForgetSession(ctx))
	id, err = second.SessionID(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestState_CachePostsSameHostKeepsSession(t *testing.T) {
	ctx := context.Background()
	s := appstate.NewInMemory()

	require.NoError(t, s.CachePosts(ctx, []models.Post{{ID: 1, URL: "https://a.com/one"}}))
	require.NoError(t, s.RememberSession(ctx, "sess-a"))

	require.NoError(t, s.CachePosts(ctx, []models.Post{{ID: 2, URL: "https://a.com/two"}}))

	id, err := s.SessionID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sess-a", id)
}

func TestState_CachePostsDomainChangeEvictsSession(t *testing.T) {
	ctx := context.Background()
	s := appstate.NewInMemory()

	require.NoError(t, s.CachePosts(ctx, []models.Post{{ID: 1, URL: "https://a.com/one"}}))
	require.NoError(t, s.RememberSession(ctx, "sess-a"))

	require.NoError(t, s.CachePosts(ctx, []models.Post{{ID: 9, URL: "https://b.com/nine"}}))

	id, err := s.SessionID(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)

	posts, err := s.CachedPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, int64(9), posts[0].ID)
}

func TestState_UpdateCachedPost(t *testing.T) {
	ctx := context.Background()
	s := appstate.NewInMemory()
	modified := time.Date(2026, 5, 2, 10, 30, 0, 0, time.UTC)

	require.NoError(t, s.CachePosts(ctx, []models.Post{
		{ID: 1, URL: "https://a.com/one", Title: "Old"},
		{URL: "https://a.com/broken", Error: "Post not found"},
	}))

	require.NoError(t, s.UpdateCachedPost(ctx, 1, "title", "New", modified))
	require.NoError(t, s.UpdateCachedPost(ctx, 1, "outgoing_links", []any{
		map[string]any{"domain": "x.com", "anchor": "X", "url": "https://x.com"},
	}, modified))

	posts, err := s.CachedPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "New", posts[0].Title)
	assert.Equal(t, "2026-05-02T10:30:00", posts[0].DateModified)
	assert.Equal(t, []models.OutgoingLink{{Domain: "x.com", Anchor: "X", URL: "https://x.com"}}, posts[0].OutgoingLinks)
	assert.Equal(t, "Post not found", posts[1].Error)

	// Unknown posts are ignored.
	require.NoError(t, s.UpdateCachedPost(ctx, 404, "title", "x", modified))
}

func TestSetPostField_Validation(t *testing.T) {
	var p models.Post

	require.ErrorIs(t, appstate.SetPostField(&p, "title", 12), models.ErrInvalidInput)
	require.ErrorIs(t, appstate.SetPostField(&p, "author", "me"), models.ErrInvalidInput)

	require.NoError(t, appstate.SetPostField(&p, "categories", []any{float64(3), float64(7)}))
	assert.Equal(t, []int64{3, 7}, p.Categories)
}

func TestState_ClearCache(t *testing.T) {
	ctx := context.Background()
	s := appstate.NewInMemory()

	require.NoError(t, s.CachePosts(ctx, []models.Post{{ID: 1, URL: "https://a.com/one"}}))
	require.NoError(t, s.ClearCache(ctx))

	posts, err := s.CachedPosts(ctx)
	require.NoError(t, err)
	assert.Empty(t, posts)
}
