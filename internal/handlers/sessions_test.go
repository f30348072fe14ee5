package handlers_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/index-checker/internal/editorsession"
	"github.com/jonesrussell/index-checker/internal/handlers"
	"github.com/jonesrussell/index-checker/internal/logger"
	"github.com/jonesrussell/index-checker/internal/models"
)

const sessionID = "3f2a9c1e-0000-4000-8000-000000000001"

type fakeSessions struct {
	sessions map[string]*models.EditorSession
	filter   models.SessionFilter
	edits    []string
	snapName string
	refresh  error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]*models.EditorSession{
		sessionID: {SessionID: sessionID, Domain: "blog.example", TotalPosts: 1},
	}}
}

func (f *fakeSessions) Create(_ context.Context, _ *int64, domain string, posts []models.EditorPost) (*models.CreateSessionResponse, error) {
	if domain == "" || len(posts) == 0 {
		return nil, fmt.Errorf("%w: domain and posts are required", models.ErrInvalidInput)
	}
	return &models.CreateSessionResponse{SessionID: "new-session-id", Domain: domain, TotalPosts: len(posts)}, nil
}

func (f *fakeSessions) Get(_ context.Context, id string) (*models.EditorSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return s, nil
}

func (f *fakeSessions) UpdatePost(_ context.Context, id string, postID int64, field string, _ any) error {
	if _, ok := f.sessions[id]; !ok {
		return models.ErrNotFound
	}
	f.edits = append(f.edits, fmt.Sprintf("%d:%s", postID, field))
	return nil
}

func (f *fakeSessions) ReplacePosts(_ context.Context, _ string, posts []models.EditorPost) (int, error) {
	return len(posts), nil
}

func (f *fakeSessions) List(_ context.Context, filter models.SessionFilter) (map[string][]models.EditorSession, int, error) {
	f.filter = filter
	return map[string][]models.EditorSession{"blog.example": {*f.sessions[sessionID]}}, 1, nil
}

func (f *fakeSessions) Delete(_ context.Context, id string) error {
	if _, ok := f.sessions[id]; !ok {
		return models.ErrNotFound
	}
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessions) Snapshot(_ context.Context, _ string, name string) (*models.SnapshotResult, error) {
	f.snapName = name
	return &models.SnapshotResult{SnapshotID: "snap", Action: models.SnapshotCreated, Message: "Snapshot created successfully"}, nil
}

func (f *fakeSessions) RefreshOutgoingLinks(_ context.Context, id string) (*models.RefreshLinksResponse, error) {
	if f.refresh != nil {
		return nil, f.refresh
	}
	return &models.RefreshLinksResponse{Success: true, UpdatedCount: 1, TotalPosts: 1, Session: f.sessions[id]}, nil
}

func setupSessions(svc *fakeSessions) http.Handler {
	h := handlers.NewSessionHandler(svc, logger.NewNop())
	r := newRouter()
	r.POST("/api/editor-session", h.Create)
	r.GET("/api/editor-sessions", h.List)
	r.GET("/api/editor-session/:id", h.Get)
	r.PUT("/api/editor-session/:id", h.ReplacePosts)
	r.DELETE("/api/editor-session/:id", h.Delete)
	r.PUT("/api/editor-session/:id/post/:post_id", h.UpdatePost)
	r.POST("/api/editor-session/:id/snapshot", h.Snapshot)
	r.POST("/api/editor-session/:id/refresh-outgoing-links", h.RefreshOutgoingLinks)
	return r
}

func TestSessions_Create(t *testing.T) {
	t.Parallel()

	r := setupSessions(newFakeSessions())

	w := perform(t, r, http.MethodPost, "/api/editor-session", models.CreateSessionRequest{
		Domain: "blog.example",
		Posts:  []models.EditorPost{{PostID: 1, URL: "https://blog.example/a"}},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, decode[models.CreateSessionResponse](t, w).TotalPosts)

	w = perform(t, r, http.MethodPost, "/api/editor-session", models.CreateSessionRequest{Domain: "blog.example"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessions_InvalidID(t *testing.T) {
	t.Parallel()

	r := setupSessions(newFakeSessions())

	for _, id := range []string{"short", "has.dot.inside", "spaces%20here-long"} {
		w := perform(t, r, http.MethodGet, "/api/editor-session/"+id, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, id)
	}
}

func TestSessions_GetAndDelete(t *testing.T) {
	t.Parallel()

	r := setupSessions(newFakeSessions())

	w := perform(t, r, http.MethodGet, "/api/editor-session/"+sessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[models.EditorSession](t, w)
	assert.Equal(t, "blog.example", got.Domain)

	assert.Equal(t, http.StatusOK, perform(t, r, http.MethodDelete, "/api/editor-session/"+sessionID, nil).Code)
	assert.Equal(t, http.StatusNotFound, perform(t, r, http.MethodGet, "/api/editor-session/"+sessionID, nil).Code)
}

func TestSessions_UpdatePost(t *testing.T) {
	t.Parallel()

	svc := newFakeSessions()
	r := setupSessions(svc)

	body := models.UpdateSessionPostRequest{Field: models.FieldTitle, Value: "New"}
	w := perform(t, r, http.MethodPut, "/api/editor-session/"+sessionID+"/post/42", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"42:title"}, svc.edits)

	w = perform(t, r, http.MethodPut, "/api/editor-session/"+sessionID+"/post/x", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(t, r, http.MethodPut, "/api/editor-session/missing-session-id/post/42", body)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessions_Snapshot(t *testing.T) {
	t.Parallel()

	svc := newFakeSessions()
	r := setupSessions(svc)

	w := perform(t, r, http.MethodPost, "/api/editor-session/"+sessionID+"/snapshot", models.SnapshotRequest{SessionName: "Launch"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.SnapshotCreated, decode[models.SnapshotResult](t, w).Action)
	assert.Equal(t, "Launch", svc.snapName)

	w = perform(t, r, http.MethodPost, "/api/editor-session/"+sessionID+"/snapshot", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, svc.snapName)
}

func TestSessions_RefreshNoSite(t *testing.T) {
	t.Parallel()

	svc := newFakeSessions()
	svc.refresh = editorsession.ErrNoSite
	r := setupSessions(svc)

	w := perform(t, r, http.MethodPost, "/api/editor-session/"+sessionID+"/refresh-outgoing-links", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessions_ListFilter(t *testing.T) {
	t.Parallel()

	svc := newFakeSessions()
	r := setupSessions(svc)

	w := perform(t, r, http.MethodGet, "/api/editor-sessions?wp_site_id=3&snapshots_only=true&limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[models.SessionsResponse](t, w).Total)

	require.NotNil(t, svc.filter.WPSiteID)
	assert.Equal(t, int64(3), *svc.filter.WPSiteID)
	assert.True(t, svc.filter.SnapshotsOnly)
	assert.Equal(t, 10, svc.filter.Limit)

	w = perform(t, r, http.MethodGet, "/api/editor-sessions?wp_site_id=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
