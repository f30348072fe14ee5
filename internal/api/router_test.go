package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/index-checker/internal/api"
	"github.com/jonesrussell/index-checker/internal/handlers"
	"github.com/jonesrussell/index-checker/internal/logger"
)

func denyAll(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No authentication token provided"})
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()

	routes := &api.Routes{
		Checks:      handlers.NewCheckHandler(nil, nil, nil, log),
		History:     handlers.NewHistoryHandler(nil, log),
		WordPress:   handlers.NewWordPressHandler(nil, nil, nil, 1, log),
		Sites:       handlers.NewSiteHandler(nil, log),
		Sessions:    handlers.NewSessionHandler(nil, log),
		Auth:        handlers.NewAuthHandler(nil, log),
		RequireAuth: denyAll,
	}

	r := gin.New()
	routes.Setup()(r)
	return r
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	t.Parallel()

	r := newEngine()

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/check-index"},
		{http.MethodGet, "/api/domain-checks"},
		{http.MethodGet, "/api/domain-checks/search"},
		{http.MethodGet, "/api/domain-checks/1"},
		{http.MethodGet, "/api/export/1"},
		{http.MethodDelete, "/api/clear-history"},
		{http.MethodGet, "/api/history"},
		{http.MethodPost, "/api/wordpress/posts"},
		{http.MethodGet, "/api/wp-sites/active"},
		{http.MethodPut, "/api/wp-sites/1/active"},
		{http.MethodPost, "/api/editor-session"},
		{http.MethodGet, "/api/editor-session/abcdefgh"},
		{http.MethodPost, "/api/editor-session/abcdefgh/snapshot"},
		{http.MethodGet, "/api/editor-sessions"},
		{http.MethodGet, "/api/auth/verify"},
		{http.MethodPost, "/api/auth/logout"},
		{http.MethodPost, "/api/auth/change-password"},
	}

	for _, rt := range routes {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(rt.method, rt.path, http.NoBody))
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", rt.method, rt.path)
	}
}

func TestPublicRoutes(t *testing.T) {
	t.Parallel()

	r := newEngine()

	// Login is reachable without a token; an empty body fails validation, not auth.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/login", http.NoBody))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	assert.Equal(t, http.StatusNotFound, w.Code, "health is mounted by the server")
}
