package httpserver_test

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/index-checker/internal/httpserver"
	"github.com/jonesrussell/index-checker/internal/logger"
)

var hexID = regexp.MustCompile(`^[0-9a-f]{32}$`)

func newTestRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	return r
}

func TestRequestIDMiddleware_GeneratesID(t *testing.T) {
	t.Parallel()

	var seen string
	r := newTestRouter(httpserver.RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) {
		seen = c.GetString(httpserver.ContextRequestIDKey)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	assert.Regexp(t, hexID, seen)
	assert.Equal(t, seen, w.Header().Get(httpserver.RequestIDHeader))
}

func TestRequestIDMiddleware_PreservesInboundID(t *testing.T) {
	t.Parallel()

	r := newTestRouter(httpserver.RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set(httpserver.RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(httpserver.RequestIDHeader))
}

func TestRequestIDMiddleware_ReplacesOversizedID(t *testing.T) {
	t.Parallel()

	r := newTestRouter(httpserver.RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set(httpserver.RequestIDHeader, strings.Repeat("x", 129))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Regexp(t, hexID, w.Header().Get(httpserver.RequestIDHeader))
}

// fieldLogger records the fields attached through With.
type fieldLogger struct {
	logger.NoOpLogger
	fields []logger.Field
}

func (l *fieldLogger) With(fields ...logger.Field) logger.Logger {
	return &fieldLogger{fields: append(append([]logger.Field(nil), l.fields...), fields...)}
}

func TestRequestIDMiddleware_TagsContextLogger(t *testing.T) {
	t.Parallel()

	base := &fieldLogger{}
	var fromCtx logger.Logger
	r := newTestRouter(httpserver.RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) {
		fromCtx = logger.FromContext(c.Request.Context(), base)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set(httpserver.RequestIDHeader, "req-42")
	r.ServeHTTP(httptest.NewRecorder(), req)

	tagged, ok := fromCtx.(*fieldLogger)
	require.True(t, ok)
	require.Len(t, tagged.fields, 1)
	assert.Equal(t, "request_id", tagged.fields[0].Key)
	assert.Equal(t, "req-42", tagged.fields[0].String)
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Parallel()

	r := newTestRouter(httpserver.RecoveryMiddleware(logger.NewNop()))
	r.GET("/", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestCORSMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		origins    []string
		origin     string
		method     string
		wantStatus int
		wantAllow  string
	}{
		{"wildcard", nil, "http://app.test", http.MethodGet, http.StatusOK, "*"},
		{"listed origin", []string{"http://app.test"}, "http://app.test", http.MethodGet, http.StatusOK, "http://app.test"},
		{"unlisted origin", []string{"http://app.test"}, "http://evil.test", http.MethodGet, http.StatusOK, ""},
		{"preflight", []string{"http://app.test"}, "http://app.test", http.MethodOptions, http.StatusNoContent, "http://app.test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := newTestRouter(httpserver.CORSMiddleware(httpserver.CORSConfig{AllowedOrigins: tt.origins}))
			r.Handle(tt.method, "/", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(tt.method, "/", http.NoBody)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantAllow, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
