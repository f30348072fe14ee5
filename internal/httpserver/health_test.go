package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/index-checker/internal/httpserver"
)

func ok(context.Context) error   { return nil }
func fail(context.Context) error { return errors.New("down") }

func TestHealth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		checks     map[string]httpserver.HealthChecker
		wantStatus int
		wantHealth httpserver.HealthStatus
	}{
		{"no checks", nil, http.StatusOK, httpserver.HealthStatusHealthy},
		{
			"all healthy",
			map[string]httpserver.HealthChecker{
				"database": httpserver.DatabaseHealthChecker(ok),
				"redis":    httpserver.RedisHealthChecker(ok),
			},
			http.StatusOK, httpserver.HealthStatusHealthy,
		},
		{
			"redis down degrades",
			map[string]httpserver.HealthChecker{
				"database": httpserver.DatabaseHealthChecker(ok),
				"redis":    httpserver.RedisHealthChecker(fail),
			},
			http.StatusOK, httpserver.HealthStatusDegraded,
		},
		{
			"database down",
			map[string]httpserver.HealthChecker{
				"database": httpserver.DatabaseHealthChecker(fail),
				"redis":    httpserver.RedisHealthChecker(fail),
			},
			http.StatusServiceUnavailable, httpserver.HealthStatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := newTestRouter()
			httpserver.RegisterHealthRoutes(r, "index-checker", "test", time.Now(), tt.checks)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
			require.Equal(t, tt.wantStatus, w.Code)

			var resp httpserver.HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantHealth, resp.Status)
			assert.Equal(t, "index-checker", resp.Service)
			assert.Len(t, resp.Checks, len(tt.checks))
		})
	}
}

func TestHealthHead(t *testing.T) {
	t.Parallel()

	r := newTestRouter()
	httpserver.RegisterHealthRoutes(r, "index-checker", "test", time.Now(), nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodHead, "/health", http.NoBody))
	assert.Equal(t, http.StatusOK, w.Code)
}
