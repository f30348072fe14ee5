package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/index-checker/internal/metrics"
	"github.com/jonesrussell/index-checker/internal/models"
)

func TestMetrics_RecordChecks(t *testing.T) {
	m := metrics.New()

	m.RecordChecks([]models.CheckedURL{
		{Status: models.StatusIndexed},
		{Status: models.StatusIndexed},
		{Status: models.StatusNotIndexed},
		{Status: models.StatusError},
	})

	assert.InDelta(t, 2, testutil.ToFloat64(m.URLsChecked.WithLabelValues("indexed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.URLsChecked.WithLabelValues("not_indexed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.URLsChecked.WithLabelValues("error")), 0)
}

func TestMetrics_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := metrics.New()

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/api/domain-checks/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/domain-checks/7", http.NoBody))
	require.Equal(t, http.StatusNotFound, w.Code)

	assert.InDelta(t, 1,
		testutil.ToFloat64(m.HTTPRequests.WithLabelValues(http.MethodGet, "/api/domain-checks/:id", "404")), 0)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "indexcheck_http_requests_total")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics

	assert.NotPanics(t, func() {
		m.RecordChecks([]models.CheckedURL{{Status: models.StatusIndexed}})
		m.ObserveSerperRequest(time.Second, "200")
		m.SessionCreated()
		m.SessionsCleanedUp(3)
		m.SitemapDiscovered(10)
	})

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
