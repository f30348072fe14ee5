package handlers_test

import (
	"bytes"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/index-checker/internal/handlers"
	"github.com/jonesrussell/index-checker/internal/indexcheck"
	"github.com/jonesrussell/index-checker/internal/logger"
	"github.com/jonesrussell/index-checker/internal/models"
	"github.com/jonesrussell/index-checker/internal/sitemap"
)

func setupChecks(checker *fakeChecker, store *fakeCheckStore, maps *fakeSitemaps) http.Handler {
	h := handlers.NewCheckHandler(checker, maps, store, logger.NewNop())
	r := newRouter()
	r.POST("/api/fetch-sitemap", h.FetchSitemap)
	r.POST("/api/check-index", h.CheckIndex)
	r.GET("/api/domain-checks", h.List)
	r.GET("/api/domain-checks/search", h.Search)
	r.GET("/api/domain-checks/:id", h.Get)
	r.GET("/api/export/:id", h.Export)
	r.DELETE("/api/clear-history", h.ClearHistory)
	return r
}

func sampleCheck() *models.DomainCheck {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &models.DomainCheck{
		ID:     7,
		Domain: "example.com",
		URLs: []models.CheckedURL{
			{URL: "https://example.com/a", Status: models.StatusIndexed, CheckedAt: at},
			{URL: "https://example.com/b", Status: models.StatusNotIndexed, CheckedAt: at},
		},
	}
}

func TestCheckIndex(t *testing.T) {
	t.Parallel()

	checker := &fakeChecker{result: &models.CheckIndexResult{
		DomainGroups:   map[string][]models.CheckedURL{"example.com": sampleCheck().URLs},
		DomainCheckIDs: map[string]int64{"example.com": 7},
	}}
	r := setupChecks(checker, &fakeCheckStore{}, &fakeSitemaps{})

	w := perform(t, r, http.MethodPost, "/api/check-index", models.CheckIndexRequest{URLs: []string{"example.com"}})
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[models.CheckIndexResult](t, w)
	assert.Equal(t, int64(7), got.DomainCheckIDs["example.com"])
	assert.Len(t, got.DomainGroups["example.com"], 2)
	assert.Equal(t, []string{"example.com"}, checker.inputs)
}

func TestCheckIndex_NoURLs(t *testing.T) {
	t.Parallel()

	r := setupChecks(&fakeChecker{err: indexcheck.ErrNoURLs}, &fakeCheckStore{}, &fakeSitemaps{})

	w := perform(t, r, http.MethodPost, "/api/check-index", models.CheckIndexRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, indexcheck.ErrNoURLs.Error(), decode[models.ErrorResponse](t, w).Error)
}

func TestCheckIndex_InternalErrorHidesDetails(t *testing.T) {
	t.Parallel()

	r := setupChecks(&fakeChecker{err: fmt.Errorf("db exploded")}, &fakeCheckStore{}, &fakeSitemaps{})

	w := perform(t, r, http.MethodPost, "/api/check-index", models.CheckIndexRequest{URLs: []string{"a.com"}})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "exploded")
}

func TestFetchSitemap(t *testing.T) {
	t.Parallel()

	maps := &fakeSitemaps{result: &sitemap.Result{Domain: "example.com", URLs: []string{"https://example.com/a"}}}
	r := setupChecks(&fakeChecker{}, &fakeCheckStore{}, maps)

	w := perform(t, r, http.MethodPost, "/api/fetch-sitemap", models.FetchSitemapRequest{Domain: "example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[models.FetchSitemapResponse](t, w)
	assert.Equal(t, 1, got.Count)
	assert.Empty(t, got.Message)

	w = perform(t, r, http.MethodPost, "/api/fetch-sitemap", models.FetchSitemapRequest{Domain: " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFetchSitemap_NotFoundMessage(t *testing.T) {
	t.Parallel()

	r := setupChecks(&fakeChecker{}, &fakeCheckStore{}, &fakeSitemaps{})

	w := perform(t, r, http.MethodPost, "/api/fetch-sitemap", models.FetchSitemapRequest{Domain: "nothing.test"})
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[models.FetchSitemapResponse](t, w)
	assert.Equal(t, sitemap.MessageNotFound, got.Message)
	assert.NotNil(t, got.URLs)
}

func TestDomainChecks_GetAndList(t *testing.T) {
	t.Parallel()

	store := &fakeCheckStore{checks: map[int64]*models.DomainCheck{7: sampleCheck()}}
	r := setupChecks(&fakeChecker{}, store, &fakeSitemaps{})

	w := perform(t, r, http.MethodGet, "/api/domain-checks/7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "example.com", decode[models.DomainCheck](t, w).Domain)

	w = perform(t, r, http.MethodGet, "/api/domain-checks/99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = perform(t, r, http.MethodGet, "/api/domain-checks/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(t, r, http.MethodGet, "/api/domain-checks?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[models.DomainChecksResponse](t, w).DomainChecks, 1)
}

func TestDomainChecks_Search(t *testing.T) {
	t.Parallel()

	checker := &fakeChecker{hits: []models.SearchHit{{CheckID: 7, URL: "https://example.com/a"}}}
	r := setupChecks(checker, &fakeCheckStore{}, &fakeSitemaps{})

	w := perform(t, r, http.MethodGet, "/api/domain-checks/search?q=example", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[models.SearchResponse](t, w)
	assert.Len(t, got.Hits, 1)
	assert.Equal(t, "example", checker.query)

	w = perform(t, r, http.MethodGet, "/api/domain-checks/search", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExport_CSV(t *testing.T) {
	t.Parallel()

	store := &fakeCheckStore{checks: map[int64]*models.DomainCheck{7: sampleCheck()}}
	r := setupChecks(&fakeChecker{}, store, &fakeSitemaps{})

	w := perform(t, r, http.MethodGet, "/api/export/7?filter=indexed", nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Regexp(t, `^attachment; filename=example\.com_indexed_\d{8}_\d{6}\.csv$`, w.Header().Get("Content-Disposition"))

	body := bytes.TrimPrefix(w.Body.Bytes(), []byte{0xEF, 0xBB, 0xBF})
	assert.Contains(t, string(body), "https://example.com/a")
	assert.NotContains(t, string(body), "https://example.com/b")
}

func TestExport_MissingCheck(t *testing.T) {
	t.Parallel()

	r := setupChecks(&fakeChecker{}, &fakeCheckStore{}, &fakeSitemaps{})

	w := perform(t, r, http.MethodGet, "/api/export/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClearHistory(t *testing.T) {
	t.Parallel()

	checker := &fakeChecker{cleared: models.ClearResult{Legacy: 4, URLs: 3, Domains: 2}}
	r := setupChecks(checker, &fakeCheckStore{}, &fakeSitemaps{})

	w := perform(t, r, http.MethodDelete, "/api/clear-history", nil)
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[models.ClearHistoryResponse](t, w)
	assert.True(t, got.Success)
	assert.Equal(t, int64(2), got.Deleted.Domains)
}
