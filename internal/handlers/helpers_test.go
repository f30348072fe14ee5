package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/index-checker/internal/models"
	"github.com/jonesrussell/index-checker/internal/sitemap"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func newJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func perform(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return serve(r, newJSONRequest(t, method, path, body))
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func ptr[T any](v T) *T { return &v }

type fakeChecker struct {
	result  *models.CheckIndexResult
	err     error
	inputs  []string
	cleared models.ClearResult
	hits    []models.SearchHit
	query   string
}

func (f *fakeChecker) Check(_ context.Context, inputs []string) (*models.CheckIndexResult, error) {
	f.inputs = inputs
	return f.result, f.err
}

func (f *fakeChecker) Clear(context.Context) (models.ClearResult, error) {
	return f.cleared, nil
}

func (f *fakeChecker) Search(q string, _ int) ([]models.SearchHit, error) {
	f.query = q
	return f.hits, nil
}

type fakeSitemaps struct {
	result *sitemap.Result
}

func (f *fakeSitemaps) Fetch(_ context.Context, domain string, _ int) (*sitemap.Result, error) {
	if f.result != nil {
		return f.result, nil
	}
	return &sitemap.Result{Domain: domain, URLs: []string{}, Message: sitemap.MessageNotFound}, nil
}

type fakeCheckStore struct {
	checks map[int64]*models.DomainCheck
}

func (f *fakeCheckStore) List(context.Context, int) ([]models.DomainCheck, error) {
	out := make([]models.DomainCheck, 0, len(f.checks))
	for _, c := range f.checks {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeCheckStore) Get(_ context.Context, id int64) (*models.DomainCheck, error) {
	c, ok := f.checks[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return c, nil
}
