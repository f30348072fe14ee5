package wordpress_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/index-checker/internal/apierrors"
	"github.com/jonesrussell/index-checker/internal/config"
	"github.com/jonesrussell/index-checker/internal/logger"
	"github.com/jonesrussell/index-checker/internal/models"
	"github.com/jonesrussell/index-checker/internal/wordpress"
)

const postJSON = `[{
	"id": 42,
	"link": "https://blog.com/hello-world/",
	"status": "publish",
	"modified": "2026-03-01T10:00:00",
	"author": 3,
	"categories": [5, 7],
	"title": {"rendered": "Hello World"},
	"content": {"rendered": "<p>Hi <a href=\"https://x.com\">X</a></p>"},
	"excerpt": {"rendered": "<p>Hi</p>"},
	"yoast_head_json": {"title": "Hello | Blog", "description": "Greeting"},
	"_embedded": {"wp:featuredmedia": [{"source_url": "https://blog.com/img.jpg"}]}
}]`

func newClient(t *testing.T, mux *http.ServeMux) *wordpress.Client {
	t.Helper()

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	factory := wordpress.NewFactoryWithClient(
		config.WordPressConfig{Timeout: time.Second, Workers: 4},
		server.Client(),
		logger.NewNop(),
	)
	return factory.Client(models.Credentials{SiteURL: server.URL + "/", Username: "editor", AppPassword: "app pass"})
}

func requireBasicAuth(t *testing.T, r *http.Request) {
	t.Helper()
	user, pass, ok := r.BasicAuth()
	assert.True(t, ok)
	assert.Equal(t, "editor", user)
	assert.Equal(t, "app pass", pass)
}

func TestClient_GetPostByURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/wp/v2/posts", func(w http.ResponseWriter, r *http.Request) {
		requireBasicAuth(t, r)
		assert.Equal(t, "hello-world", r.URL.Query().Get("slug"))
		assert.Equal(t, "true", r.URL.Query().Get("_embed"))
		_, _ = w.Write([]byte(postJSON))
	})
	client := newClient(t, mux)

	post, err := client.GetPostByURL(context.Background(), "https://blog.com/hello-world/")
	require.NoError(t, err)

	assert.Equal(t, int64(42), post.ID)
	assert.Equal(t, int64(42), post.PostID)
	assert.Equal(t, "https://blog.com/hello-world/", post.URL)
	assert.Equal(t, "Hello World", post.Title)
	assert.Equal(t, "Hello | Blog", post.SEOTitle)
	assert.Equal(t, "Greeting", post.SEODescription)
	assert.Equal(t, "https://blog.com/img.jpg", post.FeaturedImage)
	assert.Equal(t, "2026-03-01T10:00:00", post.DateModified)
	assert.Equal(t, []int64{5, 7}, post.Categories)
	assert.Equal(t, int64(3), post.AuthorID)
}

func TestClient_GetPostByURL_FallsBackToPages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/wp/v2/posts", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/wp-json/wp/v2/pages", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id": 9, "title": {"rendered": "About"}}]`))
	})
	client := newClient(t, mux)

	post, err := client.GetPostByURL(context.Background(), "https://blog.com/about")
	require.NoError(t, err)
	assert.Equal(t, int64(9), post.ID)
	assert.Equal(t, "About", post.SEOTitle, "seo title falls back to the post title")
	assert.Equal(t, "publish", post.Status)
}

func TestClient_FetchPostsConcurrent_KeepsOrderAndReportsFailures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/wp/v2/posts", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("slug") == "hello-world" {
			_, _ = w.Write([]byte(postJSON))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/wp-json/wp/v2/pages", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	client := newClient(t, mux)

	urls := []string{"https://blog.com/missing", "https://blog.com/hello-world/"}
	posts := client.FetchPostsConcurrent(context.Background(), urls, 0)

	require.Len(t, posts, 2)
	assert.Equal(t, "https://blog.com/missing", posts[0].URL)
	assert.Equal(t, "Post not found", posts[0].Error)
	assert.False(t, posts[0].Valid())
	assert.True(t, posts[1].Valid())
}

func TestClient_UpdatePost(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/wp/v2/posts/42", func(w http.ResponseWriter, r *http.Request) {
		requireBasicAuth(t, r)
		assert.Equal(t, http.MethodPost, r.Method)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "New title", body["title"])
		assert.NotContains(t, body, "content")
		assert.Equal(t, map[string]any{
			"yoast_wpseo_title":    "SEO",
			"yoast_wpseo_metadesc": "",
		}, body["meta"])

		_, _ = w.Write([]byte(`{"id": 42, "title": {"rendered": "New title"}, "modified": "2026-03-02T00:00:00"}`))
	})
	client := newClient(t, mux)

	title, seo := "New title", "SEO"
	post, err := client.UpdatePost(context.Background(), 42, &models.PostUpdate{Title: &title, SEOTitle: &seo})
	require.NoError(t, err)
	assert.Equal(t, "New title", post.Title)
	assert.Equal(t, "2026-03-02T00:00:00", post.DateModified)
}

func TestClient_UpdatePost_SurfacesWordPressMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/wp/v2/posts/42", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"code":"rest_cannot_edit","message":"Sorry, you are not allowed to edit this post."}`))
	})
	client := newClient(t, mux)

	status := "draft"
	_, err := client.UpdatePost(context.Background(), 42, &models.PostUpdate{Status: &status})
	require.Error(t, err)

	var httpErr *apierrors.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "Sorry, you are not allowed to edit this post.", httpErr.Message)
	assert.Equal(t, "rest_cannot_edit", httpErr.Code)
}

func TestClient_TestConnection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/wp/v2/users/me", func(w http.ResponseWriter, r *http.Request) {
		requireBasicAuth(t, r)
		_, _ = w.Write([]byte(`{"id": 1, "name": "Editor", "email": "e@blog.com"}`))
	})
	client := newClient(t, mux)

	user, err := client.TestConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Editor", user.Name)
}

func TestClient_GetCategories(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/wp/v2/categories", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		_, _ = w.Write([]byte(`[{"id": 5, "name": "News", "slug": "news", "count": 12}]`))
	})
	client := newClient(t, mux)

	categories, err := client.GetCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "news", categories[0].Slug)
}

func TestSlugFromURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hello-world", wordpress.SlugFromURL("https://blog.com/2026/01/hello-world/"))
	assert.Equal(t, "hello-world", wordpress.SlugFromURL("https://blog.com/hello-world?utm=1"))
	assert.Equal(t, "", wordpress.SlugFromURL("https://blog.com/"))
}
