// Package wordpress is a client for the WordPress REST API authenticated with
// application passwords.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonesrussell/index-checker/internal/apierrors"
	"github.com/jonesrussell/index-checker/internal/config"
	"github.com/jonesrussell/index-checker/internal/httpclient"
	"github.com/jonesrussell/index-checker/internal/logger"
	"github.com/jonesrussell/index-checker/internal/models"
)

// ErrPostNotFound is returned when neither a post nor a page matches a URL's slug.
var ErrPostNotFound = errors.New("Post not found") //nolint:staticcheck // surfaced verbatim per row

const (
	apiPrefix          = "/wp-json/wp/v2"
	categoriesPerPage  = 100
	maxResponseBodyLen = 10 << 20
)

// Factory builds per-site clients sharing one connection pool.
type Factory struct {
	cfg  config.WordPressConfig
	http *http.Client
	log  logger.Logger
}

// NewFactory creates a Factory. WordPress hosts often run self-signed
// certificates, so verification is skipped like the sitemap fetcher does.
func NewFactory(cfg config.WordPressConfig, log logger.Logger) *Factory {
	return &Factory{
		cfg:  cfg,
		http: httpclient.New(httpclient.Config{Timeout: cfg.Timeout, InsecureSkipVerify: true}),
		log:  log,
	}
}

// NewFactoryWithClient creates a Factory around hc.
func NewFactoryWithClient(cfg config.WordPressConfig, hc *http.Client, log logger.Logger) *Factory {
	return &Factory{cfg: cfg, http: hc, log: log}
}

// Client returns a client for creds.
func (f *Factory) Client(creds models.Credentials) *Client {
	return &Client{
		baseURL:  strings.TrimRight(strings.TrimSpace(creds.SiteURL), "/"),
		username: creds.Username,
		password: creds.AppPassword,
		http:     f.http,
		workers:  f.cfg.Workers,
		log:      f.log.With(logger.String("site", creds.SiteURL)),
	}
}

// FetchPosts fetches urls from the site behind creds. See Client.FetchPostsConcurrent.
func (f *Factory) FetchPosts(ctx context.Context, creds models.Credentials, urls []string, workers int) []models.Post {
	return f.Client(creds).FetchPostsConcurrent(ctx, urls, workers)
}

// Client talks to one WordPress site.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	workers  int
	log      logger.Logger
}

type rendered struct {
	Rendered string `json:"rendered"`
}

// rawPost is the subset of the REST post object the client reads.
type rawPost struct {
	ID         int64    `json:"id"`
	Link       string   `json:"link"`
	Status     string   `json:"status"`
	Modified   string   `json:"modified"`
	Author     int64    `json:"author"`
	Categories []int64  `json:"categories"`
	Title      rendered `json:"title"`
	Content    rendered `json:"content"`
	Excerpt    rendered `json:"excerpt"`
	Yoast      *struct {
		Title       *string `json:"title"`
		Description string  `json:"description"`
	} `json:"yoast_head_json"`
	Embedded struct {
		FeaturedMedia []struct {
			SourceURL string `json:"source_url"`
		} `json:"wp:featuredmedia"`
	} `json:"_embedded"`
}

func (p *rawPost) toModel(requestURL string) models.Post {
	post := models.Post{
		ID:           p.ID,
		PostID:       p.ID,
		URL:          requestURL,
		Title:        p.Title.Rendered,
		Content:      p.Content.Rendered,
		Excerpt:      p.Excerpt.Rendered,
		Status:       p.Status,
		Categories:   p.Categories,
		DateModified: p.Modified,
		AuthorID:     p.Author,
		SEOTitle:     p.Title.Rendered,
	}
	if post.URL == "" {
		post.URL = p.Link
	}
	if post.Status == "" {
		post.Status = "publish"
	}
	if len(p.Embedded.FeaturedMedia) > 0 {
		post.FeaturedImage = p.Embedded.FeaturedMedia[0].SourceURL
	}
	if p.Yoast != nil {
		if p.Yoast.Title != nil {
			post.SEOTitle = *p.Yoast.Title
		}
		post.SEODescription = p.Yoast.Description
	}
	return post
}

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body any, dst any) error {
	target := c.baseURL + apiPrefix + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if httpErr := apierrors.ParseHTTPError(resp); httpErr != nil {
		return httpErr
	}

	if dst == nil {
		return nil
	}
	if err = json.NewDecoder(io.LimitReader(resp.Body, maxResponseBodyLen)).Decode(dst); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

// TestConnection returns the user the credentials authenticate as.
func (c *Client) TestConnection(ctx context.Context) (*models.WPUser, error) {
	var user models.WPUser
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, nil, &user); err != nil {
		if status, ok := apierrors.StatusCode(err); ok {
			return nil, fmt.Errorf("authentication failed with status %d: %w", status, err)
		}
		return nil, err
	}
	return &user, nil
}

// SlugFromURL returns the last path segment of rawURL.
func SlugFromURL(rawURL string) string {
	p := strings.TrimSpace(rawURL)
	if u, err := url.Parse(p); err == nil && u.Path != "" {
		p = u.Path
	}
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	return p
}

func (c *Client) bySlug(ctx context.Context, postType, slug string) (*rawPost, error) {
	var posts []rawPost
	query := url.Values{"slug": {slug}, "_embed": {"true"}}
	if err := c.do(ctx, http.MethodGet, "/"+postType, query, nil, &posts); err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, nil //nolint:nilnil // no match is not an error here
	}
	return &posts[0], nil
}

// GetPostByURL finds the post, or failing that the page, whose slug matches rawURL.
func (c *Client) GetPostByURL(ctx context.Context, rawURL string) (*models.Post, error) {
	slug := SlugFromURL(rawURL)
	if slug == "" {
		return nil, ErrPostNotFound
	}

	for _, postType := range []string{"posts", "pages"} {
		raw, err := c.bySlug(ctx, postType, slug)
		if err != nil {
			return nil, err
		}
		if raw != nil {
			post := raw.toModel(rawURL)
			return &post, nil
		}
	}

	c.log.Warn("Post not found for URL", logger.String("url", rawURL), logger.String("slug", slug))
	return nil, ErrPostNotFound
}

// FetchPostsConcurrent fetches urls with up to workers requests in flight.
// Results keep the order of urls; a failed URL yields Post{URL, Error}.
func (c *Client) FetchPostsConcurrent(ctx context.Context, urls []string, workers int) []models.Post {
	if workers <= 0 {
		workers = c.workers
	}
	workers = max(min(workers, len(urls)), 1)

	start := time.Now()
	c.log.Info("Fetching posts", logger.Int("count", len(urls)), logger.Int("workers", workers))

	posts := make([]models.Post, len(urls))
	var g errgroup.Group
	g.SetLimit(workers)

	for i, u := range urls {
		g.Go(func() error {
			post, err := c.GetPostByURL(ctx, u)
			if err != nil {
				posts[i] = models.Post{URL: u, Error: err.Error()}
				if !errors.Is(err, ErrPostNotFound) {
					c.log.Warn("Post fetch failed", logger.String("url", u), logger.Error(err))
				}
				return nil
			}
			posts[i] = *post
			return nil
		})
	}
	_ = g.Wait()

	c.log.Info("Fetched posts",
		logger.Int("count", len(posts)),
		logger.Duration("elapsed", time.Since(start)),
	)
	return posts
}

// updatePayload is the REST body for a post update. Only set fields are sent.
type updatePayload struct {
	Title      *string           `json:"title,omitempty"`
	Content    *string           `json:"content,omitempty"`
	Excerpt    *string           `json:"excerpt,omitempty"`
	Status     *string           `json:"status,omitempty"`
	Categories *[]int64          `json:"categories,omitempty"`
	Meta       map[string]string `json:"meta,omitempty"`
}

// UpdatePost pushes the remote fields of update to post postID and returns the saved post.
// SEO fields go to the Yoast meta keys. A rejected update wraps an *apierrors.HTTPError
// whose Message is the WordPress error text.
func (c *Client) UpdatePost(ctx context.Context, postID int64, update *models.PostUpdate) (*models.Post, error) {
	payload := updatePayload{
		Title:      update.Title,
		Content:    update.Content,
		Excerpt:    update.Excerpt,
		Status:     update.Status,
		Categories: update.Categories,
	}
	if update.SEOTitle != nil || update.SEODescription != nil {
		payload.Meta = map[string]string{
			"yoast_wpseo_title":    deref(update.SEOTitle),
			"yoast_wpseo_metadesc": deref(update.SEODescription),
		}
	}

	var raw rawPost
	if err := c.do(ctx, http.MethodPost, "/posts/"+strconv.FormatInt(postID, 10), nil, payload, &raw); err != nil {
		return nil, fmt.Errorf("update post %d: %w", postID, err)
	}

	c.log.Info("Updated post", logger.Int64("post_id", postID))
	post := raw.toModel("")
	return &post, nil
}

// GetCategories returns up to 100 categories ordered by name.
func (c *Client) GetCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	query := url.Values{
		"per_page": {strconv.Itoa(categoriesPerPage)},
		"orderby":  {"name"},
		"order":    {"asc"},
	}
	if err := c.do(ctx, http.MethodGet, "/categories", query, nil, &categories); err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	return categories, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
