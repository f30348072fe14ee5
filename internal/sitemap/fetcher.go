// Package sitemap discovers a domain's page URLs from its XML sitemap.
package sitemap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jonesrussell/index-checker/internal/config"
	"github.com/jonesrussell/index-checker/internal/httpclient"
	"github.com/jonesrussell/index-checker/internal/logger"
)

// MessageNotFound is set on a Result when no candidate produced any URL.
const MessageNotFound = "No sitemap found"

// maxBodySize caps a single sitemap download.
const maxBodySize = 50 << 20

// Result is the outcome of a sitemap discovery.
type Result struct {
	Domain  string   `json:"domain"`
	URLs    []string `json:"urls"`
	Source  string   `json:"source,omitempty"`
	Message string   `json:"message,omitempty"`
}

// Fetcher downloads and parses sitemaps.
type Fetcher struct {
	http      *http.Client
	userAgent string
	maxURLs   int
	maxDepth  int
	log       logger.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *Fetcher) { f.http = hc }
}

// New creates a Fetcher from cfg.
func New(cfg config.SitemapConfig, log logger.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		http: httpclient.New(httpclient.Config{
			Timeout:            cfg.Timeout,
			InsecureSkipVerify: cfg.SkipTLSVerify(),
		}),
		userAgent: cfg.UserAgent,
		maxURLs:   cfg.MaxURLs,
		maxDepth:  max(cfg.MaxDepth, 1),
		log:       log,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NormalizeDomain strips scheme and path from raw, keeping any port.
func NormalizeDomain(raw string) string {
	d := strings.TrimSpace(raw)
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	return strings.ToLower(d)
}

// Candidates returns the sitemap locations tried for domain, in order.
func Candidates(domain string) []string {
	return []string{
		"https://" + domain + "/sitemap.xml",
		"https://" + domain + "/sitemap_index.xml",
		"http://" + domain + "/sitemap.xml",
		"http://" + domain + "/sitemap_index.xml",
	}
}

// Fetch discovers up to maxURLs page URLs for domain. A non-positive maxURLs
// uses the configured limit. Finding nothing is not an error: the Result
// carries MessageNotFound instead.
func (f *Fetcher) Fetch(ctx context.Context, domain string, maxURLs int) (*Result, error) {
	domain = NormalizeDomain(domain)
	if domain == "" {
		return nil, errors.New("domain is required")
	}
	if maxURLs <= 0 || (f.maxURLs > 0 && maxURLs > f.maxURLs) {
		maxURLs = f.maxURLs
	}

	result := &Result{Domain: domain, URLs: []string{}}
	col := newCollector(maxURLs)

	for _, candidate := range Candidates(domain) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		f.log.Info("Fetching sitemap", logger.String("url", candidate))
		f.collect(ctx, candidate, col, 0)

		if col.len() > 0 {
			result.Source = candidate
			break
		}
	}

	result.URLs = col.urls
	if len(result.URLs) == 0 {
		result.Message = MessageNotFound
	}

	f.log.Info("Sitemap discovery finished",
		logger.String("domain", domain),
		logger.Int("urls", len(result.URLs)),
		logger.String("source", result.Source),
	)
	return result, nil
}

// collect fetches one sitemap document and adds its pages to col, following
// nested sitemaps up to the depth limit.
func (f *Fetcher) collect(ctx context.Context, sitemapURL string, col *collector, depth int) {
	if col.full() || depth > f.maxDepth {
		return
	}

	body, contentType, finalURL, err := f.get(ctx, sitemapURL)
	if err != nil {
		f.log.Warn("Sitemap unavailable", logger.String("url", sitemapURL), logger.Error(err))
		return
	}

	if looksLikeHTML(contentType, body) {
		links, htmlErr := htmlLinks(body, finalURL)
		if htmlErr != nil {
			f.log.Warn("Unreadable HTML sitemap", logger.String("url", sitemapURL), logger.Error(htmlErr))
			return
		}
		col.add(links...)
		return
	}

	doc, err := parseDocument(body)
	if err != nil {
		f.log.Warn("Unreadable sitemap", logger.String("url", sitemapURL), logger.Error(err))
		return
	}

	if !doc.isIndex() {
		col.add(doc.locs...)
		return
	}

	for _, nested := range doc.locs {
		if col.full() {
			return
		}
		f.log.Debug("Fetching nested sitemap", logger.String("url", nested))
		f.collect(ctx, nested, col, depth+1)
	}
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, string, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, "", nil, fmt.Errorf("create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, "", nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "xml") && !strings.Contains(contentType, "text") {
		return nil, "", nil, fmt.Errorf("unexpected content type %q", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, "", nil, fmt.Errorf("read body: %w", err)
	}

	return body, contentType, resp.Request.URL, nil
}

// collector accumulates unique URLs in discovery order up to a limit.
type collector struct {
	limit int
	seen  map[string]struct{}
	urls  []string
}

func newCollector(limit int) *collector {
	return &collector{limit: limit, seen: make(map[string]struct{}), urls: []string{}}
}

func (c *collector) add(urls ...string) {
	for _, u := range urls {
		if c.full() {
			return
		}
		if _, dup := c.seen[u]; dup {
			continue
		}
		c.seen[u] = struct{}{}
		c.urls = append(c.urls, u)
	}
}

func (c *collector) full() bool {
	return c.limit > 0 && len(c.urls) >= c.limit
}

func (c *collector) len() int {
	return len(c.urls)
}
