package apiclient

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jonesrussell/index-checker/internal/models"
)

// FetchSitemap lists the URLs of a domain's sitemap without checking them.
func (c *Client) FetchSitemap(ctx context.Context, domain string, maxURLs int) (*models.FetchSitemapResponse, error) {
	var out models.FetchSitemapResponse
	req := models.FetchSitemapRequest{Domain: domain, MaxURLs: maxURLs}
	if err := c.do(ctx, http.MethodPost, "/api/fetch-sitemap", nil, req, &out); err != nil {
		return nil, fmt.Errorf("fetch sitemap: %w", err)
	}
	return &out, nil
}

// CheckIndex checks one batch of URLs or domains.
func (c *Client) CheckIndex(ctx context.Context, urls []string) (*CheckIndexResponse, error) {
	var out CheckIndexResponse
	if err := c.do(ctx, http.MethodPost, "/api/check-index", nil, models.CheckIndexRequest{URLs: urls}, &out); err != nil {
		return nil, fmt.Errorf("check index: %w", err)
	}
	return &out, nil
}

// DomainChecks lists recent check runs.
func (c *Client) DomainChecks(ctx context.Context, limit int) ([]models.DomainCheck, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var out models.DomainChecksResponse
	if err := c.do(ctx, http.MethodGet, "/api/domain-checks", q, nil, &out); err != nil {
		return nil, fmt.Errorf("list domain checks: %w", err)
	}
	return out.DomainChecks, nil
}

// DomainCheck returns one check run with its URLs.
func (c *Client) DomainCheck(ctx context.Context, id int64) (*models.DomainCheck, error) {
	var out models.DomainCheck
	if err := c.do(ctx, http.MethodGet, "/api/domain-checks/"+strconv.FormatInt(id, 10), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("get domain check %d: %w", id, err)
	}
	return &out, nil
}

// SearchHistory runs a full-text query over checked URLs.
func (c *Client) SearchHistory(ctx context.Context, query string, limit int) ([]models.SearchHit, error) {
	q := url.Values{"q": {query}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var out models.SearchResponse
	if err := c.do(ctx, http.MethodGet, "/api/domain-checks/search", q, nil, &out); err != nil {
		return nil, fmt.Errorf("search history: %w", err)
	}
	return out.Hits, nil
}

// Export streams a check's results to w and returns the server-suggested file name.
func (c *Client) Export(ctx context.Context, id int64, filter, format string, w io.Writer) (string, error) {
	q := url.Values{}
	if filter != "" {
		q.Set("filter", filter)
	}
	if format != "" {
		q.Set("format", format)
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/api/export/"+strconv.FormatInt(id, 10), q, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.send(req)
	if err != nil {
		return "", fmt.Errorf("export %d: %w", id, err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}

	if _, params, parseErr := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); parseErr == nil {
		return params["filename"], nil
	}
	return "", nil
}

// ClearHistory deletes every check run.
func (c *Client) ClearHistory(ctx context.Context) (*models.ClearHistoryResponse, error) {
	var out models.ClearHistoryResponse
	if err := c.do(ctx, http.MethodDelete, "/api/clear-history", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("clear history: %w", err)
	}
	return &out, nil
}

// EditHistories lists saved edit sessions without their snapshot data.
func (c *Client) EditHistories(ctx context.Context) ([]models.EditHistory, error) {
	var out models.HistoryListResponse
	if err := c.do(ctx, http.MethodGet, "/api/history", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list edit history: %w", err)
	}
	return out.History, nil
}

// EditHistory returns one saved edit session.
func (c *Client) EditHistory(ctx context.Context, id int64) (*models.EditHistory, error) {
	var out models.EditHistory
	if err := c.do(ctx, http.MethodGet, "/api/history/"+strconv.FormatInt(id, 10), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("get edit history %d: %w", id, err)
	}
	return &out, nil
}

// CreateEditHistory saves an edit session and returns its id.
func (c *Client) CreateEditHistory(ctx context.Context, req *models.HistoryRequest) (int64, error) {
	var out models.HistoryCreatedResponse
	if err := c.do(ctx, http.MethodPost, "/api/history", nil, req, &out); err != nil {
		return 0, fmt.Errorf("create edit history: %w", err)
	}
	return out.HistoryID, nil
}

// UpdateEditHistory replaces the snapshot and counters of an edit session.
func (c *Client) UpdateEditHistory(ctx context.Context, id int64, req *models.HistoryRequest) error {
	if err := c.do(ctx, http.MethodPut, "/api/history/"+strconv.FormatInt(id, 10), nil, req, nil); err != nil {
		return fmt.Errorf("update edit history %d: %w", id, err)
	}
	return nil
}

// DeleteEditHistory removes an edit session.
func (c *Client) DeleteEditHistory(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, "/api/history/"+strconv.FormatInt(id, 10), nil, nil, nil); err != nil {
		return fmt.Errorf("delete edit history %d: %w", id, err)
	}
	return nil
}
