package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jonesrussell/index-checker/internal/models"
)

func sessionPath(id string) string {
	return "/api/editor-session/" + url.PathEscape(id)
}

// CreateSession stores a new working editor session.
func (c *Client) CreateSession(ctx context.Context, req *models.CreateSessionRequest) (*models.CreateSessionResponse, error) {
	var out models.CreateSessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/editor-session", nil, req, &out); err != nil {
		return nil, fmt.Errorf("create editor session: %w", err)
	}
	return &out, nil
}

// GetSession returns a session with its posts.
func (c *Client) GetSession(ctx context.Context, id string) (*models.EditorSession, error) {
	var out models.EditorSession
	if err := c.do(ctx, http.MethodGet, sessionPath(id), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("get editor session: %w", err)
	}
	return &out, nil
}

// ReplaceSessionPosts swaps every post of a session.
func (c *Client) ReplaceSessionPosts(ctx context.Context, id string, posts []models.EditorPost) (int, error) {
	var out models.ReplacePostsResponse
	if err := c.do(ctx, http.MethodPut, sessionPath(id), nil, models.ReplacePostsRequest{Posts: posts}, &out); err != nil {
		return 0, fmt.Errorf("replace session posts: %w", err)
	}
	return out.TotalPosts, nil
}

// UpdateSessionPost changes one field of one session post.
func (c *Client) UpdateSessionPost(ctx context.Context, id string, postID int64, field string, value any) error {
	path := sessionPath(id) + "/post/" + strconv.FormatInt(postID, 10)
	req := models.UpdateSessionPostRequest{Field: field, Value: value}
	if err := c.do(ctx, http.MethodPut, path, nil, req, nil); err != nil {
		return fmt.Errorf("update session post %d: %w", postID, err)
	}
	return nil
}

// Snapshot saves the session as a named snapshot.
func (c *Client) Snapshot(ctx context.Context, id, name string) (*models.SnapshotResult, error) {
	var out models.SnapshotResult
	req := models.SnapshotRequest{SessionName: name}
	if err := c.do(ctx, http.MethodPost, sessionPath(id)+"/snapshot", nil, req, &out); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	return &out, nil
}

// RefreshOutgoingLinks re-extracts the outgoing links of every session post.
func (c *Client) RefreshOutgoingLinks(ctx context.Context, id string) (*models.RefreshLinksResponse, error) {
	var out models.RefreshLinksResponse
	if err := c.do(ctx, http.MethodPost, sessionPath(id)+"/refresh-outgoing-links", nil, struct{}{}, &out); err != nil {
		return nil, fmt.Errorf("refresh outgoing links: %w", err)
	}
	return &out, nil
}

// DeleteSession removes a session or snapshot.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, sessionPath(id), nil, nil, nil); err != nil {
		return fmt.Errorf("delete editor session: %w", err)
	}
	return nil
}

// Sessions lists sessions grouped by domain.
func (c *Client) Sessions(ctx context.Context, filter models.SessionFilter) (*models.SessionsResponse, error) {
	q := url.Values{}
	if filter.WPSiteID != nil {
		q.Set("wp_site_id", strconv.FormatInt(*filter.WPSiteID, 10))
	}
	if filter.SnapshotsOnly {
		q.Set("snapshots_only", "true")
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}

	var out models.SessionsResponse
	if err := c.do(ctx, http.MethodGet, "/api/editor-sessions", q, nil, &out); err != nil {
		return nil, fmt.Errorf("list editor sessions: %w", err)
	}
	return &out, nil
}
