package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/jonesrussell/index-checker/internal/models"
)

// WordPressPosts fetches posts by URL through the server's WordPress proxy.
func (c *Client) WordPressPosts(ctx context.Context, req *models.WordPressPostsRequest) (*models.WordPressPostsResponse, error) {
	var out models.WordPressPostsResponse
	if err := c.do(ctx, http.MethodPost, "/api/wordpress/posts", nil, req, &out); err != nil {
		return nil, fmt.Errorf("fetch wordpress posts: %w", err)
	}
	return &out, nil
}

// UpdateWordPressPost pushes one post update.
func (c *Client) UpdateWordPressPost(
	ctx context.Context, postID int64, req *models.WordPressUpdateRequest,
) (*models.WordPressUpdateResponse, error) {
	var out models.WordPressUpdateResponse
	if err := c.do(ctx, http.MethodPut, "/api/wordpress/post/"+strconv.FormatInt(postID, 10), nil, req, &out); err != nil {
		return nil, fmt.Errorf("update wordpress post %d: %w", postID, err)
	}
	return &out, nil
}

// TestConnection verifies WordPress credentials.
func (c *Client) TestConnection(ctx context.Context, creds models.Credentials) (*models.TestConnectionResponse, error) {
	var out models.TestConnectionResponse
	if err := c.do(ctx, http.MethodPost, "/api/wordpress/test-connection", nil, creds, &out); err != nil {
		return nil, fmt.Errorf("test wordpress connection: %w", err)
	}
	return &out, nil
}

// Categories lists a site's categories.
func (c *Client) Categories(ctx context.Context, creds models.Credentials) ([]models.Category, error) {
	var out models.CategoriesResponse
	if err := c.do(ctx, http.MethodPost, "/api/wordpress/categories", nil, creds, &out); err != nil {
		return nil, fmt.Errorf("list wordpress categories: %w", err)
	}
	return out.Categories, nil
}

// Sites lists stored WordPress sites.
func (c *Client) Sites(ctx context.Context) ([]models.WPSite, error) {
	var out models.WPSitesResponse
	if err := c.do(ctx, http.MethodGet, "/api/wp-sites", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	return out.Sites, nil
}

// ActiveSite returns the active site, or nil when none is configured.
func (c *Client) ActiveSite(ctx context.Context) (*models.WPSite, error) {
	var out models.WPSiteResponse
	if err := c.do(ctx, http.MethodGet, "/api/wp-sites/active", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("get active site: %w", err)
	}
	return out.Site, nil
}

// CreateSite stores a new site.
func (c *Client) CreateSite(ctx context.Context, in *models.WPSiteInput) (*models.WPSite, error) {
	var out models.WPSiteResponse
	if err := c.do(ctx, http.MethodPost, "/api/wp-sites", nil, in, &out); err != nil {
		return nil, fmt.Errorf("create site: %w", err)
	}
	return out.Site, nil
}

// UpdateSite changes the non-nil fields of a site.
func (c *Client) UpdateSite(ctx context.Context, id int64, in *models.WPSiteInput) (*models.WPSite, error) {
	var out models.WPSiteResponse
	if err := c.do(ctx, http.MethodPut, "/api/wp-sites/"+strconv.FormatInt(id, 10), nil, in, &out); err != nil {
		return nil, fmt.Errorf("update site %d: %w", id, err)
	}
	return out.Site, nil
}

// DeleteSite removes a site.
func (c *Client) DeleteSite(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, "/api/wp-sites/"+strconv.FormatInt(id, 10), nil, nil, nil); err != nil {
		return fmt.Errorf("delete site %d: %w", id, err)
	}
	return nil
}

// ActivateSite makes a site the active one.
func (c *Client) ActivateSite(ctx context.Context, id int64) (*models.WPSite, error) {
	var out models.WPSiteResponse
	if err := c.do(ctx, http.MethodPut, "/api/wp-sites/"+strconv.FormatInt(id, 10)+"/active", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("activate site %d: %w", id, err)
	}
	return out.Site, nil
}

// FindSiteByDomain returns the stored site serving domain.
func (c *Client) FindSiteByDomain(ctx context.Context, domain string) (*models.WPSite, error) {
	var out models.WPSiteResponse
	if err := c.do(ctx, http.MethodPost, "/api/wp-sites/find-by-domain", nil, models.FindByDomainRequest{Domain: domain}, &out); err != nil {
		return nil, fmt.Errorf("find site by domain: %w", err)
	}
	return out.Site, nil
}
