package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/index-checker/internal/apierrors"
	"github.com/jonesrussell/index-checker/internal/links"
	"github.com/jonesrussell/index-checker/internal/logger"
	"github.com/jonesrussell/index-checker/internal/models"
)

// WordPressAPI is the per-site WordPress client used by the proxy routes.
type WordPressAPI interface {
	TestConnection(ctx context.Context) (*models.WPUser, error)
	FetchPostsConcurrent(ctx context.Context, urls []string, workers int) []models.Post
	UpdatePost(ctx context.Context, postID int64, update *models.PostUpdate) (*models.Post, error)
	GetCategories(ctx context.Context) ([]models.Category, error)
}

// WordPressClientFunc returns a client for creds.
type WordPressClientFunc func(creds models.Credentials) WordPressAPI

// OutgoingURLStore keeps the locally tracked outgoing URL of each post.
type OutgoingURLStore interface {
	GetMany(ctx context.Context, siteID int64, postIDs []int64) (map[int64]string, error)
	Upsert(ctx context.Context, siteID, postID int64, postURL, outgoingURL string) error
}

// SiteFinder resolves a stored site from a URL.
type SiteFinder interface {
	FindByDomain(ctx context.Context, domain string) (*models.WPSite, error)
}

// WordPressHandler proxies WordPress REST calls and enriches posts with
// locally stored outgoing URLs and extracted outgoing links.
type WordPressHandler struct {
	client   WordPressClientFunc
	outgoing OutgoingURLStore
	sites    SiteFinder
	workers  int
	logger   logger.Logger
}

// NewWordPressHandler creates a WordPressHandler. workers bounds concurrent post fetches.
func NewWordPressHandler(
	client WordPressClientFunc, outgoing OutgoingURLStore, sites SiteFinder, workers int, log logger.Logger,
) *WordPressHandler {
	return &WordPressHandler{client: client, outgoing: outgoing, sites: sites, workers: workers, logger: log}
}

// siteID returns explicit, or the id of the stored site matching siteURL.
func (h *WordPressHandler) siteID(ctx context.Context, explicit *int64, siteURL string) *int64 {
	if explicit != nil {
		return explicit
	}
	site, err := h.sites.FindByDomain(ctx, siteURL)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			h.logger.Warn("Site lookup failed", logger.String("site_url", siteURL), logger.Error(err))
		}
		return nil
	}
	return &site.ID
}

// Posts handles POST /api/wordpress/posts.
func (h *WordPressHandler) Posts(c *gin.Context) {
	var req models.WordPressPostsRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	if err := ValidateCredentials(&req.Credentials); err != nil {
		respondError(c, h.logger, err, "Invalid credentials")
		return
	}
	if len(req.URLs) == 0 {
		badRequest(c, "No URLs provided")
		return
	}

	ctx := c.Request.Context()
	posts := h.client(req.Credentials).FetchPostsConcurrent(ctx, req.URLs, h.workers)

	ids := make([]int64, 0, len(posts))
	for i := range posts {
		if !posts[i].Valid() {
			continue
		}
		posts[i].OutgoingLinks = links.ExtractOutgoing(posts[i].Content, posts[i].URL)
		ids = append(ids, posts[i].ID)
	}

	if siteID := h.siteID(ctx, req.WPSiteID, req.SiteURL); siteID != nil && len(ids) > 0 {
		stored, err := h.outgoing.GetMany(ctx, *siteID, ids)
		if err != nil {
			h.logger.Warn("Failed to load outgoing URLs", logger.Int64("wp_site_id", *siteID), logger.Error(err))
		}
		for i := range posts {
			if u, ok := stored[posts[i].ID]; ok {
				posts[i].OutgoingURL = u
			}
		}
	}

	c.JSON(http.StatusOK, models.WordPressPostsResponse{Total: len(posts), Posts: posts})
}

// UpdatePost handles PUT /api/wordpress/post/:id.
func (h *WordPressHandler) UpdatePost(c *gin.Context) {
	postID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req models.WordPressUpdateRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	if err := ValidateCredentials(&req.Credentials); err != nil {
		respondError(c, h.logger, err, "Invalid credentials")
		return
	}
	if !req.HasRemoteFields() && req.OutgoingURL == nil {
		badRequest(c, "No fields to update")
		return
	}

	ctx := c.Request.Context()
	resp := models.WordPressUpdateResponse{Success: true, Message: "Post updated"}

	if req.HasRemoteFields() {
		post, err := h.client(req.Credentials).UpdatePost(ctx, postID, &req.PostUpdate)
		if err != nil {
			respondError(c, h.logger, err, "Failed to update post")
			return
		}
		resp.Post = post
	}

	if req.OutgoingURL != nil {
		siteID := h.siteID(ctx, req.WPSiteID, req.SiteURL)
		if siteID == nil {
			badRequest(c, "No stored site matches site_url")
			return
		}
		if err := h.outgoing.Upsert(ctx, *siteID, postID, req.URL, *req.OutgoingURL); err != nil {
			respondError(c, h.logger, err, "Failed to save outgoing URL")
			return
		}
		if resp.Post == nil {
			resp.Post = &models.Post{ID: postID, PostID: postID, URL: req.URL}
			resp.Message = "Outgoing URL saved"
		}
		resp.Post.OutgoingURL = *req.OutgoingURL
	}

	h.logger.Info("WordPress post updated", logger.Int64("post_id", postID))
	c.JSON(http.StatusOK, resp)
}

// TestConnection handles POST /api/wordpress/test-connection.
func (h *WordPressHandler) TestConnection(c *gin.Context) {
	var creds models.Credentials
	if !bindJSON(c, h.logger, &creds) {
		return
	}
	if err := ValidateCredentials(&creds); err != nil {
		respondError(c, h.logger, err, "Invalid credentials")
		return
	}

	user, err := h.client(creds).TestConnection(c.Request.Context())
	if err != nil {
		status := http.StatusBadGateway
		if code, ok := apierrors.StatusCode(err); ok && (code == http.StatusUnauthorized || code == http.StatusForbidden) {
			status = http.StatusUnauthorized
		}
		h.logger.Debug("WordPress connection test failed", logger.String("site_url", creds.SiteURL), logger.Error(err))
		fail := false
		c.JSON(status, models.ErrorResponse{Success: &fail, Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.TestConnectionResponse{
		Success: true,
		Message: "Connected as " + user.Name,
		User:    user,
	})
}

// Categories handles POST /api/wordpress/categories.
func (h *WordPressHandler) Categories(c *gin.Context) {
	var creds models.Credentials
	if !bindJSON(c, h.logger, &creds) {
		return
	}
	if err := ValidateCredentials(&creds); err != nil {
		respondError(c, h.logger, err, "Invalid credentials")
		return
	}

	categories, err := h.client(creds).GetCategories(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch categories")
		return
	}
	c.JSON(http.StatusOK, models.CategoriesResponse{Categories: categories})
}
