package handlers

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/index-checker/internal/export"
	"github.com/jonesrussell/index-checker/internal/grouping"
	"github.com/jonesrussell/index-checker/internal/historysearch"
	"github.com/jonesrussell/index-checker/internal/logger"
	"github.com/jonesrussell/index-checker/internal/models"
	"github.com/jonesrussell/index-checker/internal/sitemap"
)

const defaultCheckListLimit = 20

// IndexChecker runs and manages index checks.
type IndexChecker interface {
	Check(ctx context.Context, inputs []string) (*models.CheckIndexResult, error)
	Clear(ctx context.Context) (models.ClearResult, error)
	Search(q string, limit int) ([]models.SearchHit, error)
}

// SitemapFetcher discovers a domain's URLs.
type SitemapFetcher interface {
	Fetch(ctx context.Context, domain string, maxURLs int) (*sitemap.Result, error)
}

// CheckStore reads stored check runs.
type CheckStore interface {
	List(ctx context.Context, limit int) ([]models.DomainCheck, error)
	Get(ctx context.Context, id int64) (*models.DomainCheck, error)
}

// CheckHandler serves sitemap discovery, index checks, check history and export.
type CheckHandler struct {
	checks   IndexChecker
	sitemaps SitemapFetcher
	store    CheckStore
	logger   logger.Logger
	now      func() time.Time
}

// NewCheckHandler creates a CheckHandler.
func NewCheckHandler(checks IndexChecker, sitemaps SitemapFetcher, store CheckStore, log logger.Logger) *CheckHandler {
	return &CheckHandler{checks: checks, sitemaps: sitemaps, store: store, logger: log, now: time.Now}
}

// FetchSitemap handles POST /api/fetch-sitemap.
func (h *CheckHandler) FetchSitemap(c *gin.Context) {
	var req models.FetchSitemapRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	if strings.TrimSpace(req.Domain) == "" {
		badRequest(c, "Domain is required")
		return
	}

	result, err := h.sitemaps.Fetch(c.Request.Context(), req.Domain, req.MaxURLs)
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch sitemap")
		return
	}

	c.JSON(http.StatusOK, models.FetchSitemapResponse{
		Domain:  result.Domain,
		URLs:    result.URLs,
		Count:   len(result.URLs),
		Message: result.Message,
	})
}

// CheckIndex handles POST /api/check-index.
func (h *CheckHandler) CheckIndex(c *gin.Context) {
	var req models.CheckIndexRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	result, err := h.checks.Check(c.Request.Context(), req.URLs)
	if err != nil {
		respondError(c, h.logger, err, "Failed to check index status")
		return
	}

	c.JSON(http.StatusOK, result)
}

// List handles GET /api/domain-checks.
func (h *CheckHandler) List(c *gin.Context) {
	checks, err := h.store.List(c.Request.Context(), queryInt(c, "limit", defaultCheckListLimit))
	if err != nil {
		respondError(c, h.logger, err, "Failed to list domain checks")
		return
	}
	if checks == nil {
		checks = []models.DomainCheck{}
	}
	c.JSON(http.StatusOK, models.DomainChecksResponse{DomainChecks: checks})
}

// Get handles GET /api/domain-checks/:id.
func (h *CheckHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	check, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get domain check")
		return
	}
	c.JSON(http.StatusOK, check)
}

// Search handles GET /api/domain-checks/search.
func (h *CheckHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		badRequest(c, "Query parameter q is required")
		return
	}

	hits, err := h.checks.Search(q, queryInt(c, "limit", historysearch.DefaultLimit))
	if err != nil {
		respondError(c, h.logger, err, "Failed to search history")
		return
	}
	if hits == nil {
		hits = []models.SearchHit{}
	}
	c.JSON(http.StatusOK, models.SearchResponse{Query: q, Hits: hits})
}

// Export handles GET /api/export/:id as a CSV or XLSX attachment.
func (h *CheckHandler) Export(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	filter := grouping.ParseFilter(c.Query("filter"))
	format := export.ParseFormat(c.Query("format"))

	check, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "Failed to load domain check")
		return
	}

	filename := export.Filename(check.Domain, filter, h.now(), format)
	c.Header("Content-Type", format.ContentType())
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Status(http.StatusOK)

	if err := export.Write(c.Writer, format, check, filter); err != nil {
		// Headers are gone; all that is left is to log.
		h.logger.Error("Failed to write export",
			logger.Int64("check_id", id),
			logger.String("format", string(format)),
			logger.Error(err),
		)
		_ = c.Error(fmt.Errorf("export %d: %w", id, err))
		return
	}

	h.logger.Info("Exported domain check",
		logger.Int64("check_id", id),
		logger.String("filename", filename),
	)
}

// ClearHistory handles DELETE /api/clear-history.
func (h *CheckHandler) ClearHistory(c *gin.Context) {
	deleted, err := h.checks.Clear(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to clear history")
		return
	}

	c.JSON(http.StatusOK, models.ClearHistoryResponse{
		Success: true,
		Deleted: deleted,
		Message: fmt.Sprintf("Deleted %d domain checks", deleted.Domains),
	})
}
