package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/index-checker/internal/logger"
	"github.com/jonesrussell/index-checker/internal/models"
)

// SiteStore persists WordPress site configurations.
type SiteStore interface {
	List(ctx context.Context) ([]models.WPSite, error)
	Get(ctx context.Context, id int64) (*models.WPSite, error)
	GetActive(ctx context.Context) (*models.WPSite, error)
	Create(ctx context.Context, in *models.WPSiteInput) (*models.WPSite, error)
	Update(ctx context.Context, id int64, in *models.WPSiteInput) (*models.WPSite, error)
	Delete(ctx context.Context, id int64) error
	SetActive(ctx context.Context, id int64) (*models.WPSite, error)
	FindByDomain(ctx context.Context, domain string) (*models.WPSite, error)
}

// SiteHandler manages stored WordPress sites.
type SiteHandler struct {
	store  SiteStore
	logger logger.Logger
}

// NewSiteHandler creates a SiteHandler.
func NewSiteHandler(store SiteStore, log logger.Logger) *SiteHandler {
	return &SiteHandler{store: store, logger: log}
}

func trimInput(in *models.WPSiteInput) {
	for _, p := range []*string{in.Name, in.SiteURL, in.Username, in.WordPressURL} {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	if in.SiteURL != nil {
		*in.SiteURL = strings.TrimRight(*in.SiteURL, "/")
	}
}

// List handles GET /api/wp-sites.
func (h *SiteHandler) List(c *gin.Context) {
	sites, err := h.store.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to list sites")
		return
	}
	if sites == nil {
		sites = []models.WPSite{}
	}
	c.JSON(http.StatusOK, models.WPSitesResponse{Success: true, Sites: sites})
}

// Active handles GET /api/wp-sites/active. No active site is a 200 with a null site.
func (h *SiteHandler) Active(c *gin.Context) {
	site, err := h.store.GetActive(c.Request.Context())
	if err != nil {
		if errors.Is(err, models.ErrNoActiveSite) {
			c.JSON(http.StatusOK, models.WPSiteResponse{Success: true, Message: "No active site"})
			return
		}
		respondError(c, h.logger, err, "Failed to get active site")
		return
	}
	c.JSON(http.StatusOK, models.WPSiteResponse{Success: true, Site: site})
}

// Create handles POST /api/wp-sites.
func (h *SiteHandler) Create(c *gin.Context) {
	var in models.WPSiteInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	trimInput(&in)
	if err := ValidateSiteInput(&in, true); err != nil {
		respondError(c, h.logger, err, "Invalid site")
		return
	}

	site, err := h.store.Create(c.Request.Context(), &in)
	if err != nil {
		respondError(c, h.logger, err, "Failed to create site")
		return
	}

	h.logger.Info("WordPress site created",
		logger.Int64("site_id", site.ID),
		logger.String("site_url", site.SiteURL),
	)
	c.JSON(http.StatusCreated, models.WPSiteResponse{Success: true, Site: site, Message: "Site created"})
}

// Update handles PUT /api/wp-sites/:id.
func (h *SiteHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var in models.WPSiteInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	trimInput(&in)
	if err := ValidateSiteInput(&in, false); err != nil {
		respondError(c, h.logger, err, "Invalid site")
		return
	}

	site, err := h.store.Update(c.Request.Context(), id, &in)
	if err != nil {
		respondError(c, h.logger, err, "Failed to update site")
		return
	}
	c.JSON(http.StatusOK, models.WPSiteResponse{Success: true, Site: site, Message: "Site updated"})
}

// Delete handles DELETE /api/wp-sites/:id.
func (h *SiteHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err, "Failed to delete site")
		return
	}

	h.logger.Info("WordPress site deleted", logger.Int64("site_id", id))
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: "Site deleted"})
}

// SetActive handles PUT /api/wp-sites/:id/active.
func (h *SiteHandler) SetActive(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	site, err := h.store.SetActive(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "Failed to activate site")
		return
	}
	c.JSON(http.StatusOK, models.WPSiteResponse{Success: true, Site: site, Message: "Site activated"})
}

// FindByDomain handles POST /api/wp-sites/find-by-domain.
func (h *SiteHandler) FindByDomain(c *gin.Context) {
	var req models.FindByDomainRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	if strings.TrimSpace(req.Domain) == "" {
		badRequest(c, "Domain is required")
		return
	}

	site, err := h.store.FindByDomain(c.Request.Context(), req.Domain)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			fail := false
			c.JSON(http.StatusNotFound, models.ErrorResponse{Success: &fail, Error: "No site configured for this domain"})
			return
		}
		respondError(c, h.logger, err, "Failed to find site")
		return
	}
	c.JSON(http.StatusOK, models.WPSiteResponse{Success: true, Site: site})
}
