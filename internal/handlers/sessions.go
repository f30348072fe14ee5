package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/index-checker/internal/logger"
	"github.com/jonesrussell/index-checker/internal/models"
)

const defaultSessionListLimit = 50

// SessionService manages editor sessions and snapshots.
type SessionService interface {
	Create(ctx context.Context, siteID *int64, domain string, posts []models.EditorPost) (*models.CreateSessionResponse, error)
	Get(ctx context.Context, id string) (*models.EditorSession, error)
	UpdatePost(ctx context.Context, id string, postID int64, field string, value any) error
	ReplacePosts(ctx context.Context, id string, posts []models.EditorPost) (int, error)
	List(ctx context.Context, filter models.SessionFilter) (map[string][]models.EditorSession, int, error)
	Delete(ctx context.Context, id string) error
	Snapshot(ctx context.Context, id, name string) (*models.SnapshotResult, error)
	RefreshOutgoingLinks(ctx context.Context, id string) (*models.RefreshLinksResponse, error)
}

// SessionHandler serves editor sessions.
type SessionHandler struct {
	svc    SessionService
	logger logger.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(svc SessionService, log logger.Logger) *SessionHandler {
	return &SessionHandler{svc: svc, logger: log}
}

// sessionID returns the :id parameter, answering 400 when it is malformed.
func sessionID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if !ValidSessionID(id) {
		badRequest(c, "Invalid session ID")
		return "", false
	}
	return id, true
}

// Create handles POST /api/editor-session.
func (h *SessionHandler) Create(c *gin.Context) {
	var req models.CreateSessionRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	resp, err := h.svc.Create(c.Request.Context(), req.WPSiteID, req.Domain, req.Posts)
	if err != nil {
		respondError(c, h.logger, err, "Failed to create editor session")
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Get handles GET /api/editor-session/:id.
func (h *SessionHandler) Get(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	session, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get editor session")
		return
	}
	if session.Posts == nil {
		session.Posts = []models.EditorPost{}
	}
	c.JSON(http.StatusOK, session)
}

// ReplacePosts handles PUT /api/editor-session/:id.
func (h *SessionHandler) ReplacePosts(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req models.ReplacePostsRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	total, err := h.svc.ReplacePosts(c.Request.Context(), id, req.Posts)
	if err != nil {
		respondError(c, h.logger, err, "Failed to update editor session")
		return
	}
	c.JSON(http.StatusOK, models.ReplacePostsResponse{Success: true, TotalPosts: total})
}

// UpdatePost handles PUT /api/editor-session/:id/post/:post_id.
func (h *SessionHandler) UpdatePost(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	postID, ok := paramID(c, "post_id")
	if !ok {
		return
	}

	var req models.UpdateSessionPostRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	if err := h.svc.UpdatePost(c.Request.Context(), id, postID, req.Field, req.Value); err != nil {
		respondError(c, h.logger, err, "Failed to update session post")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true})
}

// Snapshot handles POST /api/editor-session/:id/snapshot.
func (h *SessionHandler) Snapshot(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	// The body is optional; an empty one means the default name.
	var req models.SnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Debug("Invalid request body", logger.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := validateLength("session_name", req.SessionName, MaxNameLength); err != nil {
		respondError(c, h.logger, err, "Invalid snapshot name")
		return
	}

	result, err := h.svc.Snapshot(c.Request.Context(), id, req.SessionName)
	if err != nil {
		respondError(c, h.logger, err, "Failed to save snapshot")
		return
	}
	c.JSON(http.StatusOK, result)
}

// RefreshOutgoingLinks handles POST /api/editor-session/:id/refresh-outgoing-links.
func (h *SessionHandler) RefreshOutgoingLinks(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	resp, err := h.svc.RefreshOutgoingLinks(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "Failed to refresh outgoing links")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete handles DELETE /api/editor-session/:id.
func (h *SessionHandler) Delete(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err, "Failed to delete editor session")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: "Session deleted"})
}

// List handles GET /api/editor-sessions.
func (h *SessionHandler) List(c *gin.Context) {
	filter := models.SessionFilter{
		Limit: queryInt(c, "limit", defaultSessionListLimit),
	}
	if raw := c.Query("wp_site_id"); raw != "" {
		siteID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, "Invalid wp_site_id")
			return
		}
		filter.WPSiteID = &siteID
	}
	filter.SnapshotsOnly, _ = strconv.ParseBool(c.Query("snapshots_only"))

	sessions, total, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err, "Failed to list editor sessions")
		return
	}
	c.JSON(http.StatusOK, models.SessionsResponse{Sessions: sessions, Total: total})
}
