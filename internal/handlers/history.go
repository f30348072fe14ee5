package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/index-checker/internal/logger"
	"github.com/jonesrussell/index-checker/internal/models"
)

const defaultHistoryLimit = 50

// HistoryStore persists edit history entries.
type HistoryStore interface {
	Create(ctx context.Context, h *models.EditHistory) (int64, error)
	Update(ctx context.Context, id int64, snapshot json.RawMessage, total, edited *int) error
	List(ctx context.Context, limit int) ([]models.EditHistory, error)
	Get(ctx context.Context, id int64) (*models.EditHistory, error)
	Delete(ctx context.Context, id int64) error
}

// HistoryHandler serves the saved edit history.
type HistoryHandler struct {
	store  HistoryStore
	logger logger.Logger
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(store HistoryStore, log logger.Logger) *HistoryHandler {
	return &HistoryHandler{store: store, logger: log}
}

// postCount returns the length of a JSON array, or 0 for anything else.
func postCount(raw json.RawMessage) int {
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		return 0
	}
	return len(items)
}

// List handles GET /api/history.
func (h *HistoryHandler) List(c *gin.Context) {
	history, err := h.store.List(c.Request.Context(), queryInt(c, "limit", defaultHistoryLimit))
	if err != nil {
		respondError(c, h.logger, err, "Failed to list edit history")
		return
	}
	if history == nil {
		history = []models.EditHistory{}
	}
	c.JSON(http.StatusOK, models.HistoryListResponse{History: history})
}

// Create handles POST /api/history.
func (h *HistoryHandler) Create(c *gin.Context) {
	var req models.HistoryRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	name := strings.TrimSpace(req.SessionName)
	if name == "" {
		badRequest(c, "session_name is required")
		return
	}
	if err := validateLength("session_name", name, MaxNameLength); err != nil {
		respondError(c, h.logger, err, "Invalid session name")
		return
	}

	entry := &models.EditHistory{
		WPSiteID:     req.WPSiteID,
		SessionName:  name,
		SnapshotData: req.Posts,
		TotalPosts:   postCount(req.Posts),
	}
	if req.TotalPosts != nil {
		entry.TotalPosts = *req.TotalPosts
	}
	if req.EditedPosts != nil {
		entry.EditedPosts = *req.EditedPosts
	}

	id, err := h.store.Create(c.Request.Context(), entry)
	if err != nil {
		respondError(c, h.logger, err, "Failed to save edit history")
		return
	}

	h.logger.Info("Edit history saved",
		logger.Int64("history_id", id),
		logger.String("session_name", name),
	)

	c.JSON(http.StatusCreated, models.HistoryCreatedResponse{
		Success:   true,
		HistoryID: id,
		Message:   "Edit session saved",
	})
}

// Get handles GET /api/history/:id.
func (h *HistoryHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	entry, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get edit history")
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Update handles PUT /api/history/:id.
func (h *HistoryHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req models.HistoryRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	total := req.TotalPosts
	if total == nil && len(req.Posts) > 0 {
		n := postCount(req.Posts)
		total = &n
	}

	if err := h.store.Update(c.Request.Context(), id, req.Posts, total, req.EditedPosts); err != nil {
		respondError(c, h.logger, err, "Failed to update edit history")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: "Edit session updated"})
}

// Delete handles DELETE /api/history/:id.
func (h *HistoryHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err, "Failed to delete edit history")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: "Edit session deleted"})
}
