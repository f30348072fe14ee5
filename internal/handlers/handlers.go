// Package handlers implements the REST API endpoints.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/index-checker/internal/apierrors"
	"github.com/jonesrussell/index-checker/internal/auth"
	"github.com/jonesrussell/index-checker/internal/editorsession"
	"github.com/jonesrussell/index-checker/internal/indexcheck"
	"github.com/jonesrussell/index-checker/internal/logger"
	"github.com/jonesrussell/index-checker/internal/models"
)

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrNoActiveSite):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, models.ErrNoValidPosts),
		errors.Is(err, indexcheck.ErrNoURLs),
		errors.Is(err, editorsession.ErrNoSite):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInvalidCredentials),
		errors.Is(err, models.ErrUnauthorized),
		errors.Is(err, models.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrMailUnavailable):
		return http.StatusServiceUnavailable
	}
	if _, ok := apierrors.StatusCode(err); ok {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError writes err as {"error": ...}. Server errors are logged and
// replaced by fallback; client errors carry the error text.
func respondError(c *gin.Context, log logger.Logger, err error, fallback string) {
	status := statusFor(err)
	msg := err.Error()
	log = logger.FromContext(c.Request.Context(), log)

	switch {
	case status >= http.StatusInternalServerError && status != http.StatusBadGateway &&
		status != http.StatusServiceUnavailable:
		log.Error(fallback,
			logger.String("path", c.FullPath()),
			logger.Error(err),
		)
		msg = fallback
	case status == http.StatusBadGateway:
		log.Warn(fallback, logger.String("path", c.FullPath()), logger.Error(err))
		var httpErr *apierrors.HTTPError
		if errors.As(err, &httpErr) && httpErr.Message != "" {
			msg = httpErr.Message
		}
	default:
		log.Debug(fallback, logger.String("path", c.FullPath()), logger.Error(err))
	}

	c.JSON(status, models.ErrorResponse{Error: msg})
}

// bindJSON decodes the body into dst, answering 400 when it is malformed.
func bindJSON(c *gin.Context, log logger.Logger, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		log.Debug("Invalid request body", logger.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return false
	}
	return true
}

// badRequest answers 400 with msg.
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: msg})
}

// paramID parses a positive integer path parameter.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// queryInt returns a positive integer query parameter, or def when absent or invalid.
func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
