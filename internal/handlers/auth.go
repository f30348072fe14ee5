package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/index-checker/internal/auth"
	"github.com/jonesrussell/index-checker/internal/logger"
	"github.com/jonesrussell/index-checker/internal/models"
)

// AuthService authenticates the admin user.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*models.LoginResult, error)
	Logout(ctx context.Context, token string) error
	ChangePassword(ctx context.Context, current, next string) error
	RequestReset(ctx context.Context, username, email string) error
	ResetPassword(ctx context.Context, username, token, next string) error
}

// AuthHandler serves login, logout and password management.
type AuthHandler struct {
	svc    AuthService
	logger logger.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(svc AuthService, log logger.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: log}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	result, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, h.logger, err, "Login failed")
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{
		Success:   true,
		Token:     result.Token,
		User:      result.User,
		ExpiresAt: result.ExpiresAt,
	})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := auth.BearerToken(c.GetHeader("Authorization"))
	if err := h.svc.Logout(c.Request.Context(), token); err != nil {
		respondError(c, h.logger, err, "Logout failed")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: "Logged out"})
}

// Verify handles GET /api/auth/verify. RequireAuth has already checked the token.
func (h *AuthHandler) Verify(c *gin.Context) {
	user, ok := auth.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid or expired token"})
		return
	}
	c.JSON(http.StatusOK, models.VerifyResponse{Success: true, User: *user})
}

// ChangePassword handles POST /api/auth/change-password.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req models.ChangePasswordRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	if err := h.svc.ChangePassword(c.Request.Context(), req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, h.logger, err, "Failed to change password")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: "Password changed"})
}

// RequestReset handles POST /api/auth/request-reset.
func (h *AuthHandler) RequestReset(c *gin.Context) {
	var req models.RequestResetRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	if err := h.svc.RequestReset(c.Request.Context(), req.Username, req.Email); err != nil {
		respondError(c, h.logger, err, "Failed to send reset email")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: "Reset token sent"})
}

// ResetPassword handles POST /api/auth/reset-password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	err := h.svc.ResetPassword(c.Request.Context(), req.Username, req.ResetToken, req.NewPassword)
	if err != nil {
		respondError(c, h.logger, err, "Failed to reset password")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: "Password reset"})
}
