package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jonesrussell/index-checker/internal/models"
)

// Login authenticates and, on success, uses the returned token for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	var out models.LoginResponse
	req := models.LoginRequest{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, req, &out); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	c.SetToken(out.Token)
	return &out, nil
}

// Logout revokes the current token and forgets it.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	c.SetToken("")
	return nil
}

// Verify returns the user the current token belongs to.
func (c *Client) Verify(ctx context.Context) (*models.User, error) {
	var out models.VerifyResponse
	if err := c.do(ctx, http.MethodGet, "/api/auth/verify", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	return &out.User, nil
}

// ChangePassword replaces the admin password.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	req := models.ChangePasswordRequest{CurrentPassword: current, NewPassword: next}
	if err := c.do(ctx, http.MethodPost, "/api/auth/change-password", nil, req, nil); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}

// RequestReset asks the server to mail a password reset token.
func (c *Client) RequestReset(ctx context.Context, username, email string) error {
	req := models.RequestResetRequest{Username: username, Email: email}
	if err := c.do(ctx, http.MethodPost, "/api/auth/request-reset", nil, req, nil); err != nil {
		return fmt.Errorf("request password reset: %w", err)
	}
	return nil
}

// ResetPassword sets a new password using a mailed reset token.
func (c *Client) ResetPassword(ctx context.Context, username, token, next string) error {
	req := models.ResetPasswordRequest{Username: username, ResetToken: token, NewPassword: next}
	if err := c.do(ctx, http.MethodPost, "/api/auth/reset-password", nil, req, nil); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}
