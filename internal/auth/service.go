// Package auth authenticates the single admin user with revocable bearer tokens.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jonesrussell/index-checker/internal/config"
	"github.com/jonesrussell/index-checker/internal/kvstore"
	"github.com/jonesrussell/index-checker/internal/logger"
	"github.com/jonesrussell/index-checker/internal/models"
)

const (
	DefaultTokenTTL = 7 * 24 * time.Hour
	DefaultResetTTL = time.Hour

	resetKeyPrefix = "auth:reset:"
	resetSubject   = "Index Checker - Password Reset Request"
)

// Claims are the JWT claims of an admin token. ID carries the jti.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenStore tracks issued token ids.
type TokenStore interface {
	Create(ctx context.Context, token *models.AuthToken) error
	Get(ctx context.Context, jti string) (*models.AuthToken, error)
	Delete(ctx context.Context, jti string) error
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// CredentialStore holds the password hash override.
type CredentialStore interface {
	PasswordHash(ctx context.Context) (string, error)
	SetPasswordHash(ctx context.Context, hash string) error
}

type resetEntry struct {
	Username string `json:"username"`
}

// Service implements login, token verification and password management.
type Service struct {
	cfg    config.AuthConfig
	tokens TokenStore
	creds  CredentialStore
	resets kvstore.Store
	mailer Mailer
	now    func() time.Time
	log    logger.Logger
}

// Deps groups the collaborators of a Service. Mailer may be nil.
type Deps struct {
	Config      config.AuthConfig
	Tokens      TokenStore
	Credentials CredentialStore
	Resets      kvstore.Store
	Mailer      Mailer
	Clock       func() time.Time
	Logger      logger.Logger
}

// NewService creates a Service.
func NewService(d Deps) *Service {
	s := &Service{
		cfg:    d.Config,
		tokens: d.Tokens,
		creds:  d.Credentials,
		resets: d.Resets,
		mailer: d.Mailer,
		now:    d.Clock,
		log:    d.Logger,
	}
	if s.cfg.AdminUsername == "" {
		s.cfg.AdminUsername = "admin"
	}
	if s.cfg.TokenTTL <= 0 {
		s.cfg.TokenTTL = DefaultTokenTTL
	}
	if s.cfg.ResetTTL <= 0 {
		s.cfg.ResetTTL = DefaultResetTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = logger.NewNop()
	}
	if s.resets == nil {
		s.resets = kvstore.NewMemory()
	}
	return s
}

// passwordHash resolves the admin hash: the stored override, then the
// configured hash, then the default password.
func (s *Service) passwordHash(ctx context.Context) (string, error) {
	hash, err := s.creds.PasswordHash(ctx)
	switch {
	case err == nil && hash != "":
		return hash, nil
	case err != nil && !errors.Is(err, models.ErrNotFound):
		return "", err
	}

	if s.cfg.AdminPasswordHash != "" {
		return s.cfg.AdminPasswordHash, nil
	}

	s.log.Warn("No admin password configured, using the default password")
	return LegacyHash(DefaultPassword), nil
}

func (s *Service) checkAdmin(ctx context.Context, username, password string) error {
	hash, err := s.passwordHash(ctx)
	if err != nil {
		return err
	}
	if username != s.cfg.AdminUsername || !CheckPassword(hash, password) {
		return models.ErrInvalidCredentials
	}
	return nil
}

// Login checks the admin credentials and issues a token.
func (s *Service) Login(ctx context.Context, username, password string) (*models.LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", models.ErrInvalidInput)
	}

	if err := s.checkAdmin(ctx, username, password); err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			s.log.Warn("Login failed", logger.String("username", username))
		}
		return nil, err
	}

	issued := s.now().UTC()
	expires := issued.Add(s.cfg.TokenTTL)
	claims := Claims{
		Role: models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	if err := s.tokens.Create(ctx, &models.AuthToken{
		Token:     claims.ID,
		Username:  username,
		Role:      models.RoleAdmin,
		CreatedAt: issued,
		ExpiresAt: expires,
	}); err != nil {
		return nil, err
	}

	s.log.Info("Admin logged in", logger.String("username", username))

	return &models.LoginResult{
		Token:     signed,
		User:      models.User{Username: username, Role: models.RoleAdmin},
		ExpiresAt: expires,
	}, nil
}

func (s *Service) parse(token string, opts ...jwt.ParserOption) (*Claims, error) {
	opts = append(opts, jwt.WithTimeFunc(s.now))
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(s.cfg.JWTSecret), nil
	}, opts...)
	if err != nil || !parsed.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.ErrTokenExpired
		}
		return nil, models.ErrUnauthorized
	}
	if claims.ID == "" {
		return nil, models.ErrUnauthorized
	}
	return claims, nil
}

// Verify returns the user behind a token. The token must be correctly signed
// and its id must still be stored.
func (s *Service) Verify(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}

	stored, err := s.tokens.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrTokenExpired
		}
		return nil, err
	}

	return &models.User{Username: stored.Username, Role: stored.Role}, nil
}

// Logout revokes token. An expired token is revoked all the same.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.parse(token, jwt.WithoutClaimsValidation())
	if err != nil {
		return err
	}
	if err := s.tokens.Delete(ctx, claims.ID); err != nil {
		return err
	}
	s.log.Info("Admin logged out", logger.String("username", claims.Subject))
	return nil
}

func validNewPassword(password string) error {
	n := len([]rune(password))
	if n < MinPasswordLength {
		return fmt.Errorf("%w: new password must be at least %d characters", models.ErrInvalidInput, MinPasswordLength)
	}
	if n > MaxPasswordLength {
		return fmt.Errorf("%w: new password must be at most %d characters", models.ErrInvalidInput, MaxPasswordLength)
	}
	return nil
}

func (s *Service) setPassword(ctx context.Context, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return s.creds.SetPasswordHash(ctx, hash)
}

// ChangePassword replaces the admin password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, current, next string) error {
	if current == "" || next == "" {
		return fmt.Errorf("%w: current and new password are required", models.ErrInvalidInput)
	}
	if err := validNewPassword(next); err != nil {
		return err
	}

	hash, err := s.passwordHash(ctx)
	if err != nil {
		return err
	}
	if !CheckPassword(hash, current) {
		return models.ErrInvalidCredentials
	}

	if err := s.setPassword(ctx, next); err != nil {
		return err
	}
	s.log.Info("Admin password changed")
	return nil
}

func newResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// RequestReset mails a one-hour, single-use reset token to email.
func (s *Service) RequestReset(ctx context.Context, username, email string) error {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" {
		return fmt.Errorf("%w: username and email are required", models.ErrInvalidInput)
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return fmt.Errorf("%w: invalid email address", models.ErrInvalidInput)
	}
	if username != s.cfg.AdminUsername {
		return fmt.Errorf("%w: user %q", models.ErrNotFound, username)
	}
	if s.mailer == nil {
		return ErrMailUnavailable
	}

	token, err := newResetToken()
	if err != nil {
		return err
	}
	if err := s.resets.Set(ctx, resetKeyPrefix+token, resetEntry{Username: username}, s.cfg.ResetTTL); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	if err := s.mailer.Send(ctx, email, resetSubject, resetEmail(token)); err != nil {
		_ = s.resets.Delete(ctx, resetKeyPrefix+token)
		return err
	}

	s.log.Info("Password reset requested", logger.String("username", username))
	return nil
}

// ResetPassword sets a new password using a mailed reset token. The token is consumed.
func (s *Service) ResetPassword(ctx context.Context, username, token, next string) error {
	username = strings.TrimSpace(username)
	token = strings.TrimSpace(token)
	if username == "" || token == "" || next == "" {
		return fmt.Errorf("%w: username, reset token and new password are required", models.ErrInvalidInput)
	}
	if err := validNewPassword(next); err != nil {
		return err
	}

	var entry resetEntry
	found, err := s.resets.Get(ctx, resetKeyPrefix+token, &entry)
	if err != nil {
		return fmt.Errorf("load reset token: %w", err)
	}
	if !found || entry.Username != username {
		return models.ErrInvalidCredentials
	}

	if err := s.resets.Delete(ctx, resetKeyPrefix+token); err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	if err := s.setPassword(ctx, next); err != nil {
		return err
	}

	s.log.Info("Admin password reset", logger.String("username", username))
	return nil
}

// DeleteExpired purges stored tokens past their expiry.
func (s *Service) DeleteExpired(ctx context.Context) error {
	n, err := s.tokens.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Info("Expired auth tokens removed", logger.Int64("count", n))
	}
	return nil
}
