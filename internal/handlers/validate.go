package handlers

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jonesrussell/index-checker/internal/models"
)

// Input limits.
const (
	MaxURLLength         = 2048
	MaxNameLength        = 200
	MaxUsernameLength    = 100
	MaxAppPasswordLength = 200
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)

// ValidSessionID reports whether id looks like an editor session id.
func ValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// ValidateURL checks that raw is an absolute http(s) URL of bounded length.
func ValidateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: URL is required", models.ErrInvalidInput)
	}
	if len(raw) > MaxURLLength {
		return fmt.Errorf("%w: URL exceeds %d characters", models.ErrInvalidInput, MaxURLLength)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: URL must be an http or https address", models.ErrInvalidInput)
	}
	return nil
}

func validateLength(field, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return fmt.Errorf("%w: %s exceeds %d characters", models.ErrInvalidInput, field, limit)
	}
	return nil
}

// ValidateSiteInput checks a site payload. On create every field but the
// optional WordPress login is required.
func ValidateSiteInput(in *models.WPSiteInput, create bool) error {
	required := map[string]*string{
		"name":         in.Name,
		"site_url":     in.SiteURL,
		"username":     in.Username,
		"app_password": in.AppPassword,
	}
	if create {
		for _, field := range []string{"name", "site_url", "username", "app_password"} {
			if v := required[field]; v == nil || strings.TrimSpace(*v) == "" {
				return fmt.Errorf("%w: %s is required", models.ErrInvalidInput, field)
			}
		}
	}

	if in.Name != nil {
		if err := validateLength("name", *in.Name, MaxNameLength); err != nil {
			return err
		}
	}
	if in.SiteURL != nil {
		if err := ValidateURL(strings.TrimSpace(*in.SiteURL)); err != nil {
			return err
		}
	}
	if in.Username != nil {
		if err := validateLength("username", *in.Username, MaxUsernameLength); err != nil {
			return err
		}
	}
	if in.AppPassword != nil {
		if err := validateLength("app_password", *in.AppPassword, MaxAppPasswordLength); err != nil {
			return err
		}
	}
	if in.WordPressURL != nil && *in.WordPressURL != "" {
		if err := ValidateURL(*in.WordPressURL); err != nil {
			return err
		}
	}
	return nil
}

// ValidateCredentials checks the credentials sent with WordPress proxy calls.
func ValidateCredentials(creds *models.Credentials) error {
	if creds.SiteURL == "" || creds.Username == "" || creds.AppPassword == "" {
		return fmt.Errorf("%w: site_url, username and app_password are required", models.ErrInvalidInput)
	}
	if err := ValidateURL(creds.SiteURL); err != nil {
		return err
	}
	if err := validateLength("username", creds.Username, MaxUsernameLength); err != nil {
		return err
	}
	return validateLength("app_password", creds.AppPassword, MaxAppPasswordLength)
}
