package models

import (
	"net/url"
	"strings"
	"time"
)

// WPSite is a stored WordPress site configuration. At most one site is active.
type WPSite struct {
	ID                int64     `db:"id"                 json:"id"`
	Name              string    `db:"name"               json:"name"`
	SiteURL           string    `db:"site_url"           json:"site_url"`
	Username          string    `db:"username"           json:"username"`
	AppPassword       string    `db:"app_password"       json:"app_password"` //nolint:gosec // WordPress application password
	WordPressPassword *string   `db:"wordpress_password" json:"wordpress_password,omitempty"`
	WordPressURL      *string   `db:"wordpress_url"      json:"wordpress_url,omitempty"`
	IsActive          bool      `db:"is_active"          json:"is_active"`
	CreatedAt         time.Time `db:"created_at"         json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"         json:"updated_at"`
}

// WPSiteInput is the create/update payload. Nil fields are left unchanged on update.
type WPSiteInput struct {
	Name              *string `json:"name"`
	SiteURL           *string `json:"site_url"`
	Username          *string `json:"username"`
	AppPassword       *string `json:"app_password"`
	WordPressPassword *string `json:"wordpress_password"`
	WordPressURL      *string `json:"wordpress_url"`
}

// Credentials are what the WordPress REST client needs to talk to a site.
type Credentials struct {
	SiteURL     string `json:"site_url"`
	Username    string `json:"username"`
	AppPassword string `json:"app_password"` //nolint:gosec // WordPress application password
}

// Credentials returns the site's REST credentials.
func (s *WPSite) Credentials() Credentials {
	return Credentials{SiteURL: s.SiteURL, Username: s.Username, AppPassword: s.AppPassword}
}

// OutgoingLink is an external link found in post content.
type OutgoingLink struct {
	Domain string `json:"domain"`
	Anchor string `json:"anchor"`
	URL    string `json:"url"`
}

// Post is a WordPress post as exchanged between the server and its clients.
// Error is set, and ID is zero, when the post could not be fetched.
type Post struct {
	ID             int64          `json:"id,omitempty"`
	PostID         int64          `json:"post_id,omitempty"`
	URL            string         `json:"url"`
	Title          string         `json:"title,omitempty"`
	Content        string         `json:"content,omitempty"`
	Excerpt        string         `json:"excerpt,omitempty"`
	Status         string         `json:"status,omitempty"`
	Categories     []int64        `json:"categories,omitempty"`
	FeaturedImage  string         `json:"featured_image,omitempty"`
	SEOTitle       string         `json:"seo_title,omitempty"`
	SEODescription string         `json:"seo_description,omitempty"`
	DateModified   string         `json:"date_modified,omitempty"`
	AuthorID       int64          `json:"author_id,omitempty"`
	OutgoingURL    string         `json:"outgoing_url,omitempty"`
	OutgoingLinks  []OutgoingLink `json:"outgoing_links,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// Valid reports whether p carries a post identifier and no error marker.
func (p *Post) Valid() bool {
	return p.ID != 0 && p.Error == ""
}

// Hostname returns the host of rawURL, or "" when it cannot be parsed.
func Hostname(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// NormalizeDomain strips scheme, path, port and a leading "www.".
func NormalizeDomain(raw string) string {
	d := strings.TrimSpace(strings.ToLower(raw))
	if !strings.Contains(d, "://") {
		d = "http://" + d
	}
	return strings.TrimPrefix(Hostname(d), "www.")
}

// PostUpdate is the set of fields a client may change on one post.
// OutgoingURL is stored locally and never sent to WordPress.
type PostUpdate struct {
	Title          *string  `json:"title,omitempty"`
	Content        *string  `json:"content,omitempty"`
	Excerpt        *string  `json:"excerpt,omitempty"`
	Status         *string  `json:"status,omitempty"`
	Categories     *[]int64 `json:"categories,omitempty"`
	SEOTitle       *string  `json:"seo_title,omitempty"`
	SEODescription *string  `json:"seo_description,omitempty"`
	OutgoingURL    *string  `json:"outgoing_url,omitempty"`
}

// HasRemoteFields reports whether any field must be pushed to WordPress.
func (u *PostUpdate) HasRemoteFields() bool {
	return u.Title != nil || u.Content != nil || u.Excerpt != nil || u.Status != nil ||
		u.Categories != nil || u.SEOTitle != nil || u.SEODescription != nil
}

// Category is a WordPress category.
type Category struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

// WPUser is the authenticated WordPress user returned by a connection test.
type WPUser struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}
