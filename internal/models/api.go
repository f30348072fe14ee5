package models

import (
	"encoding/json"
	"time"
)

// Request and response bodies of the REST API. The server handlers and the
// API client both use these so the two sides cannot drift.

type FetchSitemapRequest struct {
	Domain  string `json:"domain"`
	MaxURLs int    `json:"max_urls,omitempty"`
}

type FetchSitemapResponse struct {
	Domain  string   `json:"domain"`
	URLs    []string `json:"urls"`
	Count   int      `json:"count"`
	Message string   `json:"message,omitempty"`
}

type CheckIndexRequest struct {
	URLs []string `json:"urls"`
}

// CheckIndexResult is what the server returns for one check run.
type CheckIndexResult struct {
	DomainGroups   map[string][]CheckedURL `json:"domain_groups"`
	DomainCheckIDs map[string]int64        `json:"domain_check_ids"`
}

type DomainChecksResponse struct {
	DomainChecks []DomainCheck `json:"domain_checks"`
}

// SearchHit is one history search match.
type SearchHit struct {
	CheckID int64   `json:"check_id"`
	Domain  string  `json:"domain"`
	URL     string  `json:"url"`
	Status  string  `json:"status"`
	Score   float64 `json:"score"`
}

type SearchResponse struct {
	Query string      `json:"query"`
	Hits  []SearchHit `json:"hits"`
}

type ClearHistoryResponse struct {
	Success bool        `json:"success"`
	Deleted ClearResult `json:"deleted"`
	Message string      `json:"message,omitempty"`
}

// SuccessResponse is the generic {"success": true, "message": ...} body.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type HistoryListResponse struct {
	History []EditHistory `json:"history"`
}

// HistoryRequest creates or updates an edit history entry. Posts is stored verbatim.
type HistoryRequest struct {
	WPSiteID    *int64          `json:"wp_site_id,omitempty"`
	SessionName string          `json:"session_name,omitempty"`
	Posts       json.RawMessage `json:"posts,omitempty"`
	TotalPosts  *int            `json:"total_posts,omitempty"`
	EditedPosts *int            `json:"edited_posts,omitempty"`
}

type HistoryCreatedResponse struct {
	Success   bool   `json:"success"`
	HistoryID int64  `json:"history_id"`
	Message   string `json:"message"`
}

// WordPressPostsRequest fetches posts by URL from the given site.
type WordPressPostsRequest struct {
	Credentials
	URLs     []string `json:"urls"`
	WPSiteID *int64   `json:"wp_site_id,omitempty"`
}

type WordPressPostsResponse struct {
	Total int    `json:"total"`
	Posts []Post `json:"posts"`
}

// WordPressUpdateRequest updates one post. URL is only used to record outgoing_url locally.
type WordPressUpdateRequest struct {
	Credentials
	PostUpdate
	WPSiteID *int64 `json:"wp_site_id,omitempty"`
	URL      string `json:"url,omitempty"`
}

type WordPressUpdateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Post    *Post  `json:"post,omitempty"`
}

type TestConnectionResponse struct {
	Success bool    `json:"success"`
	Message string  `json:"message,omitempty"`
	User    *WPUser `json:"user,omitempty"`
}

type CategoriesResponse struct {
	Categories []Category `json:"categories"`
}

type WPSitesResponse struct {
	Success bool     `json:"success"`
	Sites   []WPSite `json:"sites"`
}

type WPSiteResponse struct {
	Success bool    `json:"success"`
	Site    *WPSite `json:"site"`
	Message string  `json:"message,omitempty"`
}

type FindByDomainRequest struct {
	Domain string `json:"domain"`
}

type CreateSessionRequest struct {
	WPSiteID *int64       `json:"wp_site_id,omitempty"`
	Domain   string       `json:"domain"`
	Posts    []EditorPost `json:"posts"`
}

type CreateSessionResponse struct {
	SessionID  string `json:"session_id"`
	Domain     string `json:"domain"`
	TotalPosts int    `json:"total_posts"`
}

type ReplacePostsRequest struct {
	Posts []EditorPost `json:"posts"`
}

type ReplacePostsResponse struct {
	Success    bool `json:"success"`
	TotalPosts int  `json:"total_posts"`
}

type UpdateSessionPostRequest struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

type SnapshotRequest struct {
	SessionName string `json:"session_name"`
}

type RefreshLinksResponse struct {
	Success      bool           `json:"success"`
	UpdatedCount int            `json:"updated_count"`
	TotalPosts   int            `json:"total_posts"`
	Session      *EditorSession `json:"session,omitempty"`
}

// SessionsResponse lists sessions grouped by domain.
type SessionsResponse struct {
	Sessions map[string][]EditorSession `json:"sessions"`
	Total    int                        `json:"total"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"` //nolint:gosec // request field
}

type LoginResponse struct {
	Success   bool      `json:"success"`
	Token     string    `json:"token"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

type VerifyResponse struct {
	Success bool `json:"success"`
	User    User `json:"user"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"` //nolint:gosec // request field
	NewPassword     string `json:"new_password"`     //nolint:gosec // request field
}

type RequestResetRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type ResetPasswordRequest struct {
	Username    string `json:"username"`
	ResetToken  string `json:"reset_token"`
	NewPassword string `json:"new_password"` //nolint:gosec // request field
}

// ErrorResponse is the error body. Success is only set on routes that report it.
type ErrorResponse struct {
	Success *bool  `json:"success,omitempty"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}
