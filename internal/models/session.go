package models

import (
	"encoding/json"
	"time"
)

// EditorSession is a server-side working copy of the posts being edited for a domain.
// Snapshots are named, persisted copies (IsSnapshot) that survive cleanup.
type EditorSession struct {
	SessionID    string       `db:"session_id"    json:"session_id"`
	WPSiteID     *int64       `db:"wp_site_id"    json:"wp_site_id"`
	Domain       string       `db:"domain"        json:"domain"`
	SessionName  *string      `db:"session_name"  json:"session_name"`
	TotalPosts   int          `db:"total_posts"   json:"total_posts"`
	IsSnapshot   bool         `db:"is_snapshot"   json:"is_snapshot"`
	CreatedAt    time.Time    `db:"created_at"    json:"created_at"`
	LastAccessed time.Time    `db:"last_accessed" json:"last_accessed"`
	Posts        []EditorPost `db:"-"             json:"posts,omitempty"`
}

// EditorPost is one post row of an editor session.
type EditorPost struct {
	PostID        int64          `json:"id"`
	URL           string         `json:"url"`
	Title         string         `json:"title"`
	Status        string         `json:"status"`
	OutgoingURL   string         `json:"outgoing_url,omitempty"`
	OutgoingLinks []OutgoingLink `json:"outgoing_links"`
	DateModified  string         `json:"date_modified,omitempty"`
}

// EditorPostFromPost converts a fetched post into a session row.
func EditorPostFromPost(p *Post) EditorPost {
	id := p.ID
	if id == 0 {
		id = p.PostID
	}
	links := p.OutgoingLinks
	if links == nil {
		links = []OutgoingLink{}
	}
	return EditorPost{
		PostID:        id,
		URL:           p.URL,
		Title:         p.Title,
		Status:        p.Status,
		OutgoingURL:   p.OutgoingURL,
		OutgoingLinks: links,
		DateModified:  p.DateModified,
	}
}

// ToPost converts a session row back into a post.
func (e *EditorPost) ToPost() Post {
	return Post{
		ID:            e.PostID,
		URL:           e.URL,
		Title:         e.Title,
		Status:        e.Status,
		OutgoingURL:   e.OutgoingURL,
		OutgoingLinks: e.OutgoingLinks,
		DateModified:  e.DateModified,
	}
}

// Session post fields that may be updated one at a time.
const (
	FieldTitle         = "title"
	FieldStatus        = "status"
	FieldOutgoingURL   = "outgoing_url"
	FieldOutgoingLinks = "outgoing_links"
	FieldDateModified  = "date_modified"
)

// IsSessionField reports whether field may be updated on a session post.
func IsSessionField(field string) bool {
	switch field {
	case FieldTitle, FieldStatus, FieldOutgoingURL, FieldOutgoingLinks, FieldDateModified:
		return true
	default:
		return false
	}
}

// SessionFilter narrows session listings.
type SessionFilter struct {
	WPSiteID      *int64
	SnapshotsOnly bool
	Limit         int
}

// Snapshot outcomes.
const (
	SnapshotCreated     = "created"
	SnapshotOverwritten = "overwritten"
)

// SnapshotResult is returned by the snapshot operation.
type SnapshotResult struct {
	SnapshotID string `json:"snapshot_id"`
	Action     string `json:"action"`
	Message    string `json:"message"`
}

// EditHistory is a saved copy of an edit session's posts.
type EditHistory struct {
	ID           int64           `db:"id"            json:"id"`
	WPSiteID     *int64          `db:"wp_site_id"    json:"wp_site_id"`
	SessionName  string          `db:"session_name"  json:"session_name"`
	TotalPosts   int             `db:"total_posts"   json:"total_posts"`
	EditedPosts  int             `db:"edited_posts"  json:"edited_posts"`
	SnapshotData json.RawMessage `db:"snapshot_data" json:"snapshot_data,omitempty"`
	CreatedAt    time.Time       `db:"created_at"    json:"created_at"`
	UpdatedAt    *time.Time      `db:"updated_at"    json:"updated_at"`
}
