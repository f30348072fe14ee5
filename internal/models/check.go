// Package models holds the domain types shared by the server, the API client and the CLI.
package models

import (
	"strings"
	"time"
)

// IndexStatus is the Google index state of a URL.
type IndexStatus string

const (
	StatusIndexed    IndexStatus = "Indexed"
	StatusNotIndexed IndexStatus = "Not Indexed"
	StatusError      IndexStatus = "Error"
)

// Marker returns the display marker carried alongside the status.
func (s IndexStatus) Marker() string {
	switch s {
	case StatusIndexed:
		return "✅"
	case StatusNotIndexed:
		return "❌"
	default:
		return "⚠️"
	}
}

// Label returns the status with its marker, e.g. "Indexed ✅".
func (s IndexStatus) Label() string {
	return string(s) + " " + s.Marker()
}

// ParseIndexStatus accepts a bare status or a marker label. Unknown values map to StatusError.
func ParseIndexStatus(raw string) IndexStatus {
	s := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(s, string(StatusNotIndexed)):
		return StatusNotIndexed
	case strings.HasPrefix(s, string(StatusIndexed)):
		return StatusIndexed
	default:
		return StatusError
	}
}

// UnmarshalText lets JSON payloads use either form.
func (s *IndexStatus) UnmarshalText(text []byte) error {
	*s = ParseIndexStatus(string(text))
	return nil
}

// CheckedURL is the result of one index check. Immutable once produced.
type CheckedURL struct {
	URL       string      `db:"url"        json:"url"`
	Status    IndexStatus `db:"status"     json:"status"`
	Details   string      `db:"-"          json:"details,omitempty"`
	CheckedAt time.Time   `db:"checked_at" json:"checked_at"`
}

// DomainCheck is the history record of one check run for one domain.
type DomainCheck struct {
	ID              int64        `db:"id"                json:"id"`
	Domain          string       `db:"domain"            json:"domain"`
	TotalURLs       int          `db:"total_urls"        json:"total_urls"`
	IndexedCount    int          `db:"indexed_count"     json:"indexed_count"`
	NotIndexedCount int          `db:"not_indexed_count" json:"not_indexed_count"`
	ErrorCount      int          `db:"error_count"       json:"error_count"`
	CreatedAt       time.Time    `db:"created_at"        json:"created_at"`
	URLs            []CheckedURL `db:"-"                 json:"urls,omitempty"`
}

// Tally fills the count fields from urls.
func (d *DomainCheck) Tally(urls []CheckedURL) {
	d.TotalURLs = len(urls)
	d.IndexedCount, d.NotIndexedCount, d.ErrorCount = 0, 0, 0
	for _, u := range urls {
		switch u.Status {
		case StatusIndexed:
			d.IndexedCount++
		case StatusNotIndexed:
			d.NotIndexedCount++
		default:
			d.ErrorCount++
		}
	}
}

// ClearResult reports how many rows clear-history removed per table.
type ClearResult struct {
	Legacy  int64 `json:"legacy"`
	URLs    int64 `json:"urls"`
	Domains int64 `json:"domains"`
}
