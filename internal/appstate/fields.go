package appstate

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonesrussell/index-checker/internal/models"
)

// ModifiedLayout matches the WordPress "modified" timestamp format.
const ModifiedLayout = "2006-01-02T15:04:05"

// FormatModified renders t the way WordPress reports modification times.
func FormatModified(t time.Time) string {
	return t.UTC().Format(ModifiedLayout)
}

// SetPostField assigns value to the named field of p. Values decoded from
// JSON (strings, []any, float64) are accepted alongside typed values.
func SetPostField(p *models.Post, field string, value any) error {
	switch field {
	case "title":
		return setString(&p.Title, field, value)
	case "content":
		return setString(&p.Content, field, value)
	case "excerpt":
		return setString(&p.Excerpt, field, value)
	case "status":
		return setString(&p.Status, field, value)
	case "seo_title":
		return setString(&p.SEOTitle, field, value)
	case "seo_description":
		return setString(&p.SEODescription, field, value)
	case "outgoing_url":
		return setString(&p.OutgoingURL, field, value)
	case "date_modified":
		return setString(&p.DateModified, field, value)
	case "categories":
		return convert(value, &p.Categories, field)
	case "outgoing_links":
		return convert(value, &p.OutgoingLinks, field)
	default:
		return fmt.Errorf("%w: unknown field %q", models.ErrInvalidInput, field)
	}
}

func setString(dst *string, field string, value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("%w: %s must be a string", models.ErrInvalidInput, field)
	}
	*dst = s
	return nil
}

// convert round-trips value through JSON into dst.
func convert(value, dst any, field string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", models.ErrInvalidInput, field, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %s: %w", models.ErrInvalidInput, field, err)
	}
	return nil
}
