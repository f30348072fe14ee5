package editor

import (
	"fmt"

	"github.com/jonesrussell/index-checker/internal/appstate"
	"github.com/jonesrussell/index-checker/internal/models"
)

// setUpdateField maps an edited column onto the WordPress update payload.
func setUpdateField(u *models.PostUpdate, field string, value any) error {
	var p models.Post
	if err := appstate.SetPostField(&p, field, value); err != nil {
		return err
	}

	switch field {
	case "title":
		u.Title = &p.Title
	case "content":
		u.Content = &p.Content
	case "excerpt":
		u.Excerpt = &p.Excerpt
	case "status":
		u.Status = &p.Status
	case "categories":
		u.Categories = &p.Categories
	case "seo_title":
		u.SEOTitle = &p.SEOTitle
	case "seo_description":
		u.SEODescription = &p.SEODescription
	case "outgoing_url":
		u.OutgoingURL = &p.OutgoingURL
	default:
		return fmt.Errorf("%w: field %q cannot be edited", models.ErrInvalidInput, field)
	}
	return nil
}
