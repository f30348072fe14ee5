// Package links extracts external links from WordPress post content.
package links

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/index-checker/internal/models"
)

// NoText is the anchor recorded for links without visible text.
const NoText = "[No text]"

// MaxAnchorLength caps anchor text, in runes.
const MaxAnchorLength = 100

// ExtractOutgoing returns the external links in html, in document order.
// Links to postURL's own host, relative links and mailto/tel/fragment hrefs
// are skipped. Exact duplicates are reported once.
func ExtractOutgoing(html, postURL string) []models.OutgoingLink {
	result := []models.OutgoingLink{}
	if strings.TrimSpace(html) == "" || postURL == "" {
		return result
	}

	postHost := models.Hostname(postURL)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return result
	}

	seen := make(map[models.OutgoingLink]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if skipHref(href) {
			return
		}

		u, parseErr := url.Parse(href)
		if parseErr != nil {
			return
		}
		host := strings.ToLower(u.Hostname())
		if host == "" || host == postHost {
			return
		}

		link := models.OutgoingLink{
			Domain: host,
			Anchor: anchorText(s),
			URL:    href,
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		result = append(result, link)
	})

	return result
}

func skipHref(href string) bool {
	return href == "" ||
		strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:")
}

func anchorText(s *goquery.Selection) string {
	text := strings.Join(strings.Fields(s.Text()), " ")
	if text == "" {
		return NoText
	}
	if runes := []rune(text); len(runes) > MaxAnchorLength {
		return string(runes[:MaxAnchorLength])
	}
	return text
}
