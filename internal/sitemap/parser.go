package sitemap

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Root element names of the two sitemap document kinds.
const (
	rootURLSet       = "urlset"
	rootSitemapIndex = "sitemapindex"
)

// excludedExtensions are static assets that never belong in an index check.
var excludedExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {}, ".svg": {}, ".ico": {},
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {},
	".zip": {}, ".rar": {}, ".tar": {}, ".gz": {},
	".mp4": {}, ".avi": {}, ".mov": {}, ".mp3": {}, ".wav": {},
	".css": {}, ".js": {},
}

// document is what a fetched sitemap body contained.
type document struct {
	root string
	locs []string
}

// isIndex reports whether the locs point at further sitemaps rather than pages.
func (d *document) isIndex() bool {
	if d.root == rootSitemapIndex || len(d.locs) == 0 {
		return true
	}
	for _, loc := range d.locs {
		if strings.Contains(strings.ToLower(loc), "sitemap") {
			return true
		}
	}
	return false
}

// parseDocument collects every <loc> value in body regardless of nesting, and
// records the root element name. Asset URLs are dropped.
func parseDocument(body []byte) (*document, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	doc := &document{}
	inLoc := false
	var loc strings.Builder

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse sitemap: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if doc.root == "" {
				doc.root = strings.ToLower(t.Name.Local)
			}
			if strings.EqualFold(t.Name.Local, "loc") {
				inLoc = true
				loc.Reset()
			}
		case xml.CharData:
			if inLoc {
				loc.Write(t)
			}
		case xml.EndElement:
			if inLoc && strings.EqualFold(t.Name.Local, "loc") {
				inLoc = false
				if u := strings.TrimSpace(loc.String()); u != "" && !isAsset(u) {
					doc.locs = append(doc.locs, u)
				}
			}
		}
	}

	return doc, nil
}

// isAsset reports whether rawURL ends in a static-asset extension.
func isAsset(rawURL string) bool {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	_, excluded := excludedExtensions[strings.ToLower(path.Ext(p))]
	return excluded
}

// htmlLinks extracts same-host page links from an HTML page served in place of a sitemap.
func htmlLinks(body []byte, base *url.URL) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html sitemap: %w", err)
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		ref, parseErr := url.Parse(strings.TrimSpace(href))
		if parseErr != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		if !strings.EqualFold(abs.Hostname(), base.Hostname()) {
			return
		}
		abs.Fragment = ""
		if u := abs.String(); !isAsset(u) {
			links = append(links, u)
		}
	})

	return links, nil
}

func looksLikeHTML(contentType string, body []byte) bool {
	if strings.Contains(contentType, "html") {
		return true
	}
	head := bytes.ToLower(bytes.TrimSpace(body[:min(len(body), 512)]))
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}
