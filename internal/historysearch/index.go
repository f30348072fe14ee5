// Package historysearch keeps a full-text index of checked URLs so history can
// be searched by URL fragment, domain or status.
package historysearch

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/jonesrussell/index-checker/internal/models"
)

// DefaultLimit is used when Search is given a non-positive limit.
const DefaultLimit = 20

// document is the indexed form of one checked URL.
type document struct {
	CheckID   float64   `json:"check_id"`
	Domain    string    `json:"domain"`
	URL       string    `json:"url"`
	Status    string    `json:"status"`
	CheckedAt time.Time `json:"checked_at"`
}

// Index wraps a bleve index. It is safe for concurrent use.
type Index struct {
	mu    sync.RWMutex
	path  string
	index bleve.Index
}

// Open opens the index at path, creating it when missing. An empty path keeps the index in memory.
func Open(path string) (*Index, error) {
	idx, err := open(path)
	if err != nil {
		return nil, err
	}
	return &Index{path: path, index: idx}, nil
}

func open(path string) (bleve.Index, error) {
	if path == "" {
		idx, err := bleve.NewMemOnly(buildMapping())
		if err != nil {
			return nil, fmt.Errorf("create memory index: %w", err)
		}
		return idx, nil
	}

	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, buildMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return idx, nil
}

func buildMapping() mapping.IndexMapping {
	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = keyword.Name

	urlField := bleve.NewTextFieldMapping()
	urlField.Analyzer = "standard"

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("check_id", bleve.NewNumericFieldMapping())
	docMapping.AddFieldMappingsAt("domain", keywordField)
	docMapping.AddFieldMappingsAt("url", urlField)
	docMapping.AddFieldMappingsAt("status", keywordField)
	docMapping.AddFieldMappingsAt("checked_at", bleve.NewDateTimeFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func docID(checkID int64, url string) string {
	return strconv.FormatInt(checkID, 10) + ":" + url
}

// Index adds the results of one check run.
func (i *Index) Index(checkID int64, domain string, urls []models.CheckedURL) error {
	i.mu.RLock()
	defer i.mu.RUnlock()

	batch := i.index.NewBatch()
	for _, u := range urls {
		doc := document{
			CheckID:   float64(checkID),
			Domain:    domain,
			URL:       u.URL,
			Status:    string(u.Status),
			CheckedAt: u.CheckedAt,
		}
		if err := batch.Index(docID(checkID, u.URL), doc); err != nil {
			return fmt.Errorf("index %s: %w", u.URL, err)
		}
	}

	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("apply batch: %w", err)
	}
	return nil
}

// Search runs a bleve query-string query, e.g. `blog.com`, `status:"Not Indexed"` or `+domain:a.com post`.
func (i *Index) Search(q string, limit int) ([]models.SearchHit, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(q), limit, 0, false)
	req.Fields = []string{"check_id", "domain", "url", "status"}

	res, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]models.SearchHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := models.SearchHit{Score: h.Score}
		if v, ok := h.Fields["check_id"].(float64); ok {
			hit.CheckID = int64(v)
		}
		hit.Domain, _ = h.Fields["domain"].(string)
		hit.URL, _ = h.Fields["url"].(string)
		hit.Status, _ = h.Fields["status"].(string)
		hits = append(hits, hit)
	}
	return hits, nil
}

// Count returns the number of indexed URLs.
func (i *Index) Count() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.index.DocCount()
}

// Reset drops every document.
func (i *Index) Reset() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if i.path != "" {
		if err := os.RemoveAll(i.path); err != nil {
			return fmt.Errorf("remove index: %w", err)
		}
	}

	idx, err := open(i.path)
	if err != nil {
		return err
	}
	i.index = idx
	return nil
}

// Close releases the index.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.index.Close()
}
