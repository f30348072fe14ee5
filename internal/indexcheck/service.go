// Package indexcheck runs server-side index checks: it expands domains into
// sitemap URLs, checks them in batches and records one history entry per domain.
package indexcheck

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonesrussell/index-checker/internal/grouping"
	"github.com/jonesrussell/index-checker/internal/logger"
	"github.com/jonesrussell/index-checker/internal/models"
	"github.com/jonesrussell/index-checker/internal/sitemap"
)

// DefaultBatchSize is the number of URLs sent to the checker at once.
const DefaultBatchSize = 10

// ErrNoURLs is returned when a check request names nothing to check.
var ErrNoURLs = errors.New("no URLs provided")

// Checker resolves the index status of URLs. Result order matches urls.
type Checker interface {
	CheckMany(ctx context.Context, urls []string) []models.CheckedURL
}

// Discoverer expands a domain into page URLs.
type Discoverer interface {
	Fetch(ctx context.Context, domain string, maxURLs int) (*sitemap.Result, error)
}

// Store persists check history.
type Store interface {
	Create(ctx context.Context, domain string, urls []models.CheckedURL) (int64, error)
	InsertLegacy(ctx context.Context, url string, status models.IndexStatus) error
	ClearAll(ctx context.Context) (models.ClearResult, error)
}

// Indexer feeds the history search index.
type Indexer interface {
	Index(checkID int64, domain string, urls []models.CheckedURL) error
	Search(q string, limit int) ([]models.SearchHit, error)
	Reset() error
}

// Recorder receives check metrics.
type Recorder interface {
	RecordChecks(results []models.CheckedURL)
	SitemapDiscovered(n int)
}

// Service orchestrates check runs.
type Service struct {
	checker   Checker
	sitemaps  Discoverer
	store     Store
	index     Indexer
	recorder  Recorder
	batchSize int
	log       logger.Logger
}

// Deps groups the collaborators of a Service.
type Deps struct {
	Checker   Checker
	Sitemaps  Discoverer
	Store     Store
	Index     Indexer
	Recorder  Recorder
	BatchSize int
	Logger    logger.Logger
}

// NewService creates a Service. Index and Recorder are optional.
func NewService(d Deps) *Service {
	batch := d.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	log := d.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		checker:   d.Checker,
		sitemaps:  d.Sitemaps,
		store:     d.Store,
		index:     d.Index,
		recorder:  d.Recorder,
		batchSize: batch,
		log:       log,
	}
}

// Check expands inputs, checks every URL and stores the results grouped by host.
func (s *Service) Check(ctx context.Context, inputs []string) (*models.CheckIndexResult, error) {
	urls := s.expand(ctx, inputs)
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}

	s.log.Info("Checking index status", logger.Int("urls", len(urls)))

	results := make([]models.CheckedURL, 0, len(urls))
	for start := 0; start < len(urls); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("check cancelled: %w", err)
		}
		end := min(start+s.batchSize, len(urls))
		batch := s.checker.CheckMany(ctx, urls[start:end])

		for i := range batch {
			batch[i].CheckedAt = batch[i].CheckedAt.UTC()
			if err := s.store.InsertLegacy(ctx, batch[i].URL, batch[i].Status); err != nil {
				s.log.Warn("Failed to record legacy history row",
					logger.String("url", batch[i].URL),
					logger.Error(err),
				)
			}
		}
		results = append(results, batch...)
	}

	if s.recorder != nil {
		s.recorder.RecordChecks(results)
	}

	out := &models.CheckIndexResult{
		DomainGroups:   make(map[string][]models.CheckedURL),
		DomainCheckIDs: make(map[string]int64),
	}
	for _, g := range grouping.GroupResults(results) {
		out.DomainGroups[g.Domain] = g.Results

		id, err := s.store.Create(ctx, g.Domain, g.Results)
		if err != nil {
			s.log.Error("Failed to save domain check",
				logger.String("domain", g.Domain),
				logger.Error(err),
			)
			continue
		}
		out.DomainCheckIDs[g.Domain] = id

		if s.index != nil {
			if err := s.index.Index(id, g.Domain, g.Results); err != nil {
				s.log.Warn("Failed to index domain check",
					logger.Int64("check_id", id),
					logger.Error(err),
				)
			}
		}
	}

	s.log.Info("Index check finished",
		logger.Int("urls", len(results)),
		logger.Int("domains", len(out.DomainGroups)),
	)
	return out, nil
}

// expand turns domains into sitemap URLs and keeps full URLs as given.
// A domain with no sitemap contributes its https homepage.
func (s *Service) expand(ctx context.Context, inputs []string) []string {
	seen := make(map[string]struct{}, len(inputs))
	var out []string
	add := func(u string) {
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}

	for _, raw := range inputs {
		in := strings.TrimSpace(raw)
		if in == "" {
			continue
		}
		if strings.HasPrefix(in, "http") {
			add(in)
			continue
		}

		found := s.discover(ctx, in)
		if len(found) == 0 {
			add("https://" + sitemap.NormalizeDomain(in))
			continue
		}
		for _, u := range found {
			add(u)
		}
	}
	return out
}

func (s *Service) discover(ctx context.Context, domain string) []string {
	if s.sitemaps == nil {
		return nil
	}
	res, err := s.sitemaps.Fetch(ctx, domain, 0)
	if err != nil {
		s.log.Warn("Sitemap discovery failed",
			logger.String("domain", domain),
			logger.Error(err),
		)
		return nil
	}
	if s.recorder != nil {
		s.recorder.SitemapDiscovered(len(res.URLs))
	}
	return res.URLs
}

// Clear deletes all check history and empties the search index.
func (s *Service) Clear(ctx context.Context) (models.ClearResult, error) {
	res, err := s.store.ClearAll(ctx)
	if err != nil {
		return res, err
	}
	if s.index != nil {
		if err := s.index.Reset(); err != nil {
			s.log.Warn("Failed to reset history index", logger.Error(err))
		}
	}
	s.log.Info("History cleared")
	return res, nil
}

// Search queries the history index. Without an index it returns no hits.
func (s *Service) Search(q string, limit int) ([]models.SearchHit, error) {
	if s.index == nil {
		return []models.SearchHit{}, nil
	}
	return s.index.Search(q, limit)
}
