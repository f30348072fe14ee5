package bootstrap

import (
	"github.com/jonesrussell/index-checker/internal/auth"
	"github.com/jonesrussell/index-checker/internal/config"
	"github.com/jonesrussell/index-checker/internal/historysearch"
	"github.com/jonesrussell/index-checker/internal/logger"
	"github.com/jonesrussell/index-checker/internal/metrics"
	"github.com/jonesrussell/index-checker/internal/serper"
	"github.com/jonesrussell/index-checker/internal/sitemap"
	"github.com/jonesrussell/index-checker/internal/wordpress"
)

// Clients are the outbound integrations.
type Clients struct {
	Serper    *serper.Client
	Sitemaps  *sitemap.Fetcher
	WordPress *wordpress.Factory
	// Mailer is nil when SMTP is not configured.
	Mailer  auth.Mailer
	Metrics *metrics.Metrics
}

// SetupClients creates the outbound clients. Metrics are created here so the
// Serper client can report request latency.
func SetupClients(cfg *config.Config, log logger.Logger) *Clients {
	c := &Clients{
		Sitemaps:  sitemap.New(cfg.Sitemap, log.With(logger.String("component", "sitemap"))),
		WordPress: wordpress.NewFactory(cfg.WordPress, log.With(logger.String("component", "wordpress"))),
	}

	var serperOpts []serper.Option
	if cfg.Metrics.Enabled {
		c.Metrics = metrics.New()
		serperOpts = append(serperOpts, serper.WithRecorder(c.Metrics))
	}
	c.Serper = serper.New(cfg.Serper, log.With(logger.String("component", "serper")), serperOpts...)

	// A nil *SMTPMailer must not become a non-nil interface.
	if m := auth.NewSMTPMailer(cfg.Mail); m != nil {
		c.Mailer = m
	} else {
		log.Warn("SMTP not configured, password reset emails are disabled")
	}

	if cfg.Serper.APIKey == "" {
		log.Warn("Serper API key not set, index checks will report errors")
	}

	return c
}

// SetupSearchIndex opens the history search index.
func SetupSearchIndex(cfg *config.Config, log logger.Logger) (*historysearch.Index, error) {
	index, err := historysearch.Open(cfg.Search.IndexPath)
	if err != nil {
		return nil, err
	}
	if cfg.Search.IndexPath == "" {
		log.Info("History search index is in memory")
	} else {
		log.Info("History search index opened", logger.String("path", cfg.Search.IndexPath))
	}
	return index, nil
}
