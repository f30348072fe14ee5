package bootstrap

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/index-checker/internal/auth"
	"github.com/jonesrussell/index-checker/internal/config"
	"github.com/jonesrussell/index-checker/internal/editorsession"
	"github.com/jonesrussell/index-checker/internal/historysearch"
	"github.com/jonesrussell/index-checker/internal/indexcheck"
	"github.com/jonesrussell/index-checker/internal/logger"
	"github.com/jonesrussell/index-checker/internal/repository"
)

// Repositories are the SQL stores.
type Repositories struct {
	Checks   *repository.DomainCheckRepository
	Sessions *repository.EditorSessionRepository
	Sites    *repository.WPSiteRepository
	Outgoing *repository.OutgoingURLRepository
	Tokens   *repository.AuthTokenRepository
	Creds    *repository.CredentialRepository
	History  *repository.EditHistoryRepository
}

// Services are the domain services shared by the handlers and the scheduler.
type Services struct {
	Repos    Repositories
	Checks   *indexcheck.Service
	Sessions *editorsession.Service
	Auth     *auth.Service
}

// SetupServices builds the repositories and services.
func SetupServices(
	cfg *config.Config,
	db *sqlx.DB,
	kv *KV,
	clients *Clients,
	index *historysearch.Index,
	log logger.Logger,
) *Services {
	repos := Repositories{
		Checks:   repository.NewDomainCheckRepository(db),
		Sessions: repository.NewEditorSessionRepository(db),
		Sites:    repository.NewWPSiteRepository(db),
		Outgoing: repository.NewOutgoingURLRepository(db),
		Tokens:   repository.NewAuthTokenRepository(db),
		Creds:    repository.NewCredentialRepository(db),
		History:  repository.NewEditHistoryRepository(db),
	}

	checks := indexcheck.NewService(indexcheck.Deps{
		Checker:   clients.Serper,
		Sitemaps:  clients.Sitemaps,
		Store:     repos.Checks,
		Index:     index,
		Recorder:  clients.Metrics,
		BatchSize: cfg.Check.BatchSize,
		Logger:    log.With(logger.String("component", "indexcheck")),
	})

	sessions := editorsession.NewService(editorsession.Deps{
		Store:          repos.Sessions,
		Sites:          repos.Sites,
		Posts:          clients.WordPress,
		Recorder:       clients.Metrics,
		MaxAge:         cfg.Cleanup.SessionMaxAge,
		RefreshWorkers: cfg.WordPress.RefreshWorkers,
		Logger:         log.With(logger.String("component", "editorsession")),
	})

	authSvc := auth.NewService(auth.Deps{
		Config:      cfg.Auth,
		Tokens:      repos.Tokens,
		Credentials: repos.Creds,
		Resets:      kv,
		Mailer:      clients.Mailer,
		Logger:      log.With(logger.String("component", "auth")),
	})

	return &Services{Repos: repos, Checks: checks, Sessions: sessions, Auth: authSvc}
}

// RunStartupCleanup drops stale editor sessions and expired tokens left from
// earlier runs. Failures are logged and do not stop startup.
func RunStartupCleanup(ctx context.Context, s *Services, log logger.Logger) {
	if err := s.Sessions.CleanupStale(ctx); err != nil {
		log.Warn("Startup session cleanup failed", logger.Error(err))
	}
	if err := s.Auth.DeleteExpired(ctx); err != nil {
		log.Warn("Startup token cleanup failed", logger.Error(err))
	}
}
