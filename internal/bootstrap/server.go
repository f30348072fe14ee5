package bootstrap

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/index-checker/internal/api"
	"github.com/jonesrussell/index-checker/internal/auth"
	"github.com/jonesrussell/index-checker/internal/config"
	"github.com/jonesrussell/index-checker/internal/handlers"
	"github.com/jonesrussell/index-checker/internal/httpserver"
	"github.com/jonesrussell/index-checker/internal/logger"
	"github.com/jonesrussell/index-checker/internal/models"
)

// SetupHTTPServer builds the handlers and the HTTP server.
func SetupHTTPServer(
	cfg *config.Config,
	db *sqlx.DB,
	kv *KV,
	clients *Clients,
	s *Services,
	version string,
	started time.Time,
	log logger.Logger,
) *httpserver.Server {
	wpClient := func(creds models.Credentials) handlers.WordPressAPI {
		return clients.WordPress.Client(creds)
	}

	checks := map[string]httpserver.HealthChecker{
		"database": httpserver.DatabaseHealthChecker(db.PingContext),
	}
	if kv.Redis() {
		checks["redis"] = httpserver.RedisHealthChecker(kv.Ping)
	}

	routes := &api.Routes{
		Checks:      handlers.NewCheckHandler(s.Checks, clients.Sitemaps, s.Repos.Checks, log),
		History:     handlers.NewHistoryHandler(s.Repos.History, log),
		WordPress:   handlers.NewWordPressHandler(wpClient, s.Repos.Outgoing, s.Repos.Sites, cfg.WordPress.Workers, log),
		Sites:       handlers.NewSiteHandler(s.Repos.Sites, log),
		Sessions:    handlers.NewSessionHandler(s.Sessions, log),
		Auth:        handlers.NewAuthHandler(s.Auth, log),
		RequireAuth: auth.RequireAuth(s.Auth),
	}

	serverCfg := httpserver.FromAppConfig(cfg, ServiceName, version)
	return httpserver.NewServer(serverCfg, log, httpserver.Options{
		Metrics:      clients.Metrics,
		HealthChecks: checks,
		StartedAt:    started,
		Routes:       routes.Setup(),
	})
}
