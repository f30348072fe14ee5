package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/jonesrussell/index-checker/internal/logger"
	"github.com/jonesrussell/index-checker/internal/metrics"
)

// Options are what NewServer mounts besides the middleware chain.
type Options struct {
	// Metrics is optional; nil disables /metrics and request instrumentation.
	Metrics      *metrics.Metrics
	HealthChecks map[string]HealthChecker
	StartedAt    time.Time

	// Routes installs the API routes after /health and /metrics.
	Routes func(*gin.Engine)
}

// Server serves the index checker API.
type Server struct {
	engine *gin.Engine
	http   *http.Server
	cfg    *Config
	log    logger.Logger
}

// NewServer builds the engine: recovery, request id, request logging and
// CORS first, then metrics, health and finally opts.Routes.
func NewServer(cfg *Config, log logger.Logger, opts Options) *Server {
	cfg.SetDefaults()

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if opts.StartedAt.IsZero() {
		opts.StartedAt = time.Now()
	}

	engine := gin.New()
	engine.Use(
		RecoveryMiddleware(log),
		RequestIDMiddleware(),
		LoggerMiddleware(log),
		CORSMiddleware(cfg.CORS),
	)

	if opts.Metrics != nil {
		engine.Use(opts.Metrics.Middleware())
		engine.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}
	RegisterHealthRoutes(engine, cfg.ServiceName, cfg.ServiceVersion, opts.StartedAt, opts.HealthChecks)

	if opts.Routes != nil {
		opts.Routes(engine)
	}

	return &Server{
		engine: engine,
		http: &http.Server{
			Addr:         cfg.Address,
			Handler:      engine,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		cfg: cfg,
		log: log,
	}
}

// Handler returns the engine for in-process requests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then drains in-flight requests for
// at most the shutdown timeout. A serve failure also stops the server.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.Info("Serving API",
		logger.String("address", ln.Addr().String()),
		logger.String("version", s.cfg.ServiceVersion),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		s.log.Info("API stopped", logger.Duration("shutdown_timeout", s.cfg.ShutdownTimeout))
		return nil
	})
	return g.Wait()
}
