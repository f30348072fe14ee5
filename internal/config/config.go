// Package config loads the index checker server configuration from YAML,
// .env files and environment variables.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

const (
	defaultServerPort      = 5050
	defaultServerTimeout   = 120
	defaultDatabaseDriver  = DriverSQLite
	defaultSQLitePath      = "check_history.db"
	defaultDatabasePort    = 5432
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute

	defaultSerperURL         = "https://google.serper.dev/search"
	defaultSerperTimeout     = 20 * time.Second
	defaultSerperConcurrency = 10
	defaultSerperRPS         = 20
	defaultSerperRetries     = 3

	defaultSitemapTimeout   = 10 * time.Second
	defaultSitemapUserAgent = "Mozilla/5.0 (compatible; IndexChecker/1.0)"
	defaultSitemapMaxURLs   = 10000
	defaultSitemapMaxDepth  = 3

	defaultWordPressTimeout        = 10 * time.Second
	defaultWordPressWorkers        = 10
	defaultWordPressRefreshWorkers = 5

	defaultCheckBatchSize = 10

	defaultAdminUsername = "admin"
	defaultTokenTTL      = 7 * 24 * time.Hour
	defaultResetTTL      = time.Hour

	defaultSMTPPort = 465

	defaultRedisAddress = "localhost:6379"

	defaultCleanupSchedule = "@hourly"
	defaultSessionMaxAge   = 24 * time.Hour
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Config is the root server configuration.
type Config struct {
	Debug     bool            `env:"APP_DEBUG" yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	Serper    SerperConfig    `yaml:"serper"`
	Sitemap   SitemapConfig   `yaml:"sitemap"`
	WordPress WordPressConfig `yaml:"wordpress"`
	Check     CheckConfig     `yaml:"check"`
	Auth      AuthConfig      `yaml:"auth"`
	Mail      MailConfig      `yaml:"mail"`
	Redis     RedisConfig     `yaml:"redis"`
	Search    SearchConfig    `yaml:"search"`
	Cleanup   CleanupConfig   `yaml:"cleanup"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type ServerConfig struct {
	Host         string        `env:"SERVER_HOST"  yaml:"host"`
	Port         int           `env:"SERVER_PORT"  yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CORSOrigins  []string      `env:"CORS_ORIGINS" yaml:"cors_origins"`
}

// Address returns host:port.
func (c *ServerConfig) Address() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

type DatabaseConfig struct {
	Driver          string        `env:"DB_DRIVER"   yaml:"driver"`
	Path            string        `env:"DB_PATH"     yaml:"path"`
	Host            string        `env:"DB_HOST"     yaml:"host"`
	Port            int           `env:"DB_PORT"     yaml:"port"`
	User            string        `env:"DB_USER"     yaml:"user"`
	Password        string        `env:"DB_PASSWORD" yaml:"password"` //nolint:gosec // DB connection config
	DBName          string        `env:"DB_NAME"     yaml:"dbname"`
	SSLMode         string        `env:"DB_SSLMODE"  yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  yaml:"level"`
	Format string `env:"LOG_FORMAT" yaml:"format"`
}

type SerperConfig struct {
	APIKey      string        `env:"SERPER_API_KEY" yaml:"api_key"` //nolint:gosec // API credential
	URL         string        `env:"SERPER_URL"     yaml:"url"`
	Timeout     time.Duration `yaml:"timeout"`
	Concurrency int           `env:"SERPER_CONCURRENCY" yaml:"concurrency"`
	RPS         int           `env:"SERPER_RPS"         yaml:"rps"`
	MaxRetries  int           `yaml:"max_retries"`
}

type SitemapConfig struct {
	Timeout            time.Duration `yaml:"timeout"`
	UserAgent          string        `yaml:"user_agent"`
	MaxURLs            int           `yaml:"max_urls"`
	MaxDepth           int           `yaml:"max_depth"`
	InsecureSkipVerify *bool         `yaml:"insecure_skip_verify"`
}

// SkipTLSVerify reports whether sitemap fetches skip certificate checks. Defaults to true.
func (c *SitemapConfig) SkipTLSVerify() bool {
	return c.InsecureSkipVerify == nil || *c.InsecureSkipVerify
}

type WordPressConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	Workers        int           `yaml:"workers"`
	RefreshWorkers int           `yaml:"refresh_workers"`
}

type CheckConfig struct {
	BatchSize int `env:"CHECK_BATCH_SIZE" yaml:"batch_size"`
}

type AuthConfig struct {
	AdminUsername     string        `env:"ADMIN_USERNAME"      yaml:"admin_username"`
	AdminPasswordHash string        `env:"ADMIN_PASSWORD_HASH" yaml:"admin_password_hash"` //nolint:gosec // hash, not secret
	JWTSecret         string        `env:"AUTH_JWT_SECRET"     yaml:"jwt_secret"`          //nolint:gosec // signing key
	TokenTTL          time.Duration `yaml:"token_ttl"`
	ResetTTL          time.Duration `yaml:"reset_ttl"`
}

type MailConfig struct {
	Host     string `env:"SMTP_HOST"     yaml:"host"`
	Port     int    `env:"SMTP_PORT"     yaml:"port"`
	Username string `env:"SMTP_USERNAME" yaml:"username"`
	Password string `env:"SMTP_PASSWORD" yaml:"password"` //nolint:gosec // SMTP credential
	From     string `env:"SMTP_FROM"     yaml:"from"`
}

// Enabled reports whether outbound mail is configured.
func (c *MailConfig) Enabled() bool {
	return c.Host != "" && c.Password != ""
}

// RedisConfig selects the Redis-backed kv store when Enabled.
type RedisConfig struct {
	Enabled  bool   `env:"REDIS_ENABLED"  yaml:"enabled"`
	Address  string `env:"REDIS_ADDRESS"  yaml:"address"`
	Password string `env:"REDIS_PASSWORD" yaml:"password"` //nolint:gosec // Redis credential
	DB       int    `env:"REDIS_DB"       yaml:"db"`
}

// SearchConfig points at the bleve index directory. Empty means in-memory.
type SearchConfig struct {
	IndexPath string `env:"SEARCH_INDEX_PATH" yaml:"index_path"`
}

type CleanupConfig struct {
	Schedule      string        `env:"CLEANUP_SCHEDULE" yaml:"schedule"`
	SessionMaxAge time.Duration `yaml:"session_max_age"`
}

type MetricsConfig struct {
	Enabled bool `env:"METRICS_ENABLED" yaml:"enabled"`
}

// Validate checks required and mutually dependent fields.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return errors.New("server.port is required and must be positive")
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path is required for sqlite3")
		}
	case DriverPostgres:
		if c.Database.Host == "" {
			return errors.New("database.host is required for postgres")
		}
		if c.Database.User == "" {
			return errors.New("database.user is required for postgres")
		}
		if c.Database.DBName == "" {
			return errors.New("database.dbname is required for postgres")
		}
	default:
		return &ValidationError{Field: "database.driver", Message: "must be sqlite3 or postgres"}
	}

	if err := validateLogLevel(c.Logging.Level); err != nil {
		return err
	}

	if c.Check.BatchSize <= 0 {
		return errors.New("check.batch_size must be positive")
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}

	return nil
}

// Load reads the configuration at path, applies defaults and validates it.
func Load(path string) (*Config, error) {
	cfg, err := loadWithDefaults(path, setDefaults)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, fmt.Errorf("invalid config: %w", validateErr)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	setServerDefaults(&cfg.Server)
	setDatabaseDefaults(&cfg.Database)

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	setClientDefaults(cfg)

	if cfg.Check.BatchSize == 0 {
		cfg.Check.BatchSize = defaultCheckBatchSize
	}

	if cfg.Auth.AdminUsername == "" {
		cfg.Auth.AdminUsername = defaultAdminUsername
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = defaultTokenTTL
	}
	if cfg.Auth.ResetTTL == 0 {
		cfg.Auth.ResetTTL = defaultResetTTL
	}
	if cfg.Mail.Port == 0 {
		cfg.Mail.Port = defaultSMTPPort
	}
	if cfg.Mail.From == "" {
		cfg.Mail.From = cfg.Mail.Username
	}

	if cfg.Redis.Address == "" {
		cfg.Redis.Address = defaultRedisAddress
	}

	if cfg.Cleanup.Schedule == "" {
		cfg.Cleanup.Schedule = defaultCleanupSchedule
	}
	if cfg.Cleanup.SessionMaxAge == 0 {
		cfg.Cleanup.SessionMaxAge = defaultSessionMaxAge
	}
}

func setServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = defaultServerPort
	}
	// Index checks over large sitemaps run long; keep write timeout generous.
	if s.ReadTimeout == 0 {
		s.ReadTimeout = defaultServerTimeout * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = defaultServerTimeout * time.Second
	}
	if len(s.CORSOrigins) == 0 {
		s.CORSOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	}
}

func setDatabaseDefaults(d *DatabaseConfig) {
	if d.Driver == "" {
		d.Driver = defaultDatabaseDriver
	}
	if d.Driver == DriverSQLite && d.Path == "" {
		d.Path = defaultSQLitePath
	}
	if d.Port == 0 {
		d.Port = defaultDatabasePort
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.MaxOpenConns == 0 {
		d.MaxOpenConns = defaultMaxOpenConns
	}
	if d.MaxIdleConns == 0 {
		d.MaxIdleConns = defaultMaxIdleConns
	}
	if d.ConnMaxLifetime == 0 {
		d.ConnMaxLifetime = defaultConnMaxLifetime
	}
}

func setClientDefaults(cfg *Config) {
	if cfg.Serper.URL == "" {
		cfg.Serper.URL = defaultSerperURL
	}
	if cfg.Serper.Timeout == 0 {
		cfg.Serper.Timeout = defaultSerperTimeout
	}
	if cfg.Serper.Concurrency == 0 {
		cfg.Serper.Concurrency = defaultSerperConcurrency
	}
	if cfg.Serper.RPS == 0 {
		cfg.Serper.RPS = defaultSerperRPS
	}
	if cfg.Serper.MaxRetries == 0 {
		cfg.Serper.MaxRetries = defaultSerperRetries
	}

	if cfg.Sitemap.Timeout == 0 {
		cfg.Sitemap.Timeout = defaultSitemapTimeout
	}
	if cfg.Sitemap.UserAgent == "" {
		cfg.Sitemap.UserAgent = defaultSitemapUserAgent
	}
	if cfg.Sitemap.MaxURLs == 0 {
		cfg.Sitemap.MaxURLs = defaultSitemapMaxURLs
	}
	if cfg.Sitemap.MaxDepth == 0 {
		cfg.Sitemap.MaxDepth = defaultSitemapMaxDepth
	}

	if cfg.WordPress.Timeout == 0 {
		cfg.WordPress.Timeout = defaultWordPressTimeout
	}
	if cfg.WordPress.Workers == 0 {
		cfg.WordPress.Workers = defaultWordPressWorkers
	}
	if cfg.WordPress.RefreshWorkers == 0 {
		cfg.WordPress.RefreshWorkers = defaultWordPressRefreshWorkers
	}
}
