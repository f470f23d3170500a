package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/2beens/gymplanner/internal/remote"
)

const (
	StoragePostgres = "postgres"
	StorageMysql    = "mysql"

	defaultMaxDocumentBytes            = 4 * 1024 * 1024
	defaultLoginRateLimitAllowedPerMin = 15
	defaultDocumentCacheTTLSeconds     = 300
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Environment string `toml:"-"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`
	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`
	// storage
	StorageDriver  string `toml:"storage_driver"`
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`
	MysqlHost      string `toml:"mysql_host"`
	MysqlPort      string `toml:"mysql_port"`
	MysqlDBName    string `toml:"mysql_db_name"`
	MysqlUser      string `toml:"mysql_user"`
	// redis
	RedisHost               string `toml:"redis_host"`
	RedisPort               string `toml:"redis_port"`
	DocumentCacheTTLSeconds int    `toml:"document_cache_ttl_seconds"`
	// sync
	MaxDocumentBytes            int64    `toml:"max_document_bytes"`
	LoginRateLimitAllowedPerMin int      `toml:"login_rate_limit_allowed_per_min"`
	AdminUsernames              []string `toml:"admin_usernames"`
	AllowedOrigins              []string `toml:"allowed_origins"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg, env = t.Development, "development"
	case "prod", "production":
		cfg, env = t.Production, "production"
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: no [%s] table", ErrInvalidConfig, env)
	}
	cfg.Environment = env
	return cfg, nil
}

// Load reads the TOML file at path and returns the table of env with defaults applied.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.Port == 0 {
		c.Port = 9000
	}
	if c.PrometheusMetricsPort == "" {
		c.PrometheusMetricsPort = "2112"
	}
	if c.StorageDriver == "" {
		c.StorageDriver = StoragePostgres
	}
	c.StorageDriver = strings.ToLower(c.StorageDriver)
	if c.StorageDriver != StoragePostgres && c.StorageDriver != StorageMysql {
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.StorageDriver)
	}
	if c.MaxDocumentBytes <= 0 {
		c.MaxDocumentBytes = defaultMaxDocumentBytes
	}
	// devices refuse to fetch anything bigger
	if c.MaxDocumentBytes > remote.MaxDocumentBytes {
		return fmt.Errorf("%w: max_document_bytes %d above the client limit of %d", ErrInvalidConfig, c.MaxDocumentBytes, remote.MaxDocumentBytes)
	}
	if c.LoginRateLimitAllowedPerMin <= 0 {
		c.LoginRateLimitAllowedPerMin = defaultLoginRateLimitAllowedPerMin
	}
	if c.DocumentCacheTTLSeconds == 0 {
		c.DocumentCacheTTLSeconds = defaultDocumentCacheTTLSeconds
	}
	return nil
}
