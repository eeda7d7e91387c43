package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultDSN         = "host=localhost user=postgres password=postgres dbname=orders port=5432 sslmode=disable"
	defaultCORSOrigins = "http://localhost:5173"
)

type Config struct {
	Host           string
	HTTPPort       string
	DatabaseDSN    string
	CORSOrigins    string
	RequestTimeout time.Duration // per-request deadline for store calls
	DBLogLevel     string        // silent, error, warn, info
	SeedDemoData   bool
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + c.HTTPPort
}

// Load reads the configuration from the environment and, if CONFIG_FILE is
// set, from that file. Environment variables win over the file.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("host", "")
	v.SetDefault("http_port", "8080")
	v.SetDefault("database_dsn", defaultDSN)
	v.SetDefault("cors_allowed_origins", defaultCORSOrigins)
	v.SetDefault("request_timeout", "5s")
	v.SetDefault("db_log_level", "warn")
	v.SetDefault("seed_demo_data", false)

	v.AutomaticEnv()
	if err := v.BindEnv("database_dsn", "DATABASE_DSN", "DB_URL"); err != nil {
		return nil, fmt.Errorf("binding database_dsn: %w", err)
	}

	if err := v.BindEnv("config_file"); err != nil {
		return nil, fmt.Errorf("binding config_file: %w", err)
	}
	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	timeout, err := time.ParseDuration(v.GetString("request_timeout"))
	if err != nil {
		return nil, fmt.Errorf("parsing REQUEST_TIMEOUT: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", timeout)
	}

	logLevel := strings.ToLower(v.GetString("db_log_level"))
	switch logLevel {
	case "silent", "error", "warn", "info":
	default:
		return nil, fmt.Errorf("unknown DB_LOG_LEVEL %q", logLevel)
	}

	cfg := &Config{
		Host:           v.GetString("host"),
		HTTPPort:       v.GetString("http_port"),
		DatabaseDSN:    v.GetString("database_dsn"),
		CORSOrigins:    v.GetString("cors_allowed_origins"),
		RequestTimeout: timeout,
		DBLogLevel:     logLevel,
		SeedDemoData:   v.GetBool("seed_demo_data"),
	}

	if cfg.DatabaseDSN == defaultDSN {
		log.Println("[WARN] DATABASE_DSN is not set, using the local default. Set your own Postgres DSN in production.")
	}
	if cfg.CORSOrigins == defaultCORSOrigins {
		log.Println("[WARN] CORS_ALLOWED_ORIGINS is not set, using the local default.")
	}

	return cfg, nil
}
