package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/LonelyIsle/resort-api/internal/logger"
)

// Config holds everything the server needs at start-up.
type Config struct {
	Address string `env:"ADDRESS" envDefault:":8080"`
	AppEnv  string `env:"APP_ENV" envDefault:"development"`

	PGURL      string `env:"PG_URL,required"`
	PGMaxConns int32  `env:"PG_MAX_CONNS" envDefault:"10"`

	ValkeyAddr string        `env:"VALKEY_ADDR" envDefault:"127.0.0.1:6379"`
	ValkeyDB   int           `env:"VALKEY_DB" envDefault:"0"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	RateLimitPerMinute int  `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`
	DisableRateLimit   bool `env:"DISABLE_RATELIMIT" envDefault:"false"`
	DisableCSRF        bool `env:"DISABLE_CSRF" envDefault:"false"`

	ReportQueryTimeout       time.Duration `env:"REPORT_QUERY_TIMEOUT" envDefault:"30s"`
	CustomQueryMaxRows       int           `env:"CUSTOM_QUERY_MAX_ROWS" envDefault:"1000"`
	ReportExtraDeniedKeyword []string      `env:"REPORT_EXTRA_DENIED_KEYWORDS" envSeparator:","`

	StaticDir string `env:"STATIC_DIR" envDefault:"./web"`

	Log logger.Config
}

// IsProd reports whether APP_ENV is production.
func (c *Config) IsProd() bool { return strings.EqualFold(c.AppEnv, "production") }

// Load reads the given .env files (missing ones are skipped) and then
// parses the process environment into a Config. Variables already set in
// the environment take precedence over the files.
func Load(files ...string) (*Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.CustomQueryMaxRows <= 0 || cfg.CustomQueryMaxRows > 1000 {
		cfg.CustomQueryMaxRows = 1000
	}
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = 60
	}
	return cfg, nil
}
