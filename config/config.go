package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the whole process configuration, parsed from the environment
// with an optional .env file on top.
type Config struct {
	Port        int    `env:"PORT" envDefault:"3000"`
	SessionsDir string `env:"PAIRGATE_SESSIONS_DIR" envDefault:"./sessions"`
	PublicDir   string `env:"PAIRGATE_PUBLIC_DIR" envDefault:"./public"`

	LogLevel  string `env:"PAIRGATE_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"PAIRGATE_LOG_FORMAT" envDefault:"json"`

	// RedisURL enables the redis-stream event publisher; empty keeps
	// events in-process.
	RedisURL string `env:"REDIS_URL"`

	// Attempt timing.
	WaitBudget       time.Duration `env:"PAIRGATE_WAIT_BUDGET" envDefault:"5m"`
	CodeAttempts     int           `env:"PAIRGATE_CODE_ATTEMPTS" envDefault:"3"`
	CodeRetryBase    time.Duration `env:"PAIRGATE_CODE_RETRY_BASE" envDefault:"2s"`
	CodeRequestDelay time.Duration `env:"PAIRGATE_CODE_REQUEST_DELAY" envDefault:"2s"`

	// Cleanup scheduler.
	SweepInterval time.Duration `env:"PAIRGATE_SWEEP_INTERVAL" envDefault:"60s"`
	StaleAfter    time.Duration `env:"PAIRGATE_STALE_AFTER" envDefault:"5m"`

	// Policies.
	QRPolicy        string `env:"PAIRGATE_QR_POLICY" envDefault:"immediate"`
	DeleteOnFailure bool   `env:"PAIRGATE_DELETE_ON_FAILURE" envDefault:"false"`

	// Transport dial profile.
	ConnectTimeout    time.Duration `env:"PAIRGATE_CONNECT_TIMEOUT" envDefault:"60s"`
	KeepAliveInterval time.Duration `env:"PAIRGATE_KEEPALIVE_INTERVAL" envDefault:"10s"`

	DownloadTokenTTL time.Duration `env:"PAIRGATE_DOWNLOAD_TOKEN_TTL" envDefault:"24h"`
}

var loadEnvOnce sync.Once

// Load parses the environment into a Config. The default .env file is
// loaded once per process; a missing file is fine.
func Load() (Config, error) {
	loadEnvOnce.Do(func() {
		_ = godotenv.Load()
	})

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// MustLoad panics when the environment cannot be parsed. Used at startup
// where a bad configuration should prevent the process from coming up.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
