// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv          string `env:"APP_ENV" envDefault:"dev"`
	Port            int    `env:"PORT" envDefault:"8080"`
	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"regional-broker"`

	// Broker limits, see internal/broker.Limits. WorkOffline disables all
	// launcher calls: every enqueue is served by whatever workers are
	// already polling, which is how local dev and CI run the broker without
	// a real provisioning backend.
	WorkOffline              bool          `env:"WORK_OFFLINE" envDefault:"false"`
	MaxWorkers               int           `env:"MAX_WORKERS" envDefault:"0"`
	WorkerStartupWindow      time.Duration `env:"WORKER_STARTUP_WINDOW" envDefault:"1h"`
	WorkerTTL                time.Duration `env:"WORKER_TTL" envDefault:"120s"`
	MaxTasksPerPoll          int           `env:"MAX_TASKS_PER_POLL" envDefault:"8"`
	MaxRedeliveryPasses      int           `env:"MAX_REDELIVERY_PASSES" envDefault:"2"`
	RedeliveryQuietPeriod    time.Duration `env:"REDELIVERY_QUIET_PERIOD" envDefault:"2m"`

	// LauncherKind selects the LauncherPort implementation: "stub" logs and
	// does nothing, "cloud" issues a real provisioning HTTP call.
	LauncherKind        string        `env:"LAUNCHER_KIND" envDefault:"stub"`
	LauncherURL         string        `env:"LAUNCHER_URL" envDefault:""`
	LauncherAPIKey      string        `env:"LAUNCHER_API_KEY"`
	LauncherMaxElapsed  time.Duration `env:"LAUNCHER_BACKOFF_MAX_ELAPSED_TIME" envDefault:"30s"`
	LauncherInitialWait time.Duration `env:"LAUNCHER_BACKOFF_INITIAL_INTERVAL" envDefault:"500ms"`

	AdminUsername      string `env:"ADMIN_USERNAME"`
	AdminPassword      string `env:"ADMIN_PASSWORD"`
	AdminSessionSecret string `env:"ADMIN_SESSION_SECRET"`

	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin       int           `env:"RATE_LIMIT_PER_MIN" envDefault:"60"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}

// AdminEnabled returns true if admin-gated introspection endpoints should be
// mounted.
func (c Config) AdminEnabled() bool {
	return c.AdminUsername != "" && c.AdminPassword != "" && c.AdminSessionSecret != ""
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }
