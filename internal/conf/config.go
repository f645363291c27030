package conf

import (
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/pkg/errors"
)

// Config is the process configuration, supplied entirely through the
// environment.
type Config struct {
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Port int    `env:"PORT" envDefault:"5055"`

	DataDir       string `env:"DATA_DIR" envDefault:"data"`
	ScreenshotDir string `env:"SCREENSHOT_DIR" envDefault:"screenshots"`
	LogFile       string `env:"LOG_FILE" envDefault:"browser-api.log"`

	// AgentURL is the base URL of the automation sidecar that drives the
	// shared browser.
	AgentURL string `env:"AGENT_URL" envDefault:"http://127.0.0.1:9333"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"https://app.social-genius.com,http://localhost:3000,http://localhost:3001,http://localhost:80,https://localhost"`

	// TaskRetention is how long finished tasks stay pollable.
	TaskRetention time.Duration `env:"TASK_RETENTION" envDefault:"1h"`
	// SessionMaxAge is the advisory staleness window for stored sessions.
	SessionMaxAge       time.Duration `env:"SESSION_MAX_AGE" envDefault:"168h"`
	ProgressLogInterval time.Duration `env:"PROGRESS_LOG_INTERVAL" envDefault:"10s"`
	DefaultTimeout      time.Duration `env:"DEFAULT_TIMEOUT" envDefault:"90s"`
	ValidateTimeout     time.Duration `env:"VALIDATE_TIMEOUT" envDefault:"30s"`
	HealthLogInterval   time.Duration `env:"HEALTH_LOG_INTERVAL" envDefault:"5m"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse environment")
	}
	return cfg, nil
}
