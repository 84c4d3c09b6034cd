// internal/workers/intelligence/invalidate-place-intelligence/config.go
package invalidateplaceintelligence

import (
	"time"

	"place-intelligence/internal/common/config"
)

type Config struct {
	Enabled bool
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Enabled: true,
		Timeout: 10 * time.Second,
	}
}

func ConfigFromApp(app *config.Config) *Config {
	cfg := LoadConfig()
	if app == nil {
		return cfg
	}
	w := config.GetWorkerConfig(app, TaskType)
	cfg.Enabled = w.Enabled
	if w.Timeout > 0 {
		cfg.Timeout = config.GetDuration(w.Timeout)
	}
	return cfg
}
