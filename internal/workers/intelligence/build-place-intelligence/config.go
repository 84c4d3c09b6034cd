// internal/workers/intelligence/build-place-intelligence/config.go
package buildplaceintelligence

import (
	"fmt"
	"time"

	"place-intelligence/internal/common/config"
)

type Config struct {
	Enabled    bool
	Timeout    time.Duration
	MaxReports int
}

func LoadConfig() *Config {
	return &Config{
		Enabled:    true,
		Timeout:    30 * time.Second,
		MaxReports: 200,
	}
}

// ConfigFromApp merges the worker block and the intelligence section over the defaults.
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
	if app.Intelligence.MaxReports > 0 {
		cfg.MaxReports = app.Intelligence.MaxReports
	}
	return cfg
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.MaxReports <= 0 {
		return fmt.Errorf("max reports must be positive, got %d", c.MaxReports)
	}
	return nil
}
