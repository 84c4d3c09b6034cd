// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // ignore error if not found

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	// INTELLIGENCE_WEATHER_ENABLED overrides intelligence.weather.enabled, etc.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// setDefaults registers defaults for keys whose zero value is meaningful (booleans, rates),
// so that AutomaticEnv can still override them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "place-intelligence")
	v.SetDefault("intelligence.model_version", "place-intel-v2")
	v.SetDefault("intelligence.rating_proxy.enabled", true)
	v.SetDefault("intelligence.rating_proxy.shared_cache", true)
	v.SetDefault("intelligence.weather.enabled", true)
	v.SetDefault("intelligence.weather.base_url", "https://api.open-meteo.com/v1/forecast")
	v.SetDefault("intelligence.telemetry.enabled", true)
	v.SetDefault("intelligence.telemetry.sample_rate", 0.1)
	v.SetDefault("intelligence.telemetry.postgres_sink", true)
	v.SetDefault("intelligence.telemetry.elastic_sink", false)
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// Direct override if secrets are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	if cfg.Auth.Keycloak.ClientSecret == "" {
		if val := os.Getenv("KEYCLOAK_CLIENT_SECRET"); val != "" {
			cfg.Auth.Keycloak.ClientSecret = val
		}
	}
	if cfg.Auth.IntegrityToken == "" {
		if val := os.Getenv("APP_INTEGRITY_TOKEN"); val != "" {
			cfg.Auth.IntegrityToken = val
		}
	}
	if cfg.Intelligence.RatingProxy.BaseURL == "" {
		if val := os.Getenv("RATING_PROXY_URL"); val != "" {
			cfg.Intelligence.RatingProxy.BaseURL = val
		}
	}
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.HTTPPort == 0 {
		cfg.App.HTTPPort = 8080
	}

	// Camunda defaults
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	// Database defaults
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	// Intelligence defaults
	in := &cfg.Intelligence
	if in.ResultTTL == 0 {
		in.ResultTTL = 15 * 60 * 1000
	}
	if in.ExternalTTL == 0 {
		in.ExternalTTL = 15 * 60 * 1000
	}
	if in.ContextTTL == 0 {
		in.ContextTTL = 30 * 60 * 1000
	}
	if in.MaxReports == 0 {
		in.MaxReports = 200
	}
	if in.Timezone == "" {
		in.Timezone = "UTC"
	}
	if in.RatingProxy.Timeout == 0 {
		in.RatingProxy.Timeout = 3000
	}
	if in.RatingProxy.BreakerFailures == 0 {
		in.RatingProxy.BreakerFailures = 5
	}
	if in.RatingProxy.BreakerOpenFor == 0 {
		in.RatingProxy.BreakerOpenFor = 30000
	}
	if in.RatingProxy.SharedCachePrefix == "" {
		in.RatingProxy.SharedCachePrefix = "perched:"
	}
	if in.Weather.Timeout == 0 {
		in.Weather.Timeout = 3000
	}
	if in.Telemetry.RatePerSec == 0 {
		in.Telemetry.RatePerSec = 2
	}
	if in.Telemetry.Burst == 0 {
		in.Telemetry.Burst = 5
	}
	if in.Telemetry.QueueSize == 0 {
		in.Telemetry.QueueSize = 64
	}
	if in.Telemetry.Index == "" {
		in.Telemetry.Index = "place-intelligence-snapshots"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	in := cfg.Intelligence
	if in.RatingProxy.Enabled && in.RatingProxy.BaseURL == "" {
		return fmt.Errorf("intelligence.rating_proxy.base_url is required when the rating proxy is enabled")
	}
	if in.RatingProxy.SharedCache && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when the shared cache is enabled")
	}
	if in.Weather.Enabled && in.Weather.BaseURL == "" {
		return fmt.Errorf("intelligence.weather.base_url is required when weather is enabled")
	}
	if in.Telemetry.SampleRate < 0 || in.Telemetry.SampleRate > 1 {
		return fmt.Errorf("intelligence.telemetry.sample_rate must be within [0,1], got %v", in.Telemetry.SampleRate)
	}
	if in.Telemetry.ElasticSink && cfg.Database.Elasticsearch.GetURL() == "" {
		return fmt.Errorf("database.elasticsearch.addresses or url is required for the elastic telemetry sink")
	}
	if _, err := time.LoadLocation(in.Timezone); err != nil {
		return fmt.Errorf("intelligence.timezone: %w", err)
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
