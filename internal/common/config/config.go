// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App          AppConfig               `mapstructure:"app"`
	Camunda      CamundaConfig           `mapstructure:"camunda"`
	Database     DatabaseConfig          `mapstructure:"database"`
	Workers      map[string]WorkerConfig `mapstructure:"workers"`
	Auth         AuthConfig              `mapstructure:"auth"`
	Intelligence IntelligenceConfig      `mapstructure:"intelligence"`
	Registry     RegistryConfig          `mapstructure:"registry"`
	Logging      LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	HTTPPort    int    `mapstructure:"http_port"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// AuthConfig holds the client-credentials settings used to call the rating proxy.
type AuthConfig struct {
	Keycloak struct {
		URL          string `mapstructure:"url"`
		Realm        string `mapstructure:"realm"`
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
	} `mapstructure:"keycloak"`

	// IntegrityToken is a static attestation value sent as X-App-Integrity. Empty disables the header.
	IntegrityToken string `mapstructure:"integrity_token"`
}

// KeycloakEnabled reports whether enough is configured to request tokens.
func (a AuthConfig) KeycloakEnabled() bool {
	return a.Keycloak.URL != "" && a.Keycloak.Realm != "" && a.Keycloak.ClientID != ""
}

// IntelligenceConfig drives the place intelligence engine.
type IntelligenceConfig struct {
	ModelVersion string `mapstructure:"model_version"`
	ResultTTL    int    `mapstructure:"result_ttl"`   // milliseconds
	ExternalTTL  int    `mapstructure:"external_ttl"` // milliseconds
	ContextTTL   int    `mapstructure:"context_ttl"`  // milliseconds
	MaxReports   int    `mapstructure:"max_reports"`
	Timezone     string `mapstructure:"timezone"`

	RatingProxy RatingProxyConfig `mapstructure:"rating_proxy"`
	Weather     WeatherConfig     `mapstructure:"weather"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

type RatingProxyConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	BaseURL           string `mapstructure:"base_url"`
	Timeout           int    `mapstructure:"timeout"` // milliseconds
	BreakerFailures   int    `mapstructure:"breaker_failures"`
	BreakerOpenFor    int    `mapstructure:"breaker_open_for"` // milliseconds
	SharedCache       bool   `mapstructure:"shared_cache"`
	SharedCachePrefix string `mapstructure:"shared_cache_prefix"`
}

type WeatherConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	SampleRate   float64 `mapstructure:"sample_rate"`
	RatePerSec   float64 `mapstructure:"rate_per_sec"`
	Burst        int     `mapstructure:"burst"`
	QueueSize    int     `mapstructure:"queue_size"`
	PostgresSink bool    `mapstructure:"postgres_sink"`
	ElasticSink  bool    `mapstructure:"elastic_sink"`
	Index        string  `mapstructure:"index"`
}

// RegistryConfig points at an activity registry file; empty uses the embedded one.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

func (i IntelligenceConfig) ResultTTLDuration() time.Duration   { return GetDuration(i.ResultTTL) }
func (i IntelligenceConfig) ExternalTTLDuration() time.Duration { return GetDuration(i.ExternalTTL) }
func (i IntelligenceConfig) ContextTTLDuration() time.Duration  { return GetDuration(i.ContextTTL) }
