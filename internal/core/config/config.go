package config

import (
	"time"

	"github.com/vietddude/btc-connector/internal/infra/storage/postgres"
	redisstore "github.com/vietddude/btc-connector/internal/infra/storage/redis"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Provider  ProviderConfig  `yaml:"provider"`
	Splunk    SplunkConfig    `yaml:"splunk"`
	Poller    PollerConfig    `yaml:"poller"`
	Retry     RetryConfig     `yaml:"retry"`
	Watermark WatermarkConfig `yaml:"watermark"`

	// Flat keys of the legacy settings file. They only fill structured
	// fields that are left empty.
	LegacyAPIKey       string `yaml:"apikey"`
	LegacyCollectorURL string `yaml:"splunk_http_collector_url"`
	LegacyIndex        string `yaml:"splunk_btc_txn_index"`
	LegacyHECToken     string `yaml:"splunk_hec_token"`
	LegacyDataHost     string `yaml:"anchain_btc_data_host"`
}

// ServerConfig holds health/metrics HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"` // 0 = disabled
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// ProviderConfig describes the remote transaction data API.
type ProviderConfig struct {
	Host               string        `yaml:"host"`
	APIKey             string        `yaml:"api_key"`
	Timeout            time.Duration `yaml:"timeout"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute"` // 0 = unlimited
}

// SplunkConfig describes the HTTP event collector.
type SplunkConfig struct {
	CollectorURL       string        `yaml:"collector_url"`
	Token              string        `yaml:"token"`
	AuthScheme         string        `yaml:"auth_scheme"`
	Index              string        `yaml:"index"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	Timeout            time.Duration `yaml:"timeout"`
	MaxBatchEvents     int           `yaml:"max_batch_events"` // 0 = one request per dataset
}

// PollerConfig controls the poll loop.
type PollerConfig struct {
	Mode            string        `yaml:"mode"` // watermark, aligned
	LoadInterval    time.Duration `yaml:"load_interval"`
	CatchupInterval time.Duration `yaml:"catchup_interval"`
	TempDir         string        `yaml:"temp_dir"`
}

// RetryConfig controls retries of transient fetch failures within a cycle.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// WatermarkConfig selects and configures the watermark backend.
type WatermarkConfig struct {
	Backend  string            `yaml:"backend"` // file, memory, redis, postgres
	Path     string            `yaml:"path"`
	Name     string            `yaml:"name"`
	Redis    redisstore.Config `yaml:"redis"`
	Database postgres.Config   `yaml:"database"`
}

// Watermark backends.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)
