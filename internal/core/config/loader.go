package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/btc-connector/internal/indexing/poller"
)

// Error reports an unusable configuration. It is fatal at startup.
type Error struct {
	Field  string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Field == "" {
		if e.Err == nil {
			return "config: " + e.Reason
		}
		return fmt.Sprintf("config: %s: %v", e.Reason, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Reason: "failed to read config file", Err: err}
	}
	return Parse(data)
}

// Parse decodes YAML content, applies defaults and validates the result.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, &Error{Reason: "failed to parse config file", Err: err}
	}

	cfg.applyLegacy()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) applyLegacy() {
	fill := func(dst *string, legacy string) {
		if *dst == "" {
			*dst = legacy
		}
	}
	fill(&c.Provider.APIKey, c.LegacyAPIKey)
	fill(&c.Provider.Host, c.LegacyDataHost)
	fill(&c.Splunk.CollectorURL, c.LegacyCollectorURL)
	fill(&c.Splunk.Token, c.LegacyHECToken)
	fill(&c.Splunk.Index, c.LegacyIndex)
}

func (c *AppConfig) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = 60 * time.Second
	}
	if c.Splunk.AuthScheme == "" {
		c.Splunk.AuthScheme = "Splunk"
	}
	if c.Splunk.Index == "" {
		c.Splunk.Index = "btc_txns_v1"
	}
	if c.Splunk.Timeout == 0 {
		c.Splunk.Timeout = 60 * time.Second
	}
	if c.Poller.Mode == "" {
		c.Poller.Mode = poller.ModeWatermark
	}
	if c.Poller.LoadInterval == 0 {
		c.Poller.LoadInterval = 600 * time.Second
	}
	if c.Poller.CatchupInterval == 0 {
		c.Poller.CatchupInterval = 10 * time.Second
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.InitialDelay == 0 {
		c.Retry.InitialDelay = 2 * time.Second
	}
	if c.Retry.MaxDelay == 0 {
		c.Retry.MaxDelay = 30 * time.Second
	}
	if c.Watermark.Backend == "" {
		c.Watermark.Backend = BackendFile
	}
	if c.Watermark.Path == "" {
		c.Watermark.Path = "watermark.txt"
	}
	if c.Watermark.Name == "" {
		c.Watermark.Name = "btc_txns"
	}
}

// Validate checks that every required setting is present and consistent.
func (c *AppConfig) Validate() error {
	if c.Provider.Host == "" {
		return &Error{Field: "provider.host", Reason: "is required"}
	}
	if _, err := url.ParseRequestURI(c.Provider.Host); err != nil {
		return &Error{Field: "provider.host", Reason: "invalid URL", Err: err}
	}
	if c.Provider.APIKey == "" {
		return &Error{Field: "provider.api_key", Reason: "is required"}
	}
	if c.Splunk.CollectorURL == "" {
		return &Error{Field: "splunk.collector_url", Reason: "is required"}
	}
	if _, err := url.ParseRequestURI(c.Splunk.CollectorURL); err != nil {
		return &Error{Field: "splunk.collector_url", Reason: "invalid URL", Err: err}
	}
	if c.Splunk.Token == "" {
		return &Error{Field: "splunk.token", Reason: "is required"}
	}
	if c.Splunk.MaxBatchEvents < 0 {
		return &Error{Field: "splunk.max_batch_events", Reason: "must not be negative"}
	}
	switch c.Poller.Mode {
	case poller.ModeWatermark, poller.ModeAligned:
	default:
		return &Error{Field: "poller.mode", Reason: fmt.Sprintf("unknown mode %q", c.Poller.Mode)}
	}
	if c.Poller.LoadInterval < time.Second {
		return &Error{Field: "poller.load_interval", Reason: "must be at least 1s"}
	}
	if c.Poller.CatchupInterval <= 0 {
		return &Error{Field: "poller.catchup_interval", Reason: "must be positive"}
	}
	if c.Retry.MaxAttempts < 1 {
		return &Error{Field: "retry.max_attempts", Reason: "must be at least 1"}
	}
	switch c.Watermark.Backend {
	case BackendFile, BackendMemory:
	case BackendRedis:
		if c.Watermark.Redis.URL == "" {
			return &Error{Field: "watermark.redis.url", Reason: "is required for redis backend"}
		}
	case BackendPostgres:
		if c.Watermark.Database.URL == "" {
			return &Error{Field: "watermark.database.url", Reason: "is required for postgres backend"}
		}
	default:
		return &Error{Field: "watermark.backend", Reason: fmt.Sprintf("unknown backend %q", c.Watermark.Backend)}
	}
	return nil
}
