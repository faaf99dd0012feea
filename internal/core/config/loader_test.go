package config

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/vietddude/btc-connector/internal/indexing/poller"
)

const minimalConfig = `
provider:
  host: https://data.example.com/btc_txns
  api_key: key-1
splunk:
  collector_url: https://splunk.example.com:8088/services/collector
  token: tok-1
`

func TestLoad_EnvSubstitution(t *testing.T) {
	// Setup env var
	os.Setenv("TEST_HEC_TOKEN", "d66eb2d3-7ed1-47f0-bdfd-fab47fbb168f")
	defer os.Unsetenv("TEST_HEC_TOKEN")

	// Create temp config file
	configContent := `
provider:
  host: https://data.example.com/btc_txns
  api_key: key-1
splunk:
  collector_url: https://splunk.example.com:8088/services/collector
  token: ${TEST_HEC_TOKEN}
`
	tmpFile, err := os.CreateTemp("", "config_*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write([]byte(configContent)); err != nil {
		t.Fatalf("Failed to write to temp file: %v", err)
	}
	tmpFile.Close()

	// Load config
	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Splunk.Token != "d66eb2d3-7ed1-47f0-bdfd-fab47fbb168f" {
		t.Errorf("Expected token from env, got %s", cfg.Splunk.Token)
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalConfig))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Poller.Mode != poller.ModeWatermark {
		t.Errorf("expected watermark mode, got %s", cfg.Poller.Mode)
	}
	if cfg.Poller.LoadInterval != 600*time.Second {
		t.Errorf("expected 600s load interval, got %v", cfg.Poller.LoadInterval)
	}
	if cfg.Poller.CatchupInterval != 10*time.Second {
		t.Errorf("expected 10s catch-up interval, got %v", cfg.Poller.CatchupInterval)
	}
	if cfg.Splunk.AuthScheme != "Splunk" {
		t.Errorf("expected Splunk auth scheme, got %s", cfg.Splunk.AuthScheme)
	}
	if cfg.Splunk.Index != "btc_txns_v1" {
		t.Errorf("expected default index, got %s", cfg.Splunk.Index)
	}
	if cfg.Watermark.Backend != BackendFile || cfg.Watermark.Path != "watermark.txt" {
		t.Errorf("unexpected watermark defaults: %+v", cfg.Watermark)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("expected 3 retry attempts, got %d", cfg.Retry.MaxAttempts)
	}
}

func TestParse_Durations(t *testing.T) {
	cfg, err := Parse([]byte(minimalConfig + `
poller:
  load_interval: 5m
  catchup_interval: 3s
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Poller.LoadInterval != 5*time.Minute {
		t.Errorf("expected 5m, got %v", cfg.Poller.LoadInterval)
	}
	if cfg.Poller.CatchupInterval != 3*time.Second {
		t.Errorf("expected 3s, got %v", cfg.Poller.CatchupInterval)
	}
}

func TestParse_LegacyKeys(t *testing.T) {
	legacy := `
apikey: kkkk
splunk_http_collector_url: https://localhost:8088/services/collector
splunk_btc_txn_index: btc_txns_v2
splunk_hec_token: tok
anchain_btc_data_host: https://data.anchainai.com/btc_txns
`
	cfg, err := Parse([]byte(legacy))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Provider.APIKey != "kkkk" {
		t.Errorf("expected legacy api key, got %q", cfg.Provider.APIKey)
	}
	if cfg.Provider.Host != "https://data.anchainai.com/btc_txns" {
		t.Errorf("expected legacy host, got %q", cfg.Provider.Host)
	}
	if cfg.Splunk.Index != "btc_txns_v2" {
		t.Errorf("expected legacy index, got %q", cfg.Splunk.Index)
	}
	if cfg.Splunk.Token != "tok" {
		t.Errorf("expected legacy token, got %q", cfg.Splunk.Token)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		extra string
		field string
	}{
		{"bad mode", "poller:\n  mode: hourly\n", "poller.mode"},
		{"bad backend", "watermark:\n  backend: s3\n", "watermark.backend"},
		{"redis without url", "watermark:\n  backend: redis\n", "watermark.redis.url"},
		{"postgres without url", "watermark:\n  backend: postgres\n", "watermark.database.url"},
		{"negative batch", "splunk:\n  collector_url: https://s/c\n  token: t\n  max_batch_events: -1\n", "splunk.max_batch_events"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := minimalConfig + tt.extra
			if tt.field == "splunk.max_batch_events" {
				content = "provider:\n  host: https://d/x\n  api_key: k\n" + tt.extra
			}
			_, err := Parse([]byte(content))
			var cfgErr *Error
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *config.Error, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("expected field %s, got %s (%v)", tt.field, cfgErr.Field, err)
			}
		})
	}
}

func TestParse_MissingRequired(t *testing.T) {
	_, err := Parse([]byte("splunk:\n  token: t\n"))
	var cfgErr *Error
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *config.Error, got %v", err)
	}
	if cfgErr.Field != "provider.host" {
		t.Errorf("expected provider.host, got %s", cfgErr.Field)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	var cfgErr *Error
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *config.Error, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped ErrNotExist, got %v", err)
	}
}
