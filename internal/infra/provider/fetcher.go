// Package provider fetches compressed transaction datasets from the remote
// data API.
package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/vietddude/btc-connector/internal/core/domain"
	"github.com/vietddude/btc-connector/internal/indexing/metrics"
	"github.com/vietddude/btc-connector/internal/infra/transport"
)

const (
	contentTypeJSON = "application/json"
	contentTypeZip  = "application/zip"

	// HeaderTimeLast carries the provider's new watermark in epoch seconds.
	HeaderTimeLast = "time_last"

	maxErrorBody = 1024
)

// Fetcher loads one dataset for a time range.
type Fetcher interface {
	Fetch(ctx context.Context, req domain.LoadRequest) (domain.FetchResult, error)
}

// Config configures an HTTPFetcher.
type Config struct {
	Host               string
	APIKey             string
	Timeout            time.Duration
	RateLimitPerMinute int
}

// HealthStatus summarizes recent fetch results.
type HealthStatus struct {
	Available     bool
	LastSuccessAt time.Time
	LastFailureAt time.Time
	ErrorRate     float64
	Latency       time.Duration
}

// HTTPFetcher implements Fetcher against the provider's POST endpoint.
type HTTPFetcher struct {
	cfg     Config
	session *transport.Session
	limiter *rate.Limiter
	log     *slog.Logger

	mu           sync.RWMutex
	health       HealthStatus
	totalLatency time.Duration
	successCount int
	failureCount int
	requestCount int
}

// NewHTTPFetcher creates a fetcher that issues requests through session.
func NewHTTPFetcher(cfg Config, session *transport.Session) *HTTPFetcher {
	f := &HTTPFetcher{
		cfg:     cfg,
		session: session,
		log:     slog.Default().With("component", "provider"),
		health: HealthStatus{
			Available: true,
		},
	}
	if cfg.RateLimitPerMinute > 0 {
		f.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RateLimitPerMinute)), 1)
	}
	return f
}

type loadBody struct {
	APIKey      string  `json:"apikey"`
	TimeLast    *string `json:"time_last"`
	TimeCurrent string  `json:"time_current"`
	FileName    string  `json:"file_name"`
}

// Fetch issues one range query. It never retries.
func (f *HTTPFetcher) Fetch(ctx context.Context, req domain.LoadRequest) (domain.FetchResult, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return domain.FetchResult{}, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := f.do(ctx, req)
	latency := time.Since(start)
	metrics.FetchLatency.WithLabelValues(req.Dataset).Observe(latency.Seconds())

	if err != nil {
		f.recordFailure()
		metrics.FetchTotal.WithLabelValues(req.Dataset, "error").Inc()
		return domain.FetchResult{}, err
	}

	f.recordSuccess(latency)
	metrics.FetchTotal.WithLabelValues(req.Dataset, "ok").Inc()
	metrics.PayloadBytes.WithLabelValues(req.Dataset).Add(float64(len(result.Payload)))
	f.log.Info("Loaded dataset from provider",
		"dataset", req.Dataset,
		"size", len(result.Payload),
		"new_watermark", formatOptional(result.NewWatermark),
	)
	return result, nil
}

func (f *HTTPFetcher) do(ctx context.Context, req domain.LoadRequest) (domain.FetchResult, error) {
	body := loadBody{
		APIKey:      f.cfg.APIKey,
		TimeCurrent: domain.FormatWatermark(req.TimeCurrent),
		FileName:    req.Dataset,
	}
	if req.TimeLast != nil {
		last := domain.FormatWatermark(*req.TimeLast)
		body.TimeLast = &last
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return domain.FetchResult{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.Host, bytes.NewReader(jsonData))
	if err != nil {
		return domain.FetchResult{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentTypeJSON)

	resp, err := f.session.Client().Do(httpReq)
	if err != nil {
		return domain.FetchResult{}, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.FetchResult{}, &TransportError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return domain.FetchResult{}, &HTTPStatusError{
			StatusCode: resp.StatusCode,
			Body:       truncate(string(payload), maxErrorBody),
		}
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}

	switch mediaType {
	case contentTypeJSON:
		var errResp struct {
			ErrMsg string `json:"err_msg"`
		}
		if err := json.Unmarshal(payload, &errResp); err != nil {
			return domain.FetchResult{}, &RemoteError{Message: truncate(string(payload), maxErrorBody)}
		}
		return domain.FetchResult{}, &RemoteError{Message: errResp.ErrMsg}
	case contentTypeZip:
		return domain.FetchResult{
			Payload:      payload,
			NewWatermark: parseTimeLast(resp.Header.Get(HeaderTimeLast)),
		}, nil
	default:
		return domain.FetchResult{}, &UnexpectedContentTypeError{ContentType: contentType}
	}
}

// parseTimeLast returns nil for a missing, malformed or non-positive header.
func parseTimeLast(v string) *time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	sec, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	ts, ok := domain.EpochWatermark(sec)
	if !ok {
		return nil
	}
	return &ts
}

// GetHealth returns the fetcher's health status.
func (f *HTTPFetcher) GetHealth() HealthStatus {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.health
}

func (f *HTTPFetcher) recordSuccess(latency time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.successCount++
	f.requestCount++
	f.totalLatency += latency
	f.health.LastSuccessAt = time.Now()
	f.health.Available = true

	f.health.ErrorRate = float64(f.failureCount) / float64(f.requestCount)
	f.health.Latency = f.totalLatency / time.Duration(f.successCount)
}

func (f *HTTPFetcher) recordFailure() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failureCount++
	f.requestCount++
	f.health.LastFailureAt = time.Now()
	f.health.ErrorRate = float64(f.failureCount) / float64(f.requestCount)

	if f.health.ErrorRate > 0.5 {
		f.health.Available = false
	}
}

func formatOptional(ts *time.Time) string {
	if ts == nil {
		return "unknown"
	}
	return domain.FormatWatermark(*ts)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
