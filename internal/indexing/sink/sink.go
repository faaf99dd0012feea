// Package sink delivers events to an HTTP event collector.
package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/vietddude/btc-connector/internal/core/domain"
	"github.com/vietddude/btc-connector/internal/indexing/metrics"
	"github.com/vietddude/btc-connector/internal/infra/transport"
)

// Sink delivers one dataset's events.
type Sink interface {
	// Send posts events and returns how many the collector accepted.
	Send(ctx context.Context, events []domain.Event, route domain.RouteInfo) (int, error)
}

// ErrEncodeBatch is returned when a batch cannot be encoded. Nothing is sent.
var ErrEncodeBatch = errors.New("encode batch")

// SinkError is returned when the collector rejects a batch.
type SinkError struct {
	StatusCode int
	Body       string
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("collector responded %d: %s", e.StatusCode, e.Body)
}

// Config configures an HECSink.
type Config struct {
	URL        string
	Token      string
	AuthScheme string
	Timeout    time.Duration
	// MaxBatchEvents splits a dataset into several requests; 0 sends one.
	MaxBatchEvents int
}

// HECSink implements Sink for a Splunk-style HTTP event collector.
type HECSink struct {
	cfg     Config
	session *transport.Session
	log     *slog.Logger
}

// NewHECSink creates a sink that posts through session.
func NewHECSink(cfg Config, session *transport.Session) *HECSink {
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Splunk"
	}
	return &HECSink{
		cfg:     cfg,
		session: session,
		log:     slog.Default().With("component", "sink"),
	}
}

// Send wraps every event with route and posts them. An empty input performs
// no request. A rejected batch fails the call; the returned count covers the
// batches accepted before it.
func (s *HECSink) Send(ctx context.Context, events []domain.Event, route domain.RouteInfo) (int, error) {
	if len(events) == 0 {
		s.log.Debug("No data to send", "sourcetype", route.SourceType)
		return 0, nil
	}

	batchSize := len(events)
	if s.cfg.MaxBatchEvents > 0 && s.cfg.MaxBatchEvents < batchSize {
		batchSize = s.cfg.MaxBatchEvents
	}

	sent := 0
	for start := 0; start < len(events); start += batchSize {
		end := min(start+batchSize, len(events))
		if err := s.post(ctx, events[start:end], route); err != nil {
			metrics.SinkErrorsTotal.WithLabelValues(route.SourceType).Inc()
			return sent, err
		}
		sent += end - start
	}

	s.log.Info("Sent to collector", "sourcetype", route.SourceType, "index", route.Index, "records", sent)
	return sent, nil
}

func (s *HECSink) post(ctx context.Context, events []domain.Event, route domain.RouteInfo) error {
	batch := make([]domain.HECEvent, len(events))
	for i, ev := range events {
		batch[i] = ev.Wrap(route)
	}

	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncodeBatch, err)
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", s.cfg.AuthScheme+" "+s.cfg.Token)
	req.Header.Set("X-Splunk-Request-Channel", uuid.NewString())

	resp, err := s.session.Client().Do(req)
	if err != nil {
		return fmt.Errorf("post batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &SinkError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
