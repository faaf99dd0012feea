package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/sourcegraph/conc"

	"github.com/vietddude/btc-connector/internal/core/config"
	"github.com/vietddude/btc-connector/internal/core/domain"
	"github.com/vietddude/btc-connector/internal/indexing/extract"
	"github.com/vietddude/btc-connector/internal/indexing/health"
	"github.com/vietddude/btc-connector/internal/indexing/poller"
	"github.com/vietddude/btc-connector/internal/indexing/sink"
	"github.com/vietddude/btc-connector/internal/infra/provider"
	"github.com/vietddude/btc-connector/internal/infra/transport"
)

// staleFactor is how many load intervals the watermark may lag before the
// connector reports itself degraded.
const staleFactor = 6

// Connector is the main application struct that owns every component and
// their lifecycle.
type Connector struct {
	cfg          *config.AppConfig
	backend      *WatermarkBackend
	fetcher      *provider.HTTPFetcher
	poller       *poller.Poller
	monitor      *health.Monitor
	healthServer *health.Server
	sessions     []*transport.Session
	log          *slog.Logger

	mu        sync.Mutex
	lifecycle conc.WaitGroup
	cancel    context.CancelFunc
}

// NewConnector creates a Connector with all dependencies initialized.
func NewConnector(ctx context.Context, cfg *config.AppConfig, opts ...poller.Option) (*Connector, error) {
	backend, err := OpenWatermark(ctx, cfg.Watermark)
	if err != nil {
		return nil, err
	}

	// One pool for the process; the collector gets its own only when it
	// needs different TLS settings.
	session := transport.NewSession(transport.Options{})
	sessions := []*transport.Session{session}
	sinkSession := session
	if cfg.Splunk.InsecureSkipVerify {
		sinkSession = transport.NewSession(transport.Options{InsecureSkipVerify: true})
		sessions = append(sessions, sinkSession)
		slog.Warn("TLS verification disabled for the event collector")
	}

	fetcher := provider.NewHTTPFetcher(provider.Config{
		Host:               cfg.Provider.Host,
		APIKey:             cfg.Provider.APIKey,
		Timeout:            cfg.Provider.Timeout,
		RateLimitPerMinute: cfg.Provider.RateLimitPerMinute,
	}, session)

	hec := sink.NewHECSink(sink.Config{
		URL:            cfg.Splunk.CollectorURL,
		Token:          cfg.Splunk.Token,
		AuthScheme:     cfg.Splunk.AuthScheme,
		Timeout:        cfg.Splunk.Timeout,
		MaxBatchEvents: cfg.Splunk.MaxBatchEvents,
	}, sinkSession)

	c := &Connector{
		cfg:      cfg,
		backend:  backend,
		fetcher:  fetcher,
		sessions: sessions,
		log:      slog.Default().With("component", "connector"),
	}

	opts = append([]poller.Option{
		poller.WithReportHook(func(r poller.CycleReport) { c.monitor.Record(r) }),
	}, opts...)
	c.poller = poller.New(poller.Config{
		Mode:            cfg.Poller.Mode,
		LoadInterval:    cfg.Poller.LoadInterval,
		CatchupInterval: cfg.Poller.CatchupInterval,
		Index:           cfg.Splunk.Index,
		Datasets:        domain.DefaultDatasets,
		Retry: poller.RetryConfig{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
		},
	}, poller.Deps{
		Store:     backend.Manager,
		Fetcher:   fetcher,
		Extractor: extract.New(extract.Config{TempDir: cfg.Poller.TempDir}),
		Sink:      hec,
	}, opts...)

	// Aligned mode never writes the watermark, so its age means nothing.
	staleAfter := staleFactor * cfg.Poller.LoadInterval
	if cfg.Poller.Mode == poller.ModeAligned {
		staleAfter = 0
	}
	c.monitor = health.NewMonitor(
		health.Config{StaleAfter: staleAfter},
		backend.Manager,
		fetcher,
		c.poller,
	)

	if cfg.Server.Port > 0 {
		c.healthServer = health.NewServer(c.monitor, cfg.Server.Port)
	}

	return c, nil
}

// Start launches the poll loop and, when configured, the health server.
// It returns immediately; use Wait or Stop to join.
func (c *Connector) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return errors.New("connector already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	if c.healthServer != nil {
		c.log.Info("Starting health server", "port", c.cfg.Server.Port)
		c.lifecycle.Go(func() {
			if err := c.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				c.log.Error("Health server failed", "error", err)
			}
		})
	}

	if c.backend.DB != nil {
		c.backend.DB.StartMetricsCollector(ctx)
	}

	c.lifecycle.Go(func() {
		if err := c.poller.Run(ctx); err != nil {
			c.log.Error("Poller failed", "error", err)
		}
	})

	return nil
}

// Wait blocks until every started goroutine has returned.
func (c *Connector) Wait() {
	c.lifecycle.Wait()
}

// RunOnce executes a single cycle without starting the loop.
func (c *Connector) RunOnce(ctx context.Context) poller.CycleReport {
	return c.poller.RunCycle(ctx)
}

// Health returns the current health report.
func (c *Connector) Health(ctx context.Context) health.HealthReport {
	return c.monitor.CheckHealth(ctx)
}

// Stop cancels the poll loop, shuts the health server down and releases
// connections.
func (c *Connector) Stop(ctx context.Context) error {
	c.log.Info("Stopping connector...")

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()

	var errs []error
	if c.healthServer != nil {
		if err := c.healthServer.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop health server: %w", err))
		}
	}

	done := make(chan struct{})
	go func() {
		c.lifecycle.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("wait for poller: %w", ctx.Err()))
	}

	for _, s := range c.sessions {
		s.Close()
	}
	if err := c.backend.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
