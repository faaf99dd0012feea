// Package poller runs the fetch, extract, send and advance cycle that moves
// provider data into the event collector.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/vietddude/btc-connector/internal/core/domain"
	"github.com/vietddude/btc-connector/internal/core/watermark"
	"github.com/vietddude/btc-connector/internal/indexing/metrics"
	"github.com/vietddude/btc-connector/internal/indexing/sink"
	"github.com/vietddude/btc-connector/internal/indexing/transform"
	"github.com/vietddude/btc-connector/internal/infra/provider"
)

const (
	// ModeWatermark targets the current time and resumes from the stored watermark.
	ModeWatermark = "watermark"
	// ModeAligned targets the last load-interval boundary and keeps no state.
	ModeAligned = "aligned"

	transitionHistory = 32
)

// ErrAlreadyRunning is returned by Run when the loop is already active.
var ErrAlreadyRunning = errors.New("poller already running")

// Extractor turns a downloaded archive into the lines of one dataset.
type Extractor interface {
	Extract(payload []byte, dataset string) ([]string, error)
}

// RetryConfig bounds in-cycle retries of transient fetch errors.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Config holds poller configuration.
type Config struct {
	Mode            string
	LoadInterval    time.Duration
	CatchupInterval time.Duration
	Index           string
	Datasets        []domain.Dataset
	Retry           RetryConfig
}

// Deps are the collaborators a cycle drives.
type Deps struct {
	Store     watermark.Store
	Fetcher   provider.Fetcher
	Extractor Extractor
	Sink      sink.Sink
}

// Option customises a Poller.
type Option func(*Poller)

// WithClock overrides the time source used for cycle targets.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

// WithSleeper overrides how the poller waits between cycles and retries.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Poller) { p.sleep = sleep }
}

// WithReportHook registers a callback invoked after every cycle.
func WithReportHook(fn func(CycleReport)) Option {
	return func(p *Poller) { p.onReport = fn }
}

// Poller drives poll cycles.
type Poller struct {
	cfg  Config
	deps Deps
	log  *slog.Logger

	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	onReport func(CycleReport)

	running atomic.Bool

	mu          sync.Mutex
	state       State
	transitions []Transition
}

// New creates a poller.
func New(cfg Config, deps Deps, opts ...Option) *Poller {
	if cfg.Mode == "" {
		cfg.Mode = ModeWatermark
	}
	if len(cfg.Datasets) == 0 {
		cfg.Datasets = domain.DefaultDatasets
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}

	p := &Poller{
		cfg:   cfg,
		deps:  deps,
		log:   slog.Default().With("component", "poller"),
		now:   time.Now,
		sleep: sleepContext,
		state: StateIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes cycles until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer p.running.Store(false)

	p.log.Info("Poller started",
		"mode", p.cfg.Mode,
		"load_interval", p.cfg.LoadInterval,
		"catchup_interval", p.cfg.CatchupInterval,
		"datasets", len(p.cfg.Datasets),
	)

	for {
		report := p.RunCycle(ctx)
		if ctx.Err() != nil {
			p.log.Info("Poller stopped")
			return nil
		}

		next := p.NextSleep(report.Outcome)
		attrs := []any{
			"cycle", report.ID,
			"outcome", report.Outcome,
			"sent", report.Sent(),
			"skipped", report.Skipped(),
			"duration", report.Duration.Round(time.Millisecond),
			"next_sleep", next,
		}
		if report.Watermark != nil {
			attrs = append(attrs, "watermark", domain.FormatWatermark(*report.Watermark))
		}
		if report.Err != nil {
			attrs = append(attrs, "error", report.Err, "error_kind", Classify(report.Err))
		}
		p.log.Info("Cycle finished", attrs...)

		if err := p.sleep(ctx, next); err != nil {
			p.log.Info("Poller stopped")
			return nil
		}
	}
}

// NextSleep returns how long to wait after a cycle with the given outcome.
func (p *Poller) NextSleep(outcome domain.CycleOutcome) time.Duration {
	if outcome == domain.OutcomePartialCatchUp {
		return p.cfg.CatchupInterval
	}
	return p.cfg.LoadInterval
}

// RunCycle executes one cycle. Every failure is captured in the report; the
// watermark only moves when the primary datasets were delivered and the
// provider reported a usable new value.
func (p *Poller) RunCycle(ctx context.Context) (report CycleReport) {
	start := time.Now()
	report = CycleReport{
		ID:        uuid.NewString(),
		StartedAt: p.now().UTC(),
	}
	log := p.log.With("cycle", report.ID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Cycle panicked", "panic", r, "stack", string(debug.Stack()))
			report.Outcome = domain.OutcomeFailed
			report.Err = fmt.Errorf("cycle panic: %v", r)
			report.Watermark = nil
			p.reset("panic")
		}
		report.Duration = time.Since(start)
		metrics.CyclesTotal.WithLabelValues(string(report.Outcome)).Inc()
		metrics.CycleDuration.Observe(report.Duration.Seconds())
		if p.onReport != nil {
			p.onReport(report)
		}
	}()

	p.runCycle(ctx, log, &report)
	return report
}

func (p *Poller) runCycle(ctx context.Context, log *slog.Logger, report *CycleReport) {
	aligned := p.cfg.Mode == ModeAligned
	if aligned {
		report.Target = domain.AlignTime(report.StartedAt, p.cfg.LoadInterval)
	} else {
		report.Target = report.StartedAt.Truncate(time.Second)
		if last, ok := p.deps.Store.Read(ctx); ok {
			report.TimeLast = &last
		}
	}

	log.Debug("Cycle started",
		"time_last", formatOptional(report.TimeLast),
		"time_current", domain.FormatWatermark(report.Target),
	)

	var primaryErr error
	var newWatermark *time.Time
	for _, ds := range p.cfg.Datasets {
		req := domain.LoadRequest{
			TimeLast:    report.TimeLast,
			TimeCurrent: report.Target,
			Dataset:     ds.Name,
		}
		result := p.processDataset(ctx, log, ds, req)
		report.Datasets = append(report.Datasets, result)

		if !ds.Primary {
			continue
		}
		if result.Err != nil {
			if primaryErr == nil {
				primaryErr = fmt.Errorf("dataset %s: %s: %w", ds.Name, result.FailedStage, result.Err)
			}
			continue
		}
		if newWatermark == nil {
			newWatermark = result.NewWatermark
		}
	}

	if primaryErr != nil {
		p.fail(report, primaryErr)
		return
	}

	if aligned {
		p.transition(StateAdvancing, "aligned window delivered")
		report.Outcome = domain.OutcomeSuccess
		p.transition(StateIdle, "cycle complete")
		return
	}

	if newWatermark == nil || newWatermark.Unix() <= 0 {
		p.fail(report, errNoWatermark)
		return
	}

	p.transition(StateAdvancing, "primary delivered")
	if err := p.deps.Store.Advance(ctx, *newWatermark); err != nil {
		if errors.Is(err, watermark.ErrWatermarkRegression) {
			p.fail(report, err)
			return
		}
		// The next cycle re-reads the previous value and resends the window.
		log.Error("Failed to persist watermark",
			"watermark", domain.FormatWatermark(*newWatermark),
			"error", err,
		)
	} else {
		wm := newWatermark.UTC()
		report.Watermark = &wm
	}

	if newWatermark.Before(report.Target) {
		report.Outcome = domain.OutcomePartialCatchUp
	} else {
		report.Outcome = domain.OutcomeSuccess
	}
	p.transition(StateIdle, "cycle complete")
}

var errNoWatermark = errors.New("provider reported no usable watermark")

func (p *Poller) fail(report *CycleReport, err error) {
	report.Outcome = domain.OutcomeFailed
	report.Err = err
	p.transition(StateFailed, err.Error())
	p.transition(StateIdle, "cycle aborted")
}

// processDataset runs fetch, extract, transform and send for one dataset.
func (p *Poller) processDataset(ctx context.Context, log *slog.Logger, ds domain.Dataset, req domain.LoadRequest) DatasetResult {
	result := DatasetResult{Dataset: ds.Name, Primary: ds.Primary}
	log = log.With(
		"dataset", ds.Name,
		"time_last", formatOptional(req.TimeLast),
		"time_current", domain.FormatWatermark(req.TimeCurrent),
	)

	failed := func(stage Stage, err error) DatasetResult {
		result.FailedStage = stage
		result.Err = err
		level := slog.LevelWarn
		if ds.Primary {
			level = slog.LevelError
		}
		log.Log(ctx, level, "Dataset failed",
			"stage", stage,
			"primary", ds.Primary,
			"error_kind", Classify(err),
			"error", err,
		)
		return result
	}

	p.transition(StateFetching, ds.Name)
	fetched, err := p.fetch(ctx, log, req)
	if err != nil {
		return failed(StageFetch, err)
	}
	result.NewWatermark = fetched.NewWatermark

	p.transition(StateExtracting, ds.Name)
	lines, err := p.deps.Extractor.Extract(fetched.Payload, ds.Name)
	if err != nil {
		return failed(StageExtract, err)
	}

	p.transition(StateSending, ds.Name)
	events := make([]domain.Event, 0, len(lines))
	for ev, err := range transform.Events(lines) {
		if err != nil {
			result.Skipped++
			log.Warn("Skipping malformed line", "error", err)
			continue
		}
		events = append(events, ev)
	}
	if result.Skipped > 0 {
		metrics.EventsSkipped.WithLabelValues(ds.Name).Add(float64(result.Skipped))
	}

	route := ds.Route(p.cfg.Index)
	sent, err := p.deps.Sink.Send(ctx, events, route)
	result.Sent = sent
	if sent > 0 {
		metrics.EventsSent.WithLabelValues(ds.Name, route.SourceType).Add(float64(sent))
	}
	if err != nil {
		return failed(StageSend, err)
	}

	log.Debug("Dataset delivered", "sent", sent, "skipped", result.Skipped)
	return result
}

// fetch calls the provider, retrying transient failures with exponential backoff.
func (p *Poller) fetch(ctx context.Context, log *slog.Logger, req domain.LoadRequest) (domain.FetchResult, error) {
	bo := backoff.NewExponentialBackOff()
	if p.cfg.Retry.InitialDelay > 0 {
		bo.InitialInterval = p.cfg.Retry.InitialDelay
	}
	if p.cfg.Retry.MaxDelay > 0 {
		bo.MaxInterval = p.cfg.Retry.MaxDelay
	}

	for attempt := 1; ; attempt++ {
		result, err := p.deps.Fetcher.Fetch(ctx, req)
		if err == nil {
			return result, nil
		}
		if attempt >= p.cfg.Retry.MaxAttempts || !provider.IsTransient(err) {
			return domain.FetchResult{}, err
		}

		delay := bo.NextBackOff()
		log.Warn("Fetch failed, retrying",
			"attempt", attempt,
			"max_attempts", p.cfg.Retry.MaxAttempts,
			"delay", delay,
			"error", err,
		)
		if err := p.sleep(ctx, delay); err != nil {
			return domain.FetchResult{}, err
		}
	}
}

// State returns the current cycle stage.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Transitions returns the most recent state changes, oldest first.
func (p *Poller) Transitions() []Transition {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Transition, len(p.transitions))
	copy(out, p.transitions)
	return out
}

func (p *Poller) transition(to State, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t := NewTransition(p.state, to, reason)
	if !t.IsValid() {
		p.log.Error("Rejected state transition", "from", t.From, "to", t.To, "error", ErrInvalidTransition)
		return
	}
	p.record(t)
}

// reset forces the machine back to idle after a panic.
func (p *Poller) reset(reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(NewTransition(p.state, StateIdle, reason))
}

func (p *Poller) record(t Transition) {
	p.state = t.To
	p.transitions = append(p.transitions, t)
	if len(p.transitions) > transitionHistory {
		p.transitions = p.transitions[len(p.transitions)-transitionHistory:]
	}
}

func formatOptional(ts *time.Time) string {
	if ts == nil {
		return "none"
	}
	return domain.FormatWatermark(*ts)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
