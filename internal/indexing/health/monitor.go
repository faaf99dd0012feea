package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/btc-connector/internal/core/domain"
	"github.com/vietddude/btc-connector/internal/indexing/poller"
	"github.com/vietddude/btc-connector/internal/infra/provider"
)

// criticalFailures is the number of consecutive failed cycles that turns the
// connector critical.
const criticalFailures = 3

// WatermarkReader reads the persisted watermark.
type WatermarkReader interface {
	Read(ctx context.Context) (time.Time, bool)
}

// ProviderStats exposes the fetcher's request statistics.
type ProviderStats interface {
	GetHealth() provider.HealthStatus
}

// StateReader exposes the poller's current stage.
type StateReader interface {
	State() poller.State
}

// Config holds monitor configuration.
type Config struct {
	// StaleAfter degrades the connector when the watermark is older than this.
	// Zero disables the check.
	StaleAfter time.Duration
}

// Monitor aggregates health status from cycle reports and components.
type Monitor struct {
	cfg      Config
	store    WatermarkReader
	provider ProviderStats
	state    StateReader
	now      func() time.Time

	mu                  sync.RWMutex
	last                *poller.CycleReport
	cycles              int
	consecutiveFailures int
}

// NewMonitor creates a new health monitor. provider and state may be nil.
func NewMonitor(cfg Config, store WatermarkReader, provider ProviderStats, state StateReader) *Monitor {
	return &Monitor{
		cfg:      cfg,
		store:    store,
		provider: provider,
		state:    state,
		now:      time.Now,
	}
}

// Record stores a finished cycle. It is meant to be used as the poller's
// report hook.
func (m *Monitor) Record(report poller.CycleReport) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.last = &report
	m.cycles++
	if report.Outcome == domain.OutcomeFailed {
		m.consecutiveFailures++
	} else {
		m.consecutiveFailures = 0
	}
}

// CheckHealth builds a health report.
func (m *Monitor) CheckHealth(ctx context.Context) HealthReport {
	m.mu.RLock()
	defer m.mu.RUnlock()

	report := HealthReport{
		SystemStatus:        StatusHealthy,
		Cycles:              m.cycles,
		ConsecutiveFailures: m.consecutiveFailures,
		Datasets:            make(map[string]DatasetHealth),
	}

	if m.state != nil {
		report.State = string(m.state.State())
	}

	if m.store != nil {
		if wm, ok := m.store.Read(ctx); ok {
			age := m.now().Sub(wm)
			report.Watermark = domain.FormatWatermark(wm)
			report.WatermarkAge = age.Round(time.Second).String()
			if m.cfg.StaleAfter > 0 && age > m.cfg.StaleAfter {
				report.SystemStatus = worst(report.SystemStatus, StatusDegraded)
			}
		}
	}

	if m.last != nil {
		cycle := &CycleHealth{
			ID:        m.last.ID,
			Outcome:   string(m.last.Outcome),
			StartedAt: m.last.StartedAt,
			Duration:  m.last.Duration.Round(time.Millisecond).String(),
		}
		if m.last.Err != nil {
			cycle.Error = m.last.Err.Error()
		}
		report.LastCycle = cycle

		for _, ds := range m.last.Datasets {
			h := DatasetHealth{
				Dataset: ds.Dataset,
				Primary: ds.Primary,
				Status:  StatusHealthy,
				Sent:    ds.Sent,
				Skipped: ds.Skipped,
			}
			if ds.Err != nil {
				h.LastError = ds.Err.Error()
				h.Status = StatusDegraded
				if ds.Primary {
					h.Status = StatusCritical
				}
				report.SystemStatus = worst(report.SystemStatus, StatusDegraded)
			}
			report.Datasets[ds.Dataset] = h
		}
	}

	if m.consecutiveFailures >= criticalFailures {
		report.SystemStatus = StatusCritical
	} else if m.consecutiveFailures > 0 {
		report.SystemStatus = worst(report.SystemStatus, StatusDegraded)
	}

	if m.provider != nil {
		stats := m.provider.GetHealth()
		report.Provider = &ProviderHealth{
			Available:     stats.Available,
			ErrorRate:     stats.ErrorRate,
			Latency:       stats.Latency.Round(time.Millisecond).String(),
			LastSuccessAt: stats.LastSuccessAt,
			LastFailureAt: stats.LastFailureAt,
		}
		if !stats.Available {
			report.SystemStatus = worst(report.SystemStatus, StatusDegraded)
		}
	}

	return report
}

func worst(a, b SystemStatus) SystemStatus {
	rank := func(s SystemStatus) int {
		switch s {
		case StatusCritical:
			return 2
		case StatusDegraded:
			return 1
		default:
			return 0
		}
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}
