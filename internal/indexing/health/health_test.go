package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/btc-connector/internal/core/domain"
	"github.com/vietddude/btc-connector/internal/indexing/poller"
	"github.com/vietddude/btc-connector/internal/infra/provider"
)

// =============================================================================
// Stubs
// =============================================================================

type stubStore struct {
	ts time.Time
	ok bool
}

func (s stubStore) Read(ctx context.Context) (time.Time, bool) { return s.ts, s.ok }

type stubProvider struct {
	status provider.HealthStatus
}

func (s stubProvider) GetHealth() provider.HealthStatus { return s.status }

type stubState poller.State

func (s stubState) State() poller.State { return poller.State(s) }

func cycle(outcome domain.CycleOutcome, datasets ...poller.DatasetResult) poller.CycleReport {
	r := poller.CycleReport{
		ID:        "c-1",
		StartedAt: time.Unix(2000, 0).UTC(),
		Duration:  1500 * time.Millisecond,
		Outcome:   outcome,
		Datasets:  datasets,
	}
	if outcome == domain.OutcomeFailed {
		r.Err = errors.New("provider reported no usable watermark")
	}
	return r
}

func delivered(name string, primary bool) poller.DatasetResult {
	return poller.DatasetResult{Dataset: name, Primary: primary, Sent: 10}
}

func failed(name string, primary bool) poller.DatasetResult {
	return poller.DatasetResult{Dataset: name, Primary: primary, Err: errors.New("collector responded 503"), FailedStage: poller.StageSend}
}

// =============================================================================
// Monitor Tests
// =============================================================================

func TestMonitor_NoCyclesYet(t *testing.T) {
	m := NewMonitor(Config{}, stubStore{}, nil, nil)
	report := m.CheckHealth(context.Background())

	assert.Equal(t, StatusHealthy, report.SystemStatus)
	assert.Nil(t, report.LastCycle)
	assert.Empty(t, report.Watermark)
	assert.Equal(t, 0, report.Cycles)
}

func TestMonitor_HealthyCycle(t *testing.T) {
	wm := time.Unix(2000, 0).UTC()
	m := NewMonitor(Config{StaleAfter: time.Hour}, stubStore{ts: wm, ok: true}, nil, stubState(poller.StateIdle))
	m.now = func() time.Time { return wm.Add(5 * time.Minute) }

	m.Record(cycle(domain.OutcomeSuccess,
		delivered(domain.DatasetTransactions, true),
		delivered(domain.DatasetTxnInOutAddrFlat, false),
	))
	report := m.CheckHealth(context.Background())

	assert.Equal(t, StatusHealthy, report.SystemStatus)
	assert.Equal(t, "idle", report.State)
	assert.Equal(t, "1970-01-01T00:33:20+00:00", report.Watermark)
	assert.Equal(t, "5m0s", report.WatermarkAge)
	require.NotNil(t, report.LastCycle)
	assert.Equal(t, "success", report.LastCycle.Outcome)
	assert.Equal(t, "1.5s", report.LastCycle.Duration)
	assert.Len(t, report.Datasets, 2)
	assert.Equal(t, 10, report.Datasets[domain.DatasetTransactions].Sent)
}

func TestMonitor_SecondaryFailureDegrades(t *testing.T) {
	m := NewMonitor(Config{}, stubStore{}, nil, nil)
	m.Record(cycle(domain.OutcomeSuccess,
		delivered(domain.DatasetTransactions, true),
		failed(domain.DatasetTxnInOutAddrFlat, false),
	))

	report := m.CheckHealth(context.Background())
	assert.Equal(t, StatusDegraded, report.SystemStatus)
	ds := report.Datasets[domain.DatasetTxnInOutAddrFlat]
	assert.Equal(t, StatusDegraded, ds.Status)
	assert.Contains(t, ds.LastError, "503")
}

func TestMonitor_ConsecutiveFailures(t *testing.T) {
	m := NewMonitor(Config{}, stubStore{}, nil, nil)

	for i := 1; i <= criticalFailures; i++ {
		m.Record(cycle(domain.OutcomeFailed, failed(domain.DatasetTransactions, true)))
		report := m.CheckHealth(context.Background())
		assert.Equal(t, i, report.ConsecutiveFailures)
		if i < criticalFailures {
			assert.Equal(t, StatusDegraded, report.SystemStatus)
		} else {
			assert.Equal(t, StatusCritical, report.SystemStatus)
		}
	}

	m.Record(cycle(domain.OutcomePartialCatchUp, delivered(domain.DatasetTransactions, true)))
	report := m.CheckHealth(context.Background())
	assert.Equal(t, 0, report.ConsecutiveFailures)
	assert.Equal(t, StatusHealthy, report.SystemStatus)
	assert.Equal(t, criticalFailures+1, report.Cycles)
}

func TestMonitor_StaleWatermark(t *testing.T) {
	wm := time.Unix(2000, 0).UTC()
	m := NewMonitor(Config{StaleAfter: time.Hour}, stubStore{ts: wm, ok: true}, nil, nil)
	m.now = func() time.Time { return wm.Add(2 * time.Hour) }

	report := m.CheckHealth(context.Background())
	assert.Equal(t, StatusDegraded, report.SystemStatus)
}

func TestMonitor_ProviderUnavailable(t *testing.T) {
	prov := stubProvider{status: provider.HealthStatus{Available: false, ErrorRate: 0.75, Latency: 120 * time.Millisecond}}
	m := NewMonitor(Config{}, stubStore{}, prov, nil)

	report := m.CheckHealth(context.Background())
	assert.Equal(t, StatusDegraded, report.SystemStatus)
	require.NotNil(t, report.Provider)
	assert.False(t, report.Provider.Available)
	assert.Equal(t, "120ms", report.Provider.Latency)
}

// =============================================================================
// Server Tests
// =============================================================================

func TestServer_Endpoints(t *testing.T) {
	m := NewMonitor(Config{}, stubStore{}, nil, nil)
	srv := httptest.NewServer(NewServer(m, 0).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	resp, err = http.Get(srv.URL + "/health/detailed")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	for range criticalFailures {
		m.Record(cycle(domain.OutcomeFailed))
	}
	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
