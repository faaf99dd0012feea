package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CyclesTotal tracks poll cycles by outcome
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_cycles_total",
			Help: "Total number of poll cycles by outcome",
		},
		[]string{"outcome"},
	)

	// CycleDuration tracks how long a full cycle takes
	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "connector_cycle_duration_seconds",
			Help:    "Poll cycle duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
	)

	// FetchTotal tracks provider fetches per dataset and result
	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_fetch_total",
			Help: "Total number of provider fetches",
		},
		[]string{"dataset", "result"},
	)

	// FetchLatency tracks provider request latency
	FetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "connector_fetch_latency_seconds",
			Help:    "Provider request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"dataset"},
	)

	// PayloadBytes tracks the size of downloaded archives
	PayloadBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_payload_bytes_total",
			Help: "Total compressed bytes downloaded",
		},
		[]string{"dataset"},
	)

	// EventsSent tracks events accepted by the collector
	EventsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_events_sent_total",
			Help: "Total number of events delivered to the collector",
		},
		[]string{"dataset", "sourcetype"},
	)

	// EventsSkipped tracks lines dropped because they failed to parse
	EventsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_events_skipped_total",
			Help: "Total number of malformed lines skipped",
		},
		[]string{"dataset"},
	)

	// SinkErrorsTotal tracks failed collector requests
	SinkErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_sink_errors_total",
			Help: "Total number of failed collector requests",
		},
		[]string{"sourcetype"},
	)

	// WatermarkTimestamp is the persisted watermark in epoch seconds
	WatermarkTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "connector_watermark_timestamp_seconds",
			Help: "Last persisted watermark as a Unix timestamp",
		},
	)

	// WatermarkWriteErrors tracks failed watermark writes
	WatermarkWriteErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "connector_watermark_write_errors_total",
			Help: "Total number of failed watermark writes",
		},
	)

	// DBConnectionPoolUsage tracks postgres pool usage when that backend is used
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "connector_db_connection_pool_usage_percent",
			Help: "Watermark database connection pool usage percentage",
		},
	)
)
