// Package health provides connector health monitoring and status reporting.
package health

import "time"

// SystemStatus represents the overall health state of the connector or a dataset.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// DatasetHealth is the result of a dataset in the most recent cycle.
type DatasetHealth struct {
	Dataset   string       `json:"dataset"`
	Primary   bool         `json:"primary"`
	Status    SystemStatus `json:"status"`
	Sent      int          `json:"sent"`
	Skipped   int          `json:"skipped"`
	LastError string       `json:"last_error,omitempty"`
}

// CycleHealth describes the most recent cycle.
type CycleHealth struct {
	ID        string    `json:"id"`
	Outcome   string    `json:"outcome"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
	Error     string    `json:"error,omitempty"`
}

// ProviderHealth mirrors the fetcher's request statistics.
type ProviderHealth struct {
	Available     bool      `json:"available"`
	ErrorRate     float64   `json:"error_rate"`
	Latency       string    `json:"latency"`
	LastSuccessAt time.Time `json:"last_success_at"`
	LastFailureAt time.Time `json:"last_failure_at"`
}

// HealthReport contains the full connector health report.
type HealthReport struct {
	SystemStatus        SystemStatus             `json:"system_status"`
	State               string                   `json:"state,omitempty"`
	Watermark           string                   `json:"watermark,omitempty"`
	WatermarkAge        string                   `json:"watermark_age,omitempty"`
	Cycles              int                      `json:"cycles"`
	ConsecutiveFailures int                      `json:"consecutive_failures"`
	LastCycle           *CycleHealth             `json:"last_cycle,omitempty"`
	Datasets            map[string]DatasetHealth `json:"datasets"`
	Provider            *ProviderHealth          `json:"provider,omitempty"`
}
