package poller

import (
	"time"

	"github.com/vietddude/btc-connector/internal/core/domain"
)

// Stage names the step a dataset failed at.
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageExtract Stage = "extract"
	StageSend    Stage = "send"
)

// DatasetResult is what happened to one dataset within a cycle.
type DatasetResult struct {
	Dataset string
	Primary bool
	Sent    int
	// Skipped counts malformed lines that were dropped.
	Skipped int
	// NewWatermark is the provider-reported watermark, nil when unknown.
	NewWatermark *time.Time
	FailedStage  Stage
	Err          error
}

// OK reports whether the dataset was delivered.
func (r DatasetResult) OK() bool {
	return r.Err == nil
}

// CycleReport summarises one poll cycle.
type CycleReport struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	TimeLast  *time.Time
	Target    time.Time
	// Watermark is the value persisted by this cycle, nil if none was.
	Watermark *time.Time
	Outcome   domain.CycleOutcome
	Datasets  []DatasetResult
	// Err explains a Failed outcome.
	Err error
}

// Sent returns the number of events delivered across all datasets.
func (r CycleReport) Sent() int {
	total := 0
	for _, d := range r.Datasets {
		total += d.Sent
	}
	return total
}

// Skipped returns the number of malformed lines dropped across all datasets.
func (r CycleReport) Skipped() int {
	total := 0
	for _, d := range r.Datasets {
		total += d.Skipped
	}
	return total
}
