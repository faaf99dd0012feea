package domain

import "time"

// LoadRequest asks the provider for one dataset over (TimeLast, TimeCurrent].
type LoadRequest struct {
	// TimeLast is nil on a cold start; the provider then picks its own window.
	TimeLast    *time.Time
	TimeCurrent time.Time
	Dataset     string
}

// FetchResult is a successful provider response.
type FetchResult struct {
	Payload []byte
	// NewWatermark is nil when the provider did not report a usable value.
	NewWatermark *time.Time
}

// CycleOutcome is the result of one poll cycle.
type CycleOutcome string

const (
	// OutcomeSuccess means the watermark reached the target time.
	OutcomeSuccess CycleOutcome = "success"
	// OutcomePartialCatchUp means the watermark advanced but more data remains.
	OutcomePartialCatchUp CycleOutcome = "partial_catchup"
	// OutcomeFailed means no usable watermark was obtained; nothing was persisted.
	OutcomeFailed CycleOutcome = "failed"
)
