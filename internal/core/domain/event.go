package domain

import "encoding/json"

// Event is one parsed transaction record.
type Event struct {
	// Raw is the record exactly as received, forwarded verbatim.
	Raw json.RawMessage
	// Time is the record's block_timestamp in epoch seconds.
	Time float64
}

// RouteInfo tells the sink where a batch of events belongs.
type RouteInfo struct {
	Index      string
	SourceType string
}

// HECEvent is the envelope posted to the event collector.
type HECEvent struct {
	Event      json.RawMessage `json:"event"`
	Time       float64         `json:"time"`
	SourceType string          `json:"sourcetype"`
	Index      string          `json:"index"`
}

// Wrap annotates the event with its routing metadata.
func (e Event) Wrap(route RouteInfo) HECEvent {
	return HECEvent{
		Event:      e.Raw,
		Time:       e.Time,
		SourceType: route.SourceType,
		Index:      route.Index,
	}
}
