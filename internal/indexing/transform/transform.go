// Package transform parses raw dataset lines into events.
package transform

import (
	"bytes"
	stdjson "encoding/json"
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vietddude/btc-connector/internal/core/domain"
)

// TimestampField is the record field that supplies the event time.
const TimestampField = "block_timestamp"

// timestampLayouts are the string forms accepted for TimestampField besides
// plain epoch seconds.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 UTC",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
}

// ParseError describes a line that could not become an event.
type ParseError struct {
	// Line is 1-based when produced by Events, 0 from ParseLine.
	Line   int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := e.Reason
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseLine parses one JSON object line. The raw bytes are kept verbatim.
func ParseLine(line string) (domain.Event, error) {
	raw := bytes.TrimSpace([]byte(line))
	if len(raw) == 0 || raw[0] != '{' {
		return domain.Event{}, &ParseError{Reason: "not a JSON object"}
	}
	// The field map below leaves nested values unchecked; the raw bytes are
	// forwarded as-is, so the whole line must be well-formed.
	if !stdjson.Valid(raw) {
		return domain.Event{}, &ParseError{Reason: "invalid JSON"}
	}

	var fields map[string]stdjson.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return domain.Event{}, &ParseError{Reason: "invalid JSON", Err: err}
	}

	tsRaw, ok := fields[TimestampField]
	if !ok {
		return domain.Event{}, &ParseError{Reason: "missing " + TimestampField}
	}
	ts, err := parseTimestamp(tsRaw)
	if err != nil {
		return domain.Event{}, &ParseError{Reason: "invalid " + TimestampField, Err: err}
	}

	return domain.Event{Raw: stdjson.RawMessage(raw), Time: ts}, nil
}

// parseTimestamp returns epoch seconds from a JSON number or string.
func parseTimestamp(raw stdjson.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("empty value")
	}

	if raw[0] != '"' {
		sec, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %s", raw)
		}
		return sec, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	s = strings.TrimSpace(s)
	if sec, err := strconv.ParseFloat(s, 64); err == nil {
		return sec, nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return float64(ts.UnixNano()) / float64(time.Second), nil
		}
	}
	return 0, fmt.Errorf("unrecognized time %q", s)
}

// Events lazily parses lines in order. Every line yields exactly once, either
// an event or a *ParseError carrying its 1-based line number.
func Events(lines []string) iter.Seq2[domain.Event, error] {
	return func(yield func(domain.Event, error) bool) {
		for i, line := range lines {
			ev, err := ParseLine(line)
			if err != nil {
				if pe, ok := err.(*ParseError); ok {
					pe.Line = i + 1
				}
				if !yield(domain.Event{}, err) {
					return
				}
				continue
			}
			if !yield(ev, nil) {
				return
			}
		}
	}
}
