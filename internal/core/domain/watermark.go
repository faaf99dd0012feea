package domain

import (
	"fmt"
	"strings"
	"time"
)

// WatermarkLayout is the persisted form of a watermark: ISO-8601 with an
// explicit UTC offset, e.g. 2020-05-14T01:10:00+00:00.
const WatermarkLayout = "2006-01-02T15:04:05-07:00"

// FormatWatermark renders ts in WatermarkLayout, converted to UTC.
func FormatWatermark(ts time.Time) string {
	return ts.UTC().Format(WatermarkLayout)
}

// ParseWatermark accepts any RFC 3339 timestamp and normalises it to UTC.
func ParseWatermark(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty watermark")
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse watermark %q: %w", s, err)
	}
	return ts.UTC(), nil
}

// EpochWatermark converts provider epoch seconds into a watermark. Values <= 0
// carry no information and report false.
func EpochWatermark(sec int64) (time.Time, bool) {
	if sec <= 0 {
		return time.Time{}, false
	}
	return time.Unix(sec, 0).UTC(), true
}

// AlignTime truncates t to a multiple of interval since the Unix epoch.
func AlignTime(t time.Time, interval time.Duration) time.Time {
	if interval <= 0 {
		return t.UTC()
	}
	step := int64(interval / time.Second)
	if step <= 0 {
		return t.UTC()
	}
	return time.Unix(t.Unix()/step*step, 0).UTC()
}
