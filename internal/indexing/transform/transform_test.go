package transform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine_Verbatim(t *testing.T) {
	line := `{"hash":"3a5f","block_timestamp":1589418600,"fee":0.0001}`
	ev, err := ParseLine(line)
	require.NoError(t, err)
	assert.Equal(t, line, string(ev.Raw))
	assert.Equal(t, 1589418600.0, ev.Time)
}

func TestParseLine_TimestampForms(t *testing.T) {
	tests := []struct {
		name string
		ts   string
		want float64
	}{
		{"integer", `1589418600`, 1589418600},
		{"fractional", `1589418600.5`, 1589418600.5},
		{"numeric string", `"1589418600"`, 1589418600},
		{"rfc3339", `"2020-05-14T01:10:00Z"`, 1589418600},
		{"rfc3339 offset", `"2020-05-14T09:10:00+08:00"`, 1589418600},
		{"bigquery utc", `"2020-05-14 01:10:00 UTC"`, 1589418600},
		{"bigquery fraction", `"2020-05-14 01:10:00.250 UTC"`, 1589418600.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseLine(`{"block_timestamp":` + tt.ts + `}`)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, ev.Time, 0.001)
		})
	}
}

func TestParseLine_Errors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"array", `[1,2,3]`},
		{"truncated", `{"block_timestamp":1589418600`},
		{"missing timestamp", `{"hash":"x"}`},
		{"null timestamp", `{"block_timestamp":null}`},
		{"bool timestamp", `{"block_timestamp":true}`},
		{"garbage timestamp", `{"block_timestamp":"last tuesday"}`},
		{"leading zero", `{"block_timestamp":1,"a":01}`},
		{"trailing comma", `{"block_timestamp":1,"a":[1,]}`},
		{"bad escape", `{"block_timestamp":1,"a":"\x41"}`},
		{"raw control char", "{\"block_timestamp\":1,\"a\":\"x\ty\"}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLine(tt.line)
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.Equal(t, 0, pe.Line)
		})
	}
}

func TestEvents_YieldsEveryLineInOrder(t *testing.T) {
	lines := []string{
		`{"n":1,"block_timestamp":10}`,
		`{"n":2`,
		`{"n":3,"block_timestamp":30}`,
	}

	var times []float64
	var badLines []int
	for ev, err := range Events(lines) {
		if err != nil {
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			badLines = append(badLines, pe.Line)
			continue
		}
		times = append(times, ev.Time)
	}

	assert.Equal(t, []float64{10, 30}, times)
	assert.Equal(t, []int{2}, badLines)
}

func TestEvents_StopsWhenConsumerBreaks(t *testing.T) {
	lines := []string{`{"block_timestamp":1}`, `{"block_timestamp":2}`, `{"block_timestamp":3}`}

	seen := 0
	for range Events(lines) {
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}
