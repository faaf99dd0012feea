package cli

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestampArg(t *testing.T) {
	ts, err := parseTimestampArg("1589418600")
	require.NoError(t, err)
	assert.Equal(t, int64(1589418600), ts.Unix())

	ts, err = parseTimestampArg(" 2020-05-14T09:10:00+08:00 ")
	require.NoError(t, err)
	assert.Equal(t, int64(1589418600), ts.Unix())

	_, err = parseTimestampArg("0")
	assert.Error(t, err)
	_, err = parseTimestampArg("-10")
	assert.Error(t, err)
	_, err = parseTimestampArg("yesterday")
	assert.Error(t, err)
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, logLevel(""))
	assert.Equal(t, slog.LevelInfo, logLevel("info"))
	assert.Equal(t, slog.LevelDebug, logLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, logLevel("warning"))
	assert.Equal(t, slog.LevelError, logLevel("error"))

	isDebug = true
	defer func() { isDebug = false }()
	assert.Equal(t, slog.LevelDebug, logLevel("error"))
}

func TestCommandTree(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["once"])
	assert.True(t, names["watermark"])

	sub := map[string]bool{}
	for _, c := range watermarkCmd.Commands() {
		sub[c.Name()] = true
	}
	assert.Equal(t, map[string]bool{"show": true, "set": true, "reset": true}, sub)
}
