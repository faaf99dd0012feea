package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWatermark(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"2020-05-14T01:10:00+00:00", 1589418600},
		{"2020-05-14T01:10:00Z", 1589418600},
		{"2020-05-14T09:10:00+08:00", 1589418600},
		{"2020-05-14T01:10:00.000000+00:00\n", 1589418600},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ts, err := ParseWatermark(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ts.Unix())
			assert.Equal(t, time.UTC, ts.Location())
		})
	}

	_, err := ParseWatermark("")
	assert.Error(t, err)
	_, err = ParseWatermark("1589418600")
	assert.Error(t, err)
}

func TestFormatWatermark_RoundTrip(t *testing.T) {
	ts := time.Date(2020, 5, 14, 9, 10, 0, 0, time.FixedZone("CST", 8*3600))
	s := FormatWatermark(ts)
	assert.Equal(t, "2020-05-14T01:10:00+00:00", s)

	back, err := ParseWatermark(s)
	require.NoError(t, err)
	assert.True(t, back.Equal(ts))
}

func TestEpochWatermark(t *testing.T) {
	_, ok := EpochWatermark(0)
	assert.False(t, ok)
	_, ok = EpochWatermark(-5)
	assert.False(t, ok)

	ts, ok := EpochWatermark(1589418600)
	require.True(t, ok)
	assert.Equal(t, int64(1589418600), ts.Unix())
}

func TestAlignTime(t *testing.T) {
	ts := time.Unix(1589418999, 0)
	assert.Equal(t, int64(1589418600), AlignTime(ts, 600*time.Second).Unix())
	assert.Equal(t, int64(1589418600), AlignTime(time.Unix(1589418600, 0), 600*time.Second).Unix())
	assert.Equal(t, ts.Unix(), AlignTime(ts, 0).Unix())
}

func TestSourceType(t *testing.T) {
	assert.Equal(t, "st-btc-txn-abbr", SourceType(CollectorTxnAbbr))
	assert.Equal(t, "st-btc-txn-inout-addr-flat", SourceType(CollectorTxnInOutAddrFlat))
	assert.Panics(t, func() { SourceType("btc-unknown") })
}

func TestDefaultDatasets(t *testing.T) {
	require.Len(t, DefaultDatasets, 2)
	assert.True(t, DefaultDatasets[0].Primary)
	assert.False(t, DefaultDatasets[1].Primary)
	assert.Equal(t, "transactions.json", DefaultDatasets[0].MemberName())

	route := DefaultDatasets[1].Route("btc_txns_v1")
	assert.Equal(t, RouteInfo{Index: "btc_txns_v1", SourceType: "st-btc-txn-inout-addr-flat"}, route)
}
