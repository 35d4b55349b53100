package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStockDataParamValidate(t *testing.T) {
	tests := []struct {
		name    string
		param   GetStockDataParam
		wantErr bool
	}{
		{name: "daily over a year", param: GetStockDataParam{StockCode: "AAPL", Interval: "1d", Range: "1y"}},
		{name: "intraday", param: GetStockDataParam{StockCode: "AAPL", Interval: "5m", Range: "1d"}},
		{name: "weekly over max", param: GetStockDataParam{StockCode: "AAPL", Interval: "1wk", Range: "max"}},
		{name: "missing stock code", param: GetStockDataParam{Interval: "1d", Range: "1y"}, wantErr: true},
		{name: "unknown interval", param: GetStockDataParam{StockCode: "AAPL", Interval: "7m", Range: "1y"}, wantErr: true},
		{name: "unknown range", param: GetStockDataParam{StockCode: "AAPL", Interval: "1d", Range: "3y"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.param.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStockDataBars(t *testing.T) {
	data := &StockData{
		StockCode: "AAPL",
		OHLCV: []StockOHLCV{
			{Timestamp: 86400, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100},
			{Timestamp: 172800, Open: 1.5, High: 3, Low: 1, Close: 2.5, Volume: 200},
		},
	}

	bars := data.Bars()
	require.Len(t, bars, 2)

	assert.Equal(t, time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC), bars[0].Timestamp)
	assert.Equal(t, time.Date(1970, 1, 3, 0, 0, 0, 0, time.UTC), bars[1].Timestamp)
	assert.Equal(t, 1.5, bars[0].Close)
	assert.Equal(t, int64(200), bars[1].Volume)

	assert.Empty(t, (&StockData{}).Bars())
}

func TestYahooValueRawValue(t *testing.T) {
	var missing *YahooValue
	assert.Nil(t, missing.RawValue())
	assert.Nil(t, (&YahooValue{Fmt: "N/A"}).RawValue())

	raw := 31.4
	v := &YahooValue{Raw: &raw, Fmt: "31.40"}
	got := v.RawValue()
	require.NotNil(t, got)
	assert.Equal(t, 31.4, *got)

	// The unwrapped value is a copy, not an alias of the original.
	*got = 0
	assert.Equal(t, 31.4, *v.Raw)
}

func TestCompanyProfileReportMetadata(t *testing.T) {
	var missing *CompanyProfile
	assert.Equal(t, "", missing.ReportMetadata().Name)

	pe := 31.4
	profile := &CompanyProfile{
		StockCode:  "AAPL",
		Name:       "Apple Inc.",
		Sector:     "Technology",
		TrailingPE: &pe,
	}
	meta := profile.ReportMetadata()
	assert.Equal(t, "Apple Inc.", meta.Name)
	assert.Equal(t, "Technology", meta.Sector)
	require.NotNil(t, meta.TrailingPE)
	assert.Equal(t, 31.4, *meta.TrailingPE)
}
