package telegram

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"golang-stock-analyst/internal/indicator"
	"golang-stock-analyst/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(v bool) *bool {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestSplitMessageShortText(t *testing.T) {
	assert.Equal(t, []string{"hello"}, SplitMessage("hello", MaxMessageLength))
	assert.Equal(t, []string{""}, SplitMessage("", MaxMessageLength))
}

func TestSplitMessagePrefersNewlineBoundary(t *testing.T) {
	text := "aaaa\nbbbb\ncccc"

	parts := SplitMessage(text, 10)

	require.Equal(t, []string{"aaaa\nbbbb", "cccc"}, parts)
	assert.Equal(t, text, strings.Join(parts, "\n"))
}

func TestSplitMessageHardCutWithoutNewlines(t *testing.T) {
	text := strings.Repeat("a", 10000)

	parts := SplitMessage(text, MaxMessageLength)

	require.Len(t, parts, 3)
	assert.Len(t, parts[0], 4096)
	assert.Len(t, parts[1], 4096)
	assert.Len(t, parts[2], 1808)
	assert.Equal(t, text, strings.Join(parts, ""))
}

func TestSplitMessageNeverCutsInsideRune(t *testing.T) {
	// 100 rockets, 4 bytes each. A cut at 10 bytes lands mid-rune and must
	// back off to 8.
	text := strings.Repeat("🚀", 100)

	parts := SplitMessage(text, 10)

	require.Len(t, parts, 50)
	for _, part := range parts {
		assert.True(t, utf8.ValidString(part))
		assert.Len(t, part, 8)
	}
	assert.Equal(t, text, strings.Join(parts, ""))
}

func TestFormatPriceAlertMessageRSI(t *testing.T) {
	msg := FormatPriceAlertMessage(RSIOverbought, "AAPL", 75, 70, time.Date(2026, 8, 5, 13, 30, 0, 0, time.UTC).Unix())

	assert.Contains(t, msg, "[AAPL]")
	assert.Contains(t, msg, "RSI Overbought!")
	assert.Contains(t, msg, "RSI at 75.00 (threshold: 70)")
}

func TestFormatPriceAlertMessage52WeekHigh(t *testing.T) {
	msg := FormatPriceAlertMessage(Near52WeekHigh, "MSFT", 120, 121.5, time.Now().Unix())

	assert.Contains(t, msg, "[MSFT]")
	assert.Contains(t, msg, "Near 52-Week High!")
	assert.Contains(t, msg, "Price at 120.00 (52w level: 121.50)")
}

func TestFormatIndicatorSnapshotMessageNoTrend(t *testing.T) {
	msg := FormatIndicatorSnapshotMessage("AAPL", "1d", nil)

	assert.Contains(t, msg, "Indicator Snapshot: AAPL")
	assert.Contains(t, msg, "No trend data available")
}

func TestFormatIndicatorSnapshotMessage(t *testing.T) {
	trend := &indicator.TrendSnapshot{
		Price:         187.5,
		Above20SMA:    boolPtr(true),
		Above50SMA:    boolPtr(true),
		Above200SMA:   boolPtr(false),
		SMA20Above50:  boolPtr(true),
		SMA50Above200: nil,
		RSI:           floatPtr(61.4),
		MACDBullish:   boolPtr(true),
	}

	msg := FormatIndicatorSnapshotMessage("AAPL", "1d", trend)

	assert.Contains(t, msg, "Price: 187.50")
	assert.Contains(t, msg, "RSI(14): 61.40")
	assert.Contains(t, msg, "✅ Above SMA-20")
	assert.Contains(t, msg, "❌ Above SMA-200")
	assert.Contains(t, msg, "➖ SMA 50/200 bullish")
	assert.Contains(t, msg, "✅ MACD bullish")
}

func TestFormatStockReportMessage(t *testing.T) {
	rep := &report.Report{
		CompanyInfo: report.CompanyInfo{Name: "Apple Inc.", Sector: "Technology"},
		PriceData: report.PriceData{
			CurrentPrice:     187.5,
			FiftyTwoWeekHigh: report.Metric{Value: floatPtr(199.62)},
			FiftyTwoWeekLow:  report.Metric{Value: floatPtr(164.08)},
		},
		Performance: report.Performance{
			WeekReturn:  1.5,
			MonthReturn: -2.25,
			YearReturn:  12.8,
			Volatility:  floatPtr(0.25),
		},
		TechnicalStatus: report.TechnicalStatus{
			Above20SMA: boolPtr(true),
		},
		News: []report.Headline{
			{Title: "Apple beats estimates", Link: "https://finance.yahoo.com/news/apple-beats.html"},
		},
	}

	msg := FormatStockReportMessage("AAPL", rep)

	assert.Contains(t, msg, "Stock Report: AAPL")
	assert.Contains(t, msg, "Apple Inc. | Technology")
	assert.Contains(t, msg, "Current: 187.50")
	assert.Contains(t, msg, "52w High: 199.62 | 52w Low: 164.08")
	assert.Contains(t, msg, "Week: +1.50%")
	assert.Contains(t, msg, "Month: -2.25%")
	assert.Contains(t, msg, "Volatility (ann.): 25.0%")
	// Valuation metrics were absent from the provider payload.
	assert.Contains(t, msg, "P/E: n/a")
	assert.Contains(t, msg, "[Apple beats estimates](https://finance.yahoo.com/news/apple-beats.html)")
}

func TestFormatErrorAlertMessage(t *testing.T) {
	msg := FormatErrorAlertMessage(time.Date(2026, 8, 5, 13, 30, 0, 0, time.UTC), "MAX_RETRY_EXCEEDED", "boom", `{"stock_code":"AAPL"}`)

	assert.Contains(t, msg, "ERROR ALERT")
	assert.Contains(t, msg, "MAX_RETRY_EXCEEDED")
	assert.Contains(t, msg, "boom")
	assert.Contains(t, msg, `{"stock_code":"AAPL"}`)
}
