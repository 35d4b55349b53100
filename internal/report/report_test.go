package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-stock-analyst/internal/indicator"
)

func seriesFromCloses(closes ...float64) []indicator.Bar {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]indicator.Bar, len(closes))
	for i, c := range closes {
		bars[i] = indicator.Bar{
			Timestamp: base.Add(time.Duration(i) * 24 * time.Hour),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

func flatCloses(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func TestBuildEmptySeries(t *testing.T) {
	_, err := Build("AAPL", nil, Metadata{}, nil)
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestBuildZeroReferenceClose(t *testing.T) {
	closes := flatCloses(10, 100)
	closes[0] = 0
	_, err := Build("AAPL", seriesFromCloses(closes...), Metadata{}, nil)
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestBuildReturnAnchors(t *testing.T) {
	// 30 rows: week anchor at index 25, month anchor at index 8, year
	// anchor at index 0.
	closes := flatCloses(30, 100)
	closes[0] = 80
	closes[8] = 96
	closes[25] = 100
	closes[29] = 120

	r, err := Build("AAPL", seriesFromCloses(closes...), Metadata{}, nil)
	require.NoError(t, err)

	assert.InDelta(t, 120, r.PriceData.CurrentPrice, 1e-9)
	assert.InDelta(t, 20, r.Performance.WeekReturn, 1e-9)
	assert.InDelta(t, 25, r.Performance.MonthReturn, 1e-9)
	assert.InDelta(t, 50, r.Performance.YearReturn, 1e-9)
}

func TestBuildShortSeriesClampsAnchors(t *testing.T) {
	// Four rows sit inside every window, so all three returns measure
	// against the oldest close.
	r, err := Build("AAPL", seriesFromCloses(100, 101, 99, 110), Metadata{}, nil)
	require.NoError(t, err)

	assert.InDelta(t, 10, r.Performance.WeekReturn, 1e-9)
	assert.InDelta(t, 10, r.Performance.MonthReturn, 1e-9)
	assert.InDelta(t, 10, r.Performance.YearReturn, 1e-9)
}

func TestBuildVolatility(t *testing.T) {
	// Daily returns 0.1, -0.1, 0.0556 give a sample stddev of 0.105018,
	// annualized by sqrt(252) to 1.66711.
	r, err := Build("AAPL", seriesFromCloses(100, 110, 99, 104.5), Metadata{}, nil)
	require.NoError(t, err)

	require.NotNil(t, r.Performance.Volatility)
	assert.InDelta(t, 1.66711, *r.Performance.Volatility, 0.0005)
}

func TestBuildVolatilityNilForTinySeries(t *testing.T) {
	r, err := Build("AAPL", seriesFromCloses(100), Metadata{}, nil)
	require.NoError(t, err)
	assert.Nil(t, r.Performance.Volatility)

	r, err = Build("AAPL", seriesFromCloses(100, 105), Metadata{}, nil)
	require.NoError(t, err)
	assert.Nil(t, r.Performance.Volatility)

	r, err = Build("AAPL", seriesFromCloses(100, 105, 102), Metadata{}, nil)
	require.NoError(t, err)
	assert.NotNil(t, r.Performance.Volatility)
}

func TestBuildMetadataDefaults(t *testing.T) {
	r, err := Build("MSFT", seriesFromCloses(100, 101), Metadata{}, nil)
	require.NoError(t, err)

	assert.Equal(t, "MSFT", r.CompanyInfo.Name)
	assert.Equal(t, "", r.CompanyInfo.Sector)
	assert.Equal(t, "", r.CompanyInfo.Industry)
	assert.Equal(t, "", r.CompanyInfo.Website)
	assert.Equal(t, "", r.CompanyInfo.Description)
}

func TestBuildMetadataPassthrough(t *testing.T) {
	pe := 31.4
	meta := Metadata{
		Name:       "Microsoft Corporation",
		Sector:     "Technology",
		TrailingPE: &pe,
	}
	r, err := Build("MSFT", seriesFromCloses(100, 101), meta, nil)
	require.NoError(t, err)

	assert.Equal(t, "Microsoft Corporation", r.CompanyInfo.Name)
	assert.Equal(t, "Technology", r.CompanyInfo.Sector)
	require.NotNil(t, r.Valuation.PERatio.Value)
	assert.InDelta(t, 31.4, *r.Valuation.PERatio.Value, 1e-9)
}

func TestBuildMissingValuationMarshalsEmptyString(t *testing.T) {
	r, err := Build("AAPL", seriesFromCloses(100, 101), Metadata{}, nil)
	require.NoError(t, err)

	raw, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"pe_ratio":""`)
	assert.Contains(t, string(raw), `"market_cap":""`)
}

func TestBuildNewsTruncatedToFive(t *testing.T) {
	news := make([]Headline, 8)
	for i := range news {
		news[i] = Headline{Title: "headline", Link: "https://example.com"}
	}
	r, err := Build("AAPL", seriesFromCloses(100, 101), Metadata{}, news)
	require.NoError(t, err)
	assert.Len(t, r.News, 5)
}

func TestBuildNilNewsMarshalsEmptyArray(t *testing.T) {
	r, err := Build("AAPL", seriesFromCloses(100, 101), Metadata{}, nil)
	require.NoError(t, err)

	raw, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"news":[]`)
}

func TestBuildTechnicalStatusWarmup(t *testing.T) {
	// 30 rows warm up the 20-day average only.
	r, err := Build("AAPL", seriesFromCloses(flatCloses(30, 100)...), Metadata{}, nil)
	require.NoError(t, err)

	require.NotNil(t, r.TechnicalStatus.Above20SMA)
	assert.False(t, *r.TechnicalStatus.Above20SMA)
	assert.Nil(t, r.TechnicalStatus.Above50SMA)
	assert.Nil(t, r.TechnicalStatus.Above200SMA)
	assert.Nil(t, r.TechnicalStatus.SMA20Above50)
	assert.Nil(t, r.TechnicalStatus.SMA50Above200)
}

func TestBuildTechnicalStatusFullHistory(t *testing.T) {
	closes := make([]float64, 260)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	r, err := Build("AAPL", seriesFromCloses(closes...), Metadata{}, nil)
	require.NoError(t, err)

	require.NotNil(t, r.TechnicalStatus.Above200SMA)
	assert.True(t, *r.TechnicalStatus.Above20SMA)
	assert.True(t, *r.TechnicalStatus.Above50SMA)
	assert.True(t, *r.TechnicalStatus.Above200SMA)
	assert.True(t, *r.TechnicalStatus.SMA20Above50)
	assert.True(t, *r.TechnicalStatus.SMA50Above200)
}

func TestReportJSONSections(t *testing.T) {
	r, err := Build("AAPL", seriesFromCloses(100, 101), Metadata{}, nil)
	require.NoError(t, err)

	raw, err := json.Marshal(r)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	for _, key := range []string{"company_info", "price_data", "performance", "valuation", "technical_status", "news"} {
		assert.Contains(t, doc, key)
	}

	var tech map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(doc["technical_status"], &tech))
	for _, key := range []string{"above_20sma", "above_50sma", "above_200sma", "20_50_bullish", "50_200_bullish"} {
		assert.Contains(t, tech, key)
	}
}

func TestMetricRoundTrip(t *testing.T) {
	var m Metric
	require.NoError(t, json.Unmarshal([]byte(`12.5`), &m))
	require.NotNil(t, m.Value)
	assert.InDelta(t, 12.5, *m.Value, 1e-9)

	require.NoError(t, json.Unmarshal([]byte(`""`), &m))
	assert.Nil(t, m.Value)

	raw, err := json.Marshal(Metric{})
	require.NoError(t, err)
	assert.Equal(t, `""`, string(raw))
}
