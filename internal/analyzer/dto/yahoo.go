package dto

import (
	"fmt"
	"time"

	"golang-stock-analyst/internal/indicator"
)

// Chart API intervals and ranges accepted by Yahoo Finance.
var (
	ValidIntervals = []string{"1m", "2m", "5m", "15m", "30m", "60m", "90m", "1h", "1d", "5d", "1wk", "1mo", "3mo"}
	ValidRanges    = []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "ytd", "max"}
)

// GetStockDataParam identifies one chart fetch.
type GetStockDataParam struct {
	StockCode string `json:"stock_code"`
	Interval  string `json:"interval"`
	Range     string `json:"range"`
}

// Validate rejects unknown intervals and ranges before any HTTP call.
func (p GetStockDataParam) Validate() error {
	if p.StockCode == "" {
		return fmt.Errorf("stock code is required")
	}
	if !contains(ValidIntervals, p.Interval) {
		return fmt.Errorf("invalid interval %q, valid intervals: %v", p.Interval, ValidIntervals)
	}
	if !contains(ValidRanges, p.Range) {
		return fmt.Errorf("invalid range %q, valid ranges: %v", p.Range, ValidRanges)
	}
	return nil
}

func contains(valid []string, v string) bool {
	for _, s := range valid {
		if s == v {
			return true
		}
	}
	return false
}

// StockOHLCV is one row of chart data, timestamp in unix seconds.
type StockOHLCV struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
}

// StockData is the parsed chart payload for one stock.
type StockData struct {
	StockCode   string       `json:"stock_code"`
	Interval    string       `json:"interval"`
	Range       string       `json:"range"`
	MarketPrice float64      `json:"market_price"`
	OHLCV       []StockOHLCV `json:"ohlcv"`
}

// Bars converts the rows into the indicator engine's input form.
func (d *StockData) Bars() []indicator.Bar {
	bars := make([]indicator.Bar, len(d.OHLCV))
	for i, row := range d.OHLCV {
		bars[i] = indicator.Bar{
			Timestamp: time.Unix(row.Timestamp, 0).UTC(),
			Open:      row.Open,
			High:      row.High,
			Low:       row.Low,
			Close:     row.Close,
			Volume:    row.Volume,
		}
	}
	return bars
}

// YahooChartResponse mirrors the v8 chart endpoint. Quote arrays carry nulls
// for halted sessions, hence the pointer elements.
type YahooChartResponse struct {
	Chart struct {
		Result []YahooChartResult `json:"result"`
		Error  *YahooAPIError     `json:"error"`
	} `json:"chart"`
}

type YahooChartResult struct {
	Meta struct {
		Currency           string  `json:"currency"`
		Symbol             string  `json:"symbol"`
		RegularMarketPrice float64 `json:"regularMarketPrice"`
		ChartPreviousClose float64 `json:"chartPreviousClose"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []YahooChartQuote `json:"quote"`
	} `json:"indicators"`
}

type YahooChartQuote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type YahooAPIError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *YahooAPIError) Error() string {
	return fmt.Sprintf("yahoo finance: %s: %s", e.Code, e.Description)
}
