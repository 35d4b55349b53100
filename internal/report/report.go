package report

import (
	"errors"
	"fmt"
	"math"

	"golang-stock-analyst/internal/indicator"
)

// ErrInsufficientData is returned when the price series cannot support the
// report arithmetic, either because it is empty or because a reference close
// used as a divisor is zero.
var ErrInsufficientData = errors.New("report: insufficient price data")

// Metadata carries the company fields merged into a report. Pointer fields
// are nil when the upstream source omitted the value; they serialize as an
// empty string rather than zero.
type Metadata struct {
	Name             string
	Sector           string
	Industry         string
	Website          string
	Description      string
	FiftyTwoWeekHigh *float64
	FiftyTwoWeekLow  *float64
	AverageVolume    *float64
	MarketCap        *float64
	TrailingPE       *float64
	ForwardPE        *float64
	PEGRatio         *float64
	PriceToSales     *float64
	PriceToBook      *float64
}

// Headline is one news item attached to a report.
type Headline struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// Report is the aggregated analysis document. The JSON keys mirror the wire
// shape consumed downstream, including the year-window aliases.
type Report struct {
	CompanyInfo     CompanyInfo     `json:"company_info"`
	PriceData       PriceData       `json:"price_data"`
	Performance     Performance     `json:"performance"`
	Valuation       Valuation       `json:"valuation"`
	TechnicalStatus TechnicalStatus `json:"technical_status"`
	News            []Headline      `json:"news"`
}

type CompanyInfo struct {
	Name        string `json:"name"`
	Sector      string `json:"sector"`
	Industry    string `json:"industry"`
	Website     string `json:"website"`
	Description string `json:"description"`
}

type PriceData struct {
	CurrentPrice     float64 `json:"current_price"`
	FiftyTwoWeekHigh Metric  `json:"52_week_high"`
	FiftyTwoWeekLow  Metric  `json:"52_week_low"`
	AverageVolume    Metric  `json:"average_volume"`
	MarketCap        Metric  `json:"market_cap"`
}

type Performance struct {
	WeekReturn  float64  `json:"week_return"`
	MonthReturn float64  `json:"month_return"`
	YearReturn  float64  `json:"year_return"`
	Volatility  *float64 `json:"volatility"`
}

type Valuation struct {
	PERatio      Metric `json:"pe_ratio"`
	ForwardPE    Metric `json:"forward_pe"`
	PEGRatio     Metric `json:"peg_ratio"`
	PriceToSales Metric `json:"price_to_sales"`
	PriceToBook  Metric `json:"price_to_book"`
}

type TechnicalStatus struct {
	Above20SMA    *bool `json:"above_20sma"`
	Above50SMA    *bool `json:"above_50sma"`
	Above200SMA   *bool `json:"above_200sma"`
	SMA20Above50  *bool `json:"20_50_bullish"`
	SMA50Above200 *bool `json:"50_200_bullish"`
}

// Build assembles a report for one ticker from a daily price series, the
// company metadata and up to five news headlines. Return anchors clamp to
// the oldest row when the series is shorter than the window, so a young
// listing yields identical week/month/year returns instead of an error.
func Build(ticker string, series []indicator.Bar, meta Metadata, news []Headline) (*Report, error) {
	n := len(series)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty series for %s", ErrInsufficientData, ticker)
	}

	closes := make([]float64, n)
	for i, bar := range series {
		closes[i] = bar.Close
	}

	current := closes[n-1]
	weekRef := closes[anchor(n, 5)]
	monthRef := closes[anchor(n, 22)]
	yearRef := closes[0]
	if weekRef == 0 || monthRef == 0 || yearRef == 0 {
		return nil, fmt.Errorf("%w: zero reference close for %s", ErrInsufficientData, ticker)
	}

	name := meta.Name
	if name == "" {
		name = ticker
	}
	if len(news) > 5 {
		news = news[:5]
	}
	if news == nil {
		news = []Headline{}
	}

	return &Report{
		CompanyInfo: CompanyInfo{
			Name:        name,
			Sector:      meta.Sector,
			Industry:    meta.Industry,
			Website:     meta.Website,
			Description: meta.Description,
		},
		PriceData: PriceData{
			CurrentPrice:     current,
			FiftyTwoWeekHigh: Metric{Value: meta.FiftyTwoWeekHigh},
			FiftyTwoWeekLow:  Metric{Value: meta.FiftyTwoWeekLow},
			AverageVolume:    Metric{Value: meta.AverageVolume},
			MarketCap:        Metric{Value: meta.MarketCap},
		},
		Performance: Performance{
			WeekReturn:  (current/weekRef - 1) * 100,
			MonthReturn: (current/monthRef - 1) * 100,
			YearReturn:  (current/yearRef - 1) * 100,
			Volatility:  annualizedVolatility(closes),
		},
		Valuation: Valuation{
			PERatio:      Metric{Value: meta.TrailingPE},
			ForwardPE:    Metric{Value: meta.ForwardPE},
			PEGRatio:     Metric{Value: meta.PEGRatio},
			PriceToSales: Metric{Value: meta.PriceToSales},
			PriceToBook:  Metric{Value: meta.PriceToBook},
		},
		TechnicalStatus: technicalStatus(closes),
		News:            news,
	}, nil
}

// anchor is the row a return window measures against, clamped to the oldest
// row for series shorter than the window.
func anchor(n, window int) int {
	if n < window {
		return 0
	}
	return n - window
}

// annualizedVolatility is the sample standard deviation of daily percent
// changes scaled by sqrt(252) trading days. It is nil when fewer than two
// daily returns exist. Rows following a zero close are skipped rather than
// propagating an infinite return.
func annualizedVolatility(closes []float64) *float64 {
	returns := make([]float64, 0, len(closes))
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, closes[i]/closes[i-1]-1)
	}
	if len(returns) < 2 {
		return nil
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var ss float64
	for _, r := range returns {
		d := r - mean
		ss += d * d
	}
	v := math.Sqrt(ss/float64(len(returns)-1)) * math.Sqrt(252)
	return &v
}

func technicalStatus(closes []float64) TechnicalStatus {
	last := len(closes) - 1
	price := closes[last]
	sma20 := indicator.SMA(closes, 20)[last]
	sma50 := indicator.SMA(closes, 50)[last]
	sma200 := indicator.SMA(closes, 200)[last]

	return TechnicalStatus{
		Above20SMA:    greaterThan(&price, sma20),
		Above50SMA:    greaterThan(&price, sma50),
		Above200SMA:   greaterThan(&price, sma200),
		SMA20Above50:  greaterThan(sma20, sma50),
		SMA50Above200: greaterThan(sma50, sma200),
	}
}

func greaterThan(a, b *float64) *bool {
	if a == nil || b == nil {
		return nil
	}
	v := *a > *b
	return &v
}
