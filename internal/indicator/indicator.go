package indicator

import (
	"errors"
	"time"
)

// ErrEmptySeries is returned when a computation needs at least one row and
// the input series has none.
var ErrEmptySeries = errors.New("indicator: empty price series")

// Bar is one OHLCV row of a price series, ordered oldest first.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// Bundle holds the derived indicator series, aligned one-to-one with Bars by
// position. Entries before a window has warmed up are nil, never zero.
// VolumeMA20 is nil altogether when the series is shorter than 20 rows.
type Bundle struct {
	Bars          []Bar      `json:"bars"`
	SMA20         []*float64 `json:"sma_20"`
	SMA50         []*float64 `json:"sma_50"`
	SMA200        []*float64 `json:"sma_200"`
	MACD          []*float64 `json:"macd"`
	MACDSignal    []*float64 `json:"macd_signal"`
	MACDHistogram []*float64 `json:"macd_histogram"`
	RSI           []*float64 `json:"rsi"`
	VolumeMA20    []*float64 `json:"volume_ma_20,omitempty"`

	// Trend is carried alongside the series, not inside the marshaled
	// bundle; the snapshot envelope stores it under its own key.
	Trend *TrendSnapshot `json:"-"`
}

// TrendSnapshot is the state of the most recent row. Every comparison field
// is nil when either operand indicator is still undefined. The JSON keys
// mirror the wire shape consumed downstream.
type TrendSnapshot struct {
	Price         float64  `json:"price"`
	Above20SMA    *bool    `json:"above_20sma"`
	Above50SMA    *bool    `json:"above_50sma"`
	Above200SMA   *bool    `json:"above_200sma"`
	SMA20Above50  *bool    `json:"20_50_bullish"`
	SMA50Above200 *bool    `json:"50_200_bullish"`
	RSI           *float64 `json:"rsi"`
	MACDBullish   *bool    `json:"macd_bullish"`
}

// Compute derives SMA-20/50/200, MACD(12,26,9), RSI-14 and the 20-period
// volume average from the series, plus a trend snapshot of the last row.
// Short series degrade to nil entries; only a zero-row series is an error.
func Compute(bars []Bar) (*Bundle, error) {
	n := len(bars)
	if n == 0 {
		return nil, ErrEmptySeries
	}

	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, bar := range bars {
		closes[i] = bar.Close
		volumes[i] = float64(bar.Volume)
	}

	b := &Bundle{
		Bars:   bars,
		SMA20:  SMA(closes, 20),
		SMA50:  SMA(closes, 50),
		SMA200: SMA(closes, 200),
		RSI:    rsi(closes, 14),
	}
	b.MACD, b.MACDSignal, b.MACDHistogram = macd(closes, 12, 26, 9)

	if n >= 20 {
		b.VolumeMA20 = SMA(volumes, 20)
	}

	b.Trend = b.snapshot()
	return b, nil
}

func (b *Bundle) snapshot() *TrendSnapshot {
	last := len(b.Bars) - 1
	price := b.Bars[last].Close

	snap := &TrendSnapshot{
		Price:         price,
		Above20SMA:    aboveValue(price, b.SMA20[last]),
		Above50SMA:    aboveValue(price, b.SMA50[last]),
		Above200SMA:   aboveValue(price, b.SMA200[last]),
		SMA20Above50:  above(b.SMA20[last], b.SMA50[last]),
		SMA50Above200: above(b.SMA50[last], b.SMA200[last]),
		MACDBullish:   above(b.MACD[last], b.MACDSignal[last]),
	}
	if v := b.RSI[last]; v != nil {
		r := *v
		snap.RSI = &r
	}
	return snap
}

// Tail returns a bundle trimmed to the most recent k rows. The trend
// snapshot is unchanged since it only describes the last row.
func (b *Bundle) Tail(k int) *Bundle {
	n := len(b.Bars)
	if k >= n {
		return b
	}
	start := n - k
	tail := &Bundle{
		Bars:          b.Bars[start:],
		SMA20:         b.SMA20[start:],
		SMA50:         b.SMA50[start:],
		SMA200:        b.SMA200[start:],
		MACD:          b.MACD[start:],
		MACDSignal:    b.MACDSignal[start:],
		MACDHistogram: b.MACDHistogram[start:],
		RSI:           b.RSI[start:],
		Trend:         b.Trend,
	}
	if b.VolumeMA20 != nil {
		tail.VolumeMA20 = b.VolumeMA20[start:]
	}
	return tail
}

func aboveValue(a float64, b *float64) *bool {
	if b == nil {
		return nil
	}
	v := a > *b
	return &v
}

func above(a, b *float64) *bool {
	if a == nil || b == nil {
		return nil
	}
	v := *a > *b
	return &v
}
