package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBars(closes ...float64) []Bar {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]Bar, len(closes))
	for i, c := range closes {
		bars[i] = Bar{
			Timestamp: base.Add(time.Duration(i) * 24 * time.Hour),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    5000,
		}
	}
	return bars
}

func constantSeries(n int, price float64) []Bar {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = price
	}
	return testBars(closes...)
}

func risingSeries(n int, start float64) []Bar {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + float64(i)
	}
	return testBars(closes...)
}

func TestComputeEmptySeries(t *testing.T) {
	_, err := Compute(nil)
	require.ErrorIs(t, err, ErrEmptySeries)

	_, err = Compute([]Bar{})
	require.ErrorIs(t, err, ErrEmptySeries)
}

func TestComputeConstantSeries(t *testing.T) {
	b, err := Compute(constantSeries(300, 101.5))
	require.NoError(t, err)

	last := 299
	require.NotNil(t, b.SMA20[last])
	assert.InDelta(t, 101.5, *b.SMA20[last], 1e-9)
	require.NotNil(t, b.SMA50[last])
	assert.InDelta(t, 101.5, *b.SMA50[last], 1e-9)
	require.NotNil(t, b.SMA200[last])
	assert.InDelta(t, 101.5, *b.SMA200[last], 1e-9)

	require.NotNil(t, b.MACD[last])
	assert.InDelta(t, 0, *b.MACD[last], 1e-9)
	require.NotNil(t, b.MACDSignal[last])
	assert.InDelta(t, 0, *b.MACDSignal[last], 1e-9)
	require.NotNil(t, b.MACDHistogram[last])
	assert.InDelta(t, 0, *b.MACDHistogram[last], 1e-9)

	// Flat series has zero average gain and loss, which pins RSI at 50.
	require.NotNil(t, b.RSI[last])
	assert.InDelta(t, 50, *b.RSI[last], 1e-9)

	require.NotNil(t, b.VolumeMA20[last])
	assert.InDelta(t, 5000, *b.VolumeMA20[last], 1e-9)

	snap := b.Trend
	require.NotNil(t, snap)
	assert.InDelta(t, 101.5, snap.Price, 1e-9)
	require.NotNil(t, snap.Above20SMA)
	assert.False(t, *snap.Above20SMA)
	require.NotNil(t, snap.Above50SMA)
	assert.False(t, *snap.Above50SMA)
	require.NotNil(t, snap.Above200SMA)
	assert.False(t, *snap.Above200SMA)
	require.NotNil(t, snap.SMA20Above50)
	assert.False(t, *snap.SMA20Above50)
	require.NotNil(t, snap.SMA50Above200)
	assert.False(t, *snap.SMA50Above200)
	require.NotNil(t, snap.MACDBullish)
	assert.False(t, *snap.MACDBullish)
	require.NotNil(t, snap.RSI)
	assert.InDelta(t, 50, *snap.RSI, 1e-9)
}

func TestComputeShortSeriesAllNil(t *testing.T) {
	b, err := Compute(constantSeries(10, 50))
	require.NoError(t, err)
	require.Len(t, b.Bars, 10)

	for i := 0; i < 10; i++ {
		assert.Nil(t, b.SMA20[i])
		assert.Nil(t, b.SMA50[i])
		assert.Nil(t, b.SMA200[i])
		assert.Nil(t, b.MACD[i])
		assert.Nil(t, b.MACDSignal[i])
		assert.Nil(t, b.MACDHistogram[i])
		assert.Nil(t, b.RSI[i])
	}
	assert.Nil(t, b.VolumeMA20)

	snap := b.Trend
	require.NotNil(t, snap)
	assert.InDelta(t, 50, snap.Price, 1e-9)
	assert.Nil(t, snap.Above20SMA)
	assert.Nil(t, snap.Above50SMA)
	assert.Nil(t, snap.Above200SMA)
	assert.Nil(t, snap.SMA20Above50)
	assert.Nil(t, snap.SMA50Above200)
	assert.Nil(t, snap.RSI)
	assert.Nil(t, snap.MACDBullish)
}

func TestComputeRisingSeries(t *testing.T) {
	// Closes 100..399. Tail window means are midpoints of arithmetic runs:
	// SMA20 = (380+399)/2, SMA50 = (350+399)/2, SMA200 = (200+399)/2.
	b, err := Compute(risingSeries(300, 100))
	require.NoError(t, err)

	last := 299
	assert.InDelta(t, 389.5, *b.SMA20[last], 1e-9)
	assert.InDelta(t, 374.5, *b.SMA50[last], 1e-9)
	assert.InDelta(t, 299.5, *b.SMA200[last], 1e-9)

	// Every delta is a gain, so the average loss is zero.
	assert.InDelta(t, 100, *b.RSI[last], 1e-9)

	snap := b.Trend
	assert.InDelta(t, 399, snap.Price, 1e-9)
	assert.True(t, *snap.Above20SMA)
	assert.True(t, *snap.Above50SMA)
	assert.True(t, *snap.Above200SMA)
	assert.True(t, *snap.SMA20Above50)
	assert.True(t, *snap.SMA50Above200)
	assert.True(t, *snap.MACDBullish)
}

func TestComputeWarmupBoundaries(t *testing.T) {
	b, err := Compute(risingSeries(40, 10))
	require.NoError(t, err)

	assert.Nil(t, b.SMA20[18])
	assert.NotNil(t, b.SMA20[19])

	assert.Nil(t, b.RSI[13])
	assert.NotNil(t, b.RSI[14])

	// MACD needs the slow EMA (26), its signal nine defined MACD values.
	assert.Nil(t, b.MACD[24])
	assert.NotNil(t, b.MACD[25])
	assert.Nil(t, b.MACDSignal[32])
	assert.NotNil(t, b.MACDSignal[33])
	assert.Nil(t, b.MACDHistogram[32])
	assert.NotNil(t, b.MACDHistogram[33])

	assert.Nil(t, b.SMA50[38])
	assert.Nil(t, b.SMA200[39])
}

func TestComputeVolumeAverageOmittedBelow20(t *testing.T) {
	b, err := Compute(constantSeries(15, 80))
	require.NoError(t, err)
	assert.Nil(t, b.VolumeMA20)

	b, err = Compute(constantSeries(20, 80))
	require.NoError(t, err)
	require.NotNil(t, b.VolumeMA20)
	assert.Nil(t, b.VolumeMA20[18])
	require.NotNil(t, b.VolumeMA20[19])
	assert.InDelta(t, 5000, *b.VolumeMA20[19], 1e-9)
}

func TestTailTrimsAllSeries(t *testing.T) {
	b, err := Compute(risingSeries(300, 100))
	require.NoError(t, err)

	tail := b.Tail(50)
	assert.Len(t, tail.Bars, 50)
	assert.Len(t, tail.SMA20, 50)
	assert.Len(t, tail.SMA50, 50)
	assert.Len(t, tail.SMA200, 50)
	assert.Len(t, tail.MACD, 50)
	assert.Len(t, tail.MACDSignal, 50)
	assert.Len(t, tail.MACDHistogram, 50)
	assert.Len(t, tail.RSI, 50)
	assert.Len(t, tail.VolumeMA20, 50)

	// Oldest retained row is the original index 250.
	assert.InDelta(t, 350, tail.Bars[0].Close, 1e-9)
	assert.Same(t, b.Trend, tail.Trend)
}

func TestTailLargerThanSeries(t *testing.T) {
	b, err := Compute(constantSeries(30, 10))
	require.NoError(t, err)

	tail := b.Tail(50)
	assert.Len(t, tail.Bars, 30)
}

func TestTailKeepsVolumeOmission(t *testing.T) {
	b, err := Compute(constantSeries(15, 10))
	require.NoError(t, err)
	assert.Nil(t, b.Tail(5).VolumeMA20)
}

func TestSMAWindowThree(t *testing.T) {
	out := SMA([]float64{1, 2, 3, 4, 5}, 3)
	assert.Nil(t, out[0])
	assert.Nil(t, out[1])
	assert.InDelta(t, 2, *out[2], 1e-9)
	assert.InDelta(t, 3, *out[3], 1e-9)
	assert.InDelta(t, 4, *out[4], 1e-9)
}

func TestEMASeededWithFirstValue(t *testing.T) {
	// Period 3, alpha 0.5, seeded with 100:
	//   101 -> 102.5 (first defined) -> 102.75 -> 103.875
	out := ema([]float64{100, 102, 104, 103, 105}, 3)
	assert.Nil(t, out[0])
	assert.Nil(t, out[1])
	assert.InDelta(t, 102.5, *out[2], 1e-9)
	assert.InDelta(t, 102.75, *out[3], 1e-9)
	assert.InDelta(t, 103.875, *out[4], 1e-9)
}

func TestMACDSignalOverDefinedPortion(t *testing.T) {
	// Tiny periods keep the arithmetic checkable by hand. With closes
	// 1..5, fast=2, slow=3:
	//   ema2 = _, 5/3, 23/9, 95/27, 365/81
	//   ema3 = _, _, 2.25, 3.125, 4.0625
	//   line = _, _, 0.305556, 0.393519, 0.443673
	// signal(2) seeds at the first defined line value and is defined once
	// two line values have been absorbed.
	line, sig, hist := macd([]float64{1, 2, 3, 4, 5}, 2, 3, 2)

	assert.Nil(t, line[1])
	require.NotNil(t, line[2])
	assert.InDelta(t, 0.305556, *line[2], 1e-6)
	assert.InDelta(t, 0.393519, *line[3], 1e-6)
	assert.InDelta(t, 0.443673, *line[4], 1e-6)

	assert.Nil(t, sig[2])
	require.NotNil(t, sig[3])
	assert.InDelta(t, 0.364198, *sig[3], 1e-6)
	assert.InDelta(t, 0.417181, *sig[4], 1e-6)

	assert.Nil(t, hist[2])
	assert.InDelta(t, 0.029321, *hist[3], 1e-6)
	assert.InDelta(t, 0.026492, *hist[4], 1e-6)
}

func TestRSIWilderHandComputed(t *testing.T) {
	// Period 5 over 44.00, 44.34, 44.09, 43.61, 44.33, 44.83, 45.10:
	//   seed avgGain = (0.34+0.72+0.50)/5 = 0.312
	//   seed avgLoss = (0.25+0.48)/5      = 0.146
	//   RSI[5] = 100 - 100/(1+0.312/0.146) = 68.122
	//   next: avgGain = (0.312*4+0.27)/5 = 0.3036, avgLoss = 0.584/5 = 0.1168
	//   RSI[6] = 72.224
	out := rsi([]float64{44.00, 44.34, 44.09, 43.61, 44.33, 44.83, 45.10}, 5)

	for i := 0; i < 5; i++ {
		assert.Nil(t, out[i])
	}
	require.NotNil(t, out[5])
	assert.InDelta(t, 68.12, *out[5], 0.05)
	require.NotNil(t, out[6])
	assert.InDelta(t, 72.22, *out[6], 0.05)
}

func TestRSIFlatSeriesFifty(t *testing.T) {
	out := rsi([]float64{9, 9, 9, 9, 9, 9, 9, 9}, 5)
	require.NotNil(t, out[7])
	assert.InDelta(t, 50, *out[7], 1e-9)
}

func TestRSIAllGainsHundred(t *testing.T) {
	out := rsi([]float64{1, 2, 3, 4, 5, 6, 7, 8}, 5)
	require.NotNil(t, out[7])
	assert.InDelta(t, 100, *out[7], 1e-9)
}

func TestRSIAllLossesZero(t *testing.T) {
	out := rsi([]float64{8, 7, 6, 5, 4, 3, 2, 1}, 5)
	require.NotNil(t, out[7])
	assert.InDelta(t, 0, *out[7], 1e-9)
}
