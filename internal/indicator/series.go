package indicator

// SMA computes a simple moving average over a fixed window. Positions before
// the window has filled are nil. A single rolling sum keeps it O(n).
func SMA(values []float64, window int) []*float64 {
	out := make([]*float64, len(values))
	if window <= 0 {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			m := sum / float64(window)
			out[i] = &m
		}
	}
	return out
}

// ema computes an exponential moving average seeded with the first value,
// alpha = 2/(period+1). The first period-1 positions are nil even though the
// recursion starts from row zero.
func ema(values []float64, period int) []*float64 {
	out := make([]*float64, len(values))
	if len(values) == 0 || period <= 0 {
		return out
	}
	alpha := 2.0 / float64(period+1)
	cur := values[0]
	for i, v := range values {
		if i > 0 {
			cur = alpha*v + (1-alpha)*cur
		}
		if i >= period-1 {
			e := cur
			out[i] = &e
		}
	}
	return out
}

// macd returns the MACD line (fast EMA minus slow EMA), its signal line (an
// EMA over the defined MACD values) and the histogram (line minus signal).
func macd(values []float64, fast, slow, signal int) (line, sig, hist []*float64) {
	n := len(values)
	line = make([]*float64, n)
	sig = make([]*float64, n)
	hist = make([]*float64, n)

	fastEMA := ema(values, fast)
	slowEMA := ema(values, slow)
	for i := 0; i < n; i++ {
		if fastEMA[i] == nil || slowEMA[i] == nil {
			continue
		}
		v := *fastEMA[i] - *slowEMA[i]
		line[i] = &v
	}

	// The signal EMA runs over the defined portion of the MACD line only,
	// seeded with the first defined value.
	alpha := 2.0 / float64(signal+1)
	var cur float64
	count := 0
	for i := 0; i < n; i++ {
		if line[i] == nil {
			continue
		}
		if count == 0 {
			cur = *line[i]
		} else {
			cur = alpha*(*line[i]) + (1-alpha)*cur
		}
		count++
		if count >= signal {
			s := cur
			sig[i] = &s
			h := *line[i] - s
			hist[i] = &h
		}
	}
	return line, sig, hist
}

// rsi computes Wilder's relative strength index. The first period deltas are
// averaged to seed the gain/loss state, after which each step smooths with
// (prev*(period-1)+cur)/period. Positions 0..period-1 are nil.
func rsi(values []float64, period int) []*float64 {
	out := make([]*float64, len(values))
	if len(values) <= period || period <= 0 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		var gain, loss float64
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}

		if i <= period {
			avgGain += gain
			avgLoss += loss
			if i == period {
				avgGain /= float64(period)
				avgLoss /= float64(period)
				out[i] = rsiValue(avgGain, avgLoss)
			}
			continue
		}

		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) *float64 {
	var v float64
	switch {
	case avgLoss == 0 && avgGain == 0:
		v = 50
	case avgLoss == 0:
		v = 100
	default:
		rs := avgGain / avgLoss
		v = 100 - 100/(1+rs)
	}
	return &v
}
