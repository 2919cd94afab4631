// Package indicators provides technical indicators over decimal price
// series. All functions return series aligned with the input: positions
// before the warm-up period hold decimal.Zero.
package indicators

import (
	"github.com/shopspring/decimal"
)

// SMA returns the simple moving average of prices over period. The first
// period-1 entries are zero. A period larger than the series, or <= 0,
// yields an all-zero series.
func SMA(prices []decimal.Decimal, period int) []decimal.Decimal {
	out := make([]decimal.Decimal, len(prices))
	if period <= 0 || len(prices) < period {
		return out
	}

	p := decimal.NewFromInt(int64(period))
	sum := decimal.Zero
	for i, price := range prices {
		sum = sum.Add(price)
		if i >= period {
			sum = sum.Sub(prices[i-period])
		}
		if i >= period-1 {
			out[i] = sum.Div(p)
		}
	}
	return out
}

// EMA returns the exponential moving average with smoothing 2/(period+1),
// seeded from the SMA of the first period values.
func EMA(prices []decimal.Decimal, period int) []decimal.Decimal {
	out := make([]decimal.Decimal, len(prices))
	if period <= 0 || len(prices) < period {
		return out
	}

	seed := decimal.Zero
	for _, price := range prices[:period] {
		seed = seed.Add(price)
	}
	seed = seed.Div(decimal.NewFromInt(int64(period)))
	out[period-1] = seed

	k := decimal.NewFromInt(2).Div(decimal.NewFromInt(int64(period + 1)))
	prev := seed
	for i := period; i < len(prices); i++ {
		prev = prices[i].Sub(prev).Mul(k).Add(prev)
		out[i] = prev
	}
	return out
}

// RSI returns the Wilder relative strength index over period. Values are in
// [0, 100]; a series of straight gains pins at 100, straight losses at 0.
func RSI(prices []decimal.Decimal, period int) []decimal.Decimal {
	out := make([]decimal.Decimal, len(prices))
	if period <= 0 || len(prices) < period+1 {
		return out
	}

	p := decimal.NewFromInt(int64(period))
	hundred := decimal.NewFromInt(100)

	avgGain, avgLoss := decimal.Zero, decimal.Zero
	for i := 1; i <= period; i++ {
		change := prices[i].Sub(prices[i-1])
		if change.IsPositive() {
			avgGain = avgGain.Add(change)
		} else {
			avgLoss = avgLoss.Add(change.Abs())
		}
	}
	avgGain = avgGain.Div(p)
	avgLoss = avgLoss.Div(p)
	out[period] = rsiValue(avgGain, avgLoss, hundred)

	pm1 := decimal.NewFromInt(int64(period - 1))
	for i := period + 1; i < len(prices); i++ {
		change := prices[i].Sub(prices[i-1])
		gain, loss := decimal.Zero, decimal.Zero
		if change.IsPositive() {
			gain = change
		} else {
			loss = change.Abs()
		}
		avgGain = avgGain.Mul(pm1).Add(gain).Div(p)
		avgLoss = avgLoss.Mul(pm1).Add(loss).Div(p)
		out[i] = rsiValue(avgGain, avgLoss, hundred)
	}
	return out
}

func rsiValue(avgGain, avgLoss, hundred decimal.Decimal) decimal.Decimal {
	if avgLoss.IsZero() {
		return hundred
	}
	rs := avgGain.Div(avgLoss)
	return hundred.Sub(hundred.Div(rs.Add(decimal.NewFromInt(1))))
}

// CrossedAbove reports whether fast crossed above slow at the last point of
// the two aligned series: fast <= slow at the previous point and fast > slow
// at the last.
func CrossedAbove(fast, slow []decimal.Decimal) bool {
	n := len(fast)
	if n < 2 || len(slow) != n {
		return false
	}
	return fast[n-2].LessThanOrEqual(slow[n-2]) && fast[n-1].GreaterThan(slow[n-1])
}

// CrossedBelow reports whether fast crossed below slow at the last point of
// the two aligned series.
func CrossedBelow(fast, slow []decimal.Decimal) bool {
	n := len(fast)
	if n < 2 || len(slow) != n {
		return false
	}
	return fast[n-2].GreaterThanOrEqual(slow[n-2]) && fast[n-1].LessThan(slow[n-1])
}
