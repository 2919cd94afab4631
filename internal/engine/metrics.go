package engine

import (
	"math"

	"github.com/shopspring/decimal"

	"stratlab/types"
)

// tradingDaysPerYear annualizes per-period returns in the Sharpe ratio.
const tradingDaysPerYear = 252

// sharpeRatio computes the annualized Sharpe ratio (zero risk-free rate)
// from successive equity points. Fewer than three points means fewer than
// two returns, which degenerates to 0, as does a flat curve.
func sharpeRatio(curve []types.EquityPoint) float64 {
	if len(curve) < 3 {
		return 0
	}

	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev, _ := curve[i-1].Equity.Float64()
		cur, _ := curve[i].Equity.Float64()
		if prev == 0 {
			continue
		}
		returns = append(returns, (cur-prev)/prev)
	}
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var sq float64
	for _, r := range returns {
		d := r - mean
		sq += d * d
	}
	stdev := math.Sqrt(sq / float64(len(returns)-1))
	if stdev == 0 {
		return 0
	}
	return mean / stdev * math.Sqrt(tradingDaysPerYear)
}

// maxDrawdown scans the equity curve once, tracking the running peak, and
// returns the largest peak-to-trough decline in absolute terms and as a
// percentage of the peak.
func maxDrawdown(curve []types.EquityPoint) (decimal.Decimal, float64) {
	if len(curve) == 0 {
		return decimal.Zero, 0
	}

	peak := curve[0].Equity
	maxDD := decimal.Zero
	var maxDDPct float64

	for _, p := range curve[1:] {
		if p.Equity.GreaterThan(peak) {
			peak = p.Equity
			continue
		}
		dd := peak.Sub(p.Equity)
		if dd.GreaterThan(maxDD) {
			maxDD = dd
			if peak.IsPositive() {
				pct, _ := dd.Div(peak).Mul(decimal.NewFromInt(100)).Float64()
				maxDDPct = pct
			}
		}
	}
	return maxDD, maxDDPct
}

// totalReturn reports final minus initial capital, absolute and as a
// percentage of initial.
func totalReturn(initial, final decimal.Decimal) (decimal.Decimal, float64) {
	abs := final.Sub(initial)
	if !initial.IsPositive() {
		return abs, 0
	}
	pct, _ := abs.Div(initial).Mul(decimal.NewFromInt(100)).Float64()
	return abs, pct
}

// tradeStats counts closed trades by realized P&L sign. Win rate is the
// winning fraction in [0, 1]; open trades and zero-P&L trades count toward
// the total but neither bucket.
func tradeStats(trades []types.TradeRecord) (total, winning, losing int, winRate float64) {
	for _, t := range trades {
		if !t.Closed() {
			continue
		}
		total++
		switch {
		case t.RealizedPnL.IsPositive():
			winning++
		case t.RealizedPnL.IsNegative():
			losing++
		}
	}
	if total > 0 {
		winRate = float64(winning) / float64(total)
	}
	return total, winning, losing, winRate
}
