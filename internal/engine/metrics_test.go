package engine

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stratlab/types"
)

func curveFromValues(values ...float64) []types.EquityPoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	curve := make([]types.EquityPoint, len(values))
	for i, v := range values {
		curve[i] = types.EquityPoint{
			Time:   start.AddDate(0, 0, i),
			Equity: decimal.NewFromFloat(v),
		}
	}
	return curve
}

func TestSharpeRatio(t *testing.T) {
	tests := []struct {
		name  string
		curve []types.EquityPoint
		want  float64
	}{
		{name: "empty curve", curve: nil, want: 0},
		{name: "single point", curve: curveFromValues(100), want: 0},
		{name: "two points", curve: curveFromValues(100, 110), want: 0},
		{name: "zero variance returns", curve: curveFromValues(100, 110, 121), want: 0},
		{name: "flat curve", curve: curveFromValues(100, 100, 100, 100), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sharpeRatio(tt.curve); got != tt.want {
				t.Errorf("sharpeRatio = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSharpeRatioAnnualized(t *testing.T) {
	// Returns 0.10 and -0.05: mean 0.025, sample stdev ~0.10607.
	got := sharpeRatio(curveFromValues(100, 110, 104.5))

	returns := []float64{0.10, -0.05}
	mean := (returns[0] + returns[1]) / 2
	variance := (math.Pow(returns[0]-mean, 2) + math.Pow(returns[1]-mean, 2)) / 1
	want := mean / math.Sqrt(variance) * math.Sqrt(252)

	if math.Abs(got-want) > 1e-9 {
		t.Errorf("sharpeRatio = %v, want %v", got, want)
	}
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name    string
		curve   []types.EquityPoint
		wantAbs decimal.Decimal
		wantPct float64
	}{
		{
			name:    "empty curve",
			curve:   nil,
			wantAbs: decimal.Zero,
			wantPct: 0,
		},
		{
			name:    "monotonic rise",
			curve:   curveFromValues(100, 110, 120),
			wantAbs: decimal.Zero,
			wantPct: 0,
		},
		{
			name:    "peak then trough",
			curve:   curveFromValues(100, 110, 90, 95),
			wantAbs: decimal.NewFromInt(20),
			wantPct: 20.0 / 110.0 * 100,
		},
		{
			name:    "later deeper drawdown wins",
			curve:   curveFromValues(100, 90, 120, 80),
			wantAbs: decimal.NewFromInt(40),
			wantPct: 40.0 / 120.0 * 100,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			abs, pct := maxDrawdown(tt.curve)
			if !abs.Equal(tt.wantAbs) {
				t.Errorf("abs = %s, want %s", abs, tt.wantAbs)
			}
			if math.Abs(pct-tt.wantPct) > 1e-9 {
				t.Errorf("pct = %v, want %v", pct, tt.wantPct)
			}
		})
	}
}

func TestTotalReturn(t *testing.T) {
	abs, pct := totalReturn(decimal.NewFromInt(100000), decimal.NewFromFloat(100097.9))
	if !abs.Equal(decimal.NewFromFloat(97.9)) {
		t.Errorf("abs = %s, want 97.9", abs)
	}
	if math.Abs(pct-0.0979) > 1e-9 {
		t.Errorf("pct = %v, want 0.0979", pct)
	}

	abs, pct = totalReturn(decimal.NewFromInt(1000), decimal.NewFromInt(900))
	if !abs.Equal(decimal.NewFromInt(-100)) {
		t.Errorf("abs = %s, want -100", abs)
	}
	if pct != -10 {
		t.Errorf("pct = %v, want -10", pct)
	}
}

func TestTradeStats(t *testing.T) {
	now := time.Now()
	closedPrice := decimal.NewFromInt(1)
	closed := func(pnl int64) types.TradeRecord {
		return types.TradeRecord{
			RealizedPnL: decimal.NewFromInt(pnl),
			ExitTime:    &now,
			ExitPrice:   &closedPrice,
		}
	}

	tests := []struct {
		name        string
		trades      []types.TradeRecord
		wantTotal   int
		wantWinning int
		wantLosing  int
		wantWinRate float64
	}{
		{name: "no trades"},
		{
			name:        "mixed outcomes",
			trades:      []types.TradeRecord{closed(50), closed(-20), closed(30), closed(0)},
			wantTotal:   4,
			wantWinning: 2,
			wantLosing:  1,
			wantWinRate: 0.5,
		},
		{
			name:        "open trades excluded",
			trades:      []types.TradeRecord{closed(10), {RealizedPnL: decimal.NewFromInt(99)}},
			wantTotal:   1,
			wantWinning: 1,
			wantWinRate: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, winning, losing, winRate := tradeStats(tt.trades)
			if total != tt.wantTotal || winning != tt.wantWinning || losing != tt.wantLosing {
				t.Errorf("counts = %d/%d/%d, want %d/%d/%d",
					total, winning, losing, tt.wantTotal, tt.wantWinning, tt.wantLosing)
			}
			if winRate != tt.wantWinRate {
				t.Errorf("winRate = %v, want %v", winRate, tt.wantWinRate)
			}
		})
	}
}
