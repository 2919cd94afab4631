package indicators

import (
	"testing"

	"github.com/shopspring/decimal"
)

func series(values ...float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.NewFromFloat(v)
	}
	return out
}

func TestSMA(t *testing.T) {
	tests := []struct {
		name   string
		prices []decimal.Decimal
		period int
		want   []float64
	}{
		{
			name:   "period 3",
			prices: series(1, 2, 3, 4, 5),
			period: 3,
			want:   []float64{0, 0, 2, 3, 4},
		},
		{
			name:   "period equals length",
			prices: series(10, 20, 30),
			period: 3,
			want:   []float64{0, 0, 20},
		},
		{
			name:   "period longer than series",
			prices: series(1, 2),
			period: 5,
			want:   []float64{0, 0},
		},
		{
			name:   "invalid period",
			prices: series(1, 2, 3),
			period: 0,
			want:   []float64{0, 0, 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SMA(tt.prices, tt.period)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i, w := range tt.want {
				if !got[i].Equal(decimal.NewFromFloat(w)) {
					t.Errorf("sma[%d] = %s, want %v", i, got[i], w)
				}
			}
		})
	}
}

func TestEMA(t *testing.T) {
	got := EMA(series(2, 4, 6, 8, 12), 3)

	// Seeded with SMA(2,4,6)=4, then k=0.5: 4+0.5*(8-4)=6, 6+0.5*(12-6)=9.
	want := []float64{0, 0, 4, 6, 9}
	for i, w := range want {
		if !got[i].Equal(decimal.NewFromFloat(w)) {
			t.Errorf("ema[%d] = %s, want %v", i, got[i], w)
		}
	}
}

func TestRSIExtremes(t *testing.T) {
	gains := RSI(series(1, 2, 3, 4, 5, 6), 5)
	if !gains[5].Equal(decimal.NewFromInt(100)) {
		t.Errorf("all-gain rsi = %s, want 100", gains[5])
	}

	losses := RSI(series(6, 5, 4, 3, 2, 1), 5)
	if !losses[5].IsZero() {
		t.Errorf("all-loss rsi = %s, want 0", losses[5])
	}

	short := RSI(series(1, 2, 3), 5)
	for i, v := range short {
		if !v.IsZero() {
			t.Errorf("warm-up rsi[%d] = %s, want 0", i, v)
		}
	}
}

func TestRSIBounded(t *testing.T) {
	prices := series(44, 44.5, 43.8, 44.2, 44.9, 44.1, 45.3, 45.0, 46.1, 45.8)
	rsi := RSI(prices, 5)
	for i := 5; i < len(rsi); i++ {
		if rsi[i].LessThan(decimal.Zero) || rsi[i].GreaterThan(decimal.NewFromInt(100)) {
			t.Errorf("rsi[%d] = %s out of [0,100]", i, rsi[i])
		}
	}
}

func TestCrossovers(t *testing.T) {
	tests := []struct {
		name      string
		fast      []decimal.Decimal
		slow      []decimal.Decimal
		wantAbove bool
		wantBelow bool
	}{
		{
			name:      "cross above",
			fast:      series(9, 11),
			slow:      series(10, 10),
			wantAbove: true,
		},
		{
			name:      "cross below",
			fast:      series(11, 9),
			slow:      series(10, 10),
			wantBelow: true,
		},
		{
			name: "no cross",
			fast: series(11, 12),
			slow: series(10, 10),
		},
		{
			name:      "touch then break counts",
			fast:      series(10, 11),
			slow:      series(10, 10),
			wantAbove: true,
		},
		{
			name: "too short",
			fast: series(11),
			slow: series(10),
		},
		{
			name: "mismatched lengths",
			fast: series(9, 11, 12),
			slow: series(10, 10),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CrossedAbove(tt.fast, tt.slow); got != tt.wantAbove {
				t.Errorf("CrossedAbove = %v, want %v", got, tt.wantAbove)
			}
			if got := CrossedBelow(tt.fast, tt.slow); got != tt.wantBelow {
				t.Errorf("CrossedBelow = %v, want %v", got, tt.wantBelow)
			}
		})
	}
}
