package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stratlab/internal/broker"
	"stratlab/types"
)

// fakeSource serves a fixed, pre-sorted bar slice with offset/limit
// pagination, mimicking the store contract.
type fakeSource struct {
	bars  []types.OHLCBar
	err   error
	calls int
}

func (f *fakeSource) GetBars(_ context.Context, symbols []string, start, end time.Time, _ types.Timeframe, limit, offset int) ([]types.OHLCBar, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	want := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		want[s] = true
	}
	var matched []types.OHLCBar
	for _, b := range f.bars {
		if !want[b.Symbol] || b.Timestamp.Before(start) || b.Timestamp.After(end) {
			continue
		}
		matched = append(matched, b)
	}

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (f *fakeSource) GetBarCount(ctx context.Context, symbols []string, start, end time.Time, tf types.Timeframe) (int64, error) {
	bars, err := f.GetBars(ctx, symbols, start, end, tf, 1<<31, 0)
	return int64(len(bars)), err
}

func dayBar(symbol string, day int, close float64) types.OHLCBar {
	c := decimal.NewFromFloat(close)
	return types.OHLCBar{
		Symbol:    symbol,
		Timestamp: time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		Open:      c,
		High:      c,
		Low:       c,
		Close:     c,
		Volume:    1000,
		Timeframe: types.D1,
	}
}

func TestLoaderPagination(t *testing.T) {
	src := &fakeSource{}
	for day := 1; day <= 5; day++ {
		src.bars = append(src.bars, dayBar("AAPL", day, 100))
	}

	loader := NewLoader(src, []string{"AAPL"},
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		types.D1, 2)

	var total int
	var batches int
	for {
		batch, err := loader.Next(context.Background())
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if batch == nil {
			break
		}
		batches++
		total += len(batch)
		if len(batch) > 2 {
			t.Errorf("batch size %d exceeds limit 2", len(batch))
		}
	}
	if total != 5 {
		t.Errorf("total bars = %d, want 5", total)
	}
	if batches != 3 {
		t.Errorf("batches = %d, want 3", batches)
	}

	// Exhausted loaders stay exhausted without touching the source again.
	calls := src.calls
	if batch, err := loader.Next(context.Background()); batch != nil || err != nil {
		t.Errorf("Next after exhaustion = %v, %v", batch, err)
	}
	if src.calls != calls {
		t.Errorf("exhausted loader queried the source")
	}
}

func TestLoaderEmptyRange(t *testing.T) {
	loader := NewLoader(&fakeSource{}, []string{"AAPL"},
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		types.D1, 100)

	batch, err := loader.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if batch != nil {
		t.Errorf("batch = %v, want nil for empty range", batch)
	}
}

func TestLoaderStoreError(t *testing.T) {
	src := &fakeSource{err: errors.New("connection reset")}
	loader := NewLoader(src, []string{"AAPL"},
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		types.D1, 100)

	_, err := loader.Next(context.Background())
	if !errors.Is(err, broker.ErrDataUnavailable) {
		t.Fatalf("err = %v, want ErrDataUnavailable", err)
	}
}
