package engine

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stratlab/internal/broker"
	"stratlab/types"
)

func historyContext(t *testing.T, src BarSource, ts time.Time, bars map[string]types.OHLCBar) *Context {
	t.Helper()
	sim := broker.NewSimulatedBroker(broker.SimConfig{InitialCapital: decimal.NewFromInt(100000)})
	sim.SetCurrentTime(ts)
	for sym, b := range bars {
		sim.SetCurrentPrice(sym, b.Close)
	}
	return newContext(context.Background(), ts, bars, sim, src, types.D1, DefaultBatchSize)
}

func TestContextBarAccessors(t *testing.T) {
	bar := types.OHLCBar{
		Symbol:    "AAPL",
		Timestamp: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Open:      decimal.NewFromInt(99),
		High:      decimal.NewFromInt(101),
		Low:       decimal.NewFromInt(98),
		Close:     decimal.NewFromInt(100),
		Volume:    5000,
		Timeframe: types.D1,
	}
	c := historyContext(t, &fakeSource{}, bar.Timestamp, map[string]types.OHLCBar{"AAPL": bar})

	if got := c.Timestamp(); !got.Equal(bar.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got, bar.Timestamp)
	}
	if got := c.Symbols(); len(got) != 1 || got[0] != "AAPL" {
		t.Errorf("Symbols = %v, want [AAPL]", got)
	}

	if v, ok := c.Close("AAPL"); !ok || !v.Equal(bar.Close) {
		t.Errorf("Close = %s %v, want %s", v, ok, bar.Close)
	}
	if v, ok := c.Open("AAPL"); !ok || !v.Equal(bar.Open) {
		t.Errorf("Open = %s %v, want %s", v, ok, bar.Open)
	}
	if v, ok := c.Volume("AAPL"); !ok || v != 5000 {
		t.Errorf("Volume = %d %v, want 5000", v, ok)
	}
	if _, ok := c.Bar("MSFT"); ok {
		t.Error("Bar for absent symbol should report !ok")
	}
}

func TestContextHistoryEndsAtTimestamp(t *testing.T) {
	src := &fakeSource{}
	for day := 1; day <= 20; day++ {
		src.bars = append(src.bars, dayBar("AAPL", day, float64(100+day)))
	}

	ts := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	c := historyContext(t, src, ts, map[string]types.OHLCBar{"AAPL": dayBar("AAPL", 10, 110)})

	hist, err := c.History("AAPL", 5)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if hist.Len() != 5 {
		t.Fatalf("Len = %d, want 5", hist.Len())
	}

	// The newest bar is the context timestamp itself; nothing later leaks in.
	last := hist.Timestamps[hist.Len()-1]
	if !last.Equal(ts) {
		t.Errorf("newest history bar = %v, want %v", last, ts)
	}
	for _, bt := range hist.Timestamps {
		if bt.After(ts) {
			t.Errorf("history contains future bar %v", bt)
		}
	}

	// Oldest-to-newest ordering, ending at closes 106..110.
	if !hist.Closes[hist.Len()-1].Equal(decimal.NewFromInt(110)) {
		t.Errorf("newest close = %s, want 110", hist.Closes[hist.Len()-1])
	}
	if !hist.Closes[0].Equal(decimal.NewFromInt(106)) {
		t.Errorf("oldest close = %s, want 106", hist.Closes[0])
	}
}

func TestContextHistoryCaching(t *testing.T) {
	src := &fakeSource{}
	for day := 1; day <= 10; day++ {
		src.bars = append(src.bars, dayBar("AAPL", day, 100))
	}

	ts := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	c := historyContext(t, src, ts, map[string]types.OHLCBar{"AAPL": dayBar("AAPL", 10, 100)})

	first, err := c.History("AAPL", 5)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	calls := src.calls

	second, err := c.History("AAPL", 5)
	if err != nil {
		t.Fatalf("History (cached): %v", err)
	}
	if src.calls != calls {
		t.Errorf("cached lookup hit the source (%d extra calls)", src.calls-calls)
	}
	if first != second {
		t.Error("cached lookup returned a different snapshot")
	}

	// A different bar count is a different cache key.
	if _, err := c.History("AAPL", 3); err != nil {
		t.Fatalf("History(3): %v", err)
	}
	if src.calls == calls {
		t.Error("different bar count should query the source")
	}
}

func TestContextHistoryShorterThanRequested(t *testing.T) {
	src := &fakeSource{bars: []types.OHLCBar{dayBar("AAPL", 9, 100), dayBar("AAPL", 10, 101)}}

	ts := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	c := historyContext(t, src, ts, map[string]types.OHLCBar{"AAPL": dayBar("AAPL", 10, 101)})

	hist, err := c.History("AAPL", 5)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if hist.Len() != 2 {
		t.Errorf("Len = %d, want the 2 available bars", hist.Len())
	}
}

func TestContextOrders(t *testing.T) {
	ts := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	bar := dayBar("AAPL", 10, 100)
	c := historyContext(t, &fakeSource{}, ts, map[string]types.OHLCBar{"AAPL": bar})

	resp, err := c.Buy("AAPL", decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if resp.Status != types.OrderFilled {
		t.Errorf("status = %s, want filled", resp.Status)
	}

	pos, err := c.Position("AAPL")
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if pos == nil || !pos.Quantity.Equal(decimal.NewFromInt(10)) {
		t.Errorf("position = %+v, want qty 10", pos)
	}

	cash, err := c.Cash()
	if err != nil {
		t.Fatalf("Cash: %v", err)
	}
	if !cash.Equal(decimal.NewFromInt(99000)) {
		t.Errorf("cash = %s, want 99000", cash)
	}

	pv, err := c.PortfolioValue()
	if err != nil {
		t.Fatalf("PortfolioValue: %v", err)
	}
	if !pv.Equal(decimal.NewFromInt(100000)) {
		t.Errorf("portfolio value = %s, want 100000", pv)
	}

	if _, err := c.Sell("AAPL", decimal.NewFromInt(10)); err != nil {
		t.Fatalf("Sell: %v", err)
	}
	pos, _ = c.Position("AAPL")
	if pos != nil {
		t.Errorf("position after full sell = %+v, want nil", pos)
	}
}
