package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"stratlab/internal/broker"
	"stratlab/types"
)

type historyKey struct {
	symbol    string
	bars      int
	timeframe types.Timeframe
}

// Context is the per-timestamp facade handed to a strategy. It exposes the
// bars present at the current timestamp, on-demand historical data, and
// broker operations. A Context is built fresh for every timestamp and
// borrows the Broker and BarSource owned by the Engine; it never mutates
// broker state itself.
//
// All historical fetches end at the context timestamp. Nothing reachable
// from a Context can observe data past the current simulated time.
type Context struct {
	ctx       context.Context
	timestamp time.Time
	bars      map[string]types.OHLCBar
	broker    broker.Broker
	src       BarSource
	timeframe types.Timeframe
	batchSize int
	cache     map[historyKey]*types.HistoricalData
}

func newContext(ctx context.Context, ts time.Time, bars map[string]types.OHLCBar, bkr broker.Broker, src BarSource, tf types.Timeframe, batchSize int) *Context {
	return &Context{
		ctx:       ctx,
		timestamp: ts,
		bars:      bars,
		broker:    bkr,
		src:       src,
		timeframe: tf,
		batchSize: batchSize,
		cache:     make(map[historyKey]*types.HistoricalData),
	}
}

// Timestamp returns the current simulated time.
func (c *Context) Timestamp() time.Time { return c.timestamp }

// Symbols returns the symbols that have a bar at this timestamp, sorted.
func (c *Context) Symbols() []string {
	out := make([]string, 0, len(c.bars))
	for sym := range c.bars {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Bar returns the current bar for a symbol.
func (c *Context) Bar(symbol string) (types.OHLCBar, bool) {
	b, ok := c.bars[symbol]
	return b, ok
}

// Open returns the current bar's open price for a symbol.
func (c *Context) Open(symbol string) (decimal.Decimal, bool) {
	b, ok := c.bars[symbol]
	return b.Open, ok
}

// High returns the current bar's high price for a symbol.
func (c *Context) High(symbol string) (decimal.Decimal, bool) {
	b, ok := c.bars[symbol]
	return b.High, ok
}

// Low returns the current bar's low price for a symbol.
func (c *Context) Low(symbol string) (decimal.Decimal, bool) {
	b, ok := c.bars[symbol]
	return b.Low, ok
}

// Close returns the current bar's close price for a symbol.
func (c *Context) Close(symbol string) (decimal.Decimal, bool) {
	b, ok := c.bars[symbol]
	return b.Close, ok
}

// Volume returns the current bar's volume for a symbol.
func (c *Context) Volume(symbol string) (int64, bool) {
	b, ok := c.bars[symbol]
	return b.Volume, ok
}

// History returns up to bars historical bars for a symbol at the context
// timeframe, ending at the context timestamp. The lookback window spans
// bars*2 calendar days to absorb weekends and holidays. Results are cached
// per (symbol, bars, timeframe) for this Context's lifetime.
func (c *Context) History(symbol string, bars int) (*types.HistoricalData, error) {
	if bars <= 0 {
		return nil, fmt.Errorf("history bars must be positive, got %d", bars)
	}

	key := historyKey{symbol: symbol, bars: bars, timeframe: c.timeframe}
	if cached, ok := c.cache[key]; ok {
		return cached, nil
	}

	start := c.timestamp.AddDate(0, 0, -bars*2)
	loader := NewLoader(c.src, []string{symbol}, start, c.timestamp, c.timeframe, c.batchSize)

	var all []types.OHLCBar
	for {
		batch, err := loader.Next(c.ctx)
		if err != nil {
			return nil, err
		}
		if batch == nil {
			break
		}
		all = append(all, batch...)
	}

	if len(all) > bars {
		all = all[len(all)-bars:]
	}
	hist := types.HistoricalDataFromBars(all)
	c.cache[key] = hist
	return hist, nil
}

// Buy places a market buy order through the broker.
func (c *Context) Buy(symbol string, quantity decimal.Decimal) (*types.OrderResponse, error) {
	return c.broker.SubmitOrder(c.ctx, types.OrderRequest{
		Symbol:      symbol,
		Side:        types.SideBuy,
		Type:        types.TypeMarket,
		Quantity:    quantity,
		TimeInForce: types.TIFDay,
	})
}

// Sell places a market sell order through the broker.
func (c *Context) Sell(symbol string, quantity decimal.Decimal) (*types.OrderResponse, error) {
	return c.broker.SubmitOrder(c.ctx, types.OrderRequest{
		Symbol:      symbol,
		Side:        types.SideSell,
		Type:        types.TypeMarket,
		Quantity:    quantity,
		TimeInForce: types.TIFDay,
	})
}

// ClosePosition exits the full held quantity for a symbol.
func (c *Context) ClosePosition(symbol string) (*types.OrderResponse, error) {
	return c.broker.ClosePosition(c.ctx, symbol)
}

// Position returns the current position for a symbol, or nil when none.
func (c *Context) Position(symbol string) (*types.Position, error) {
	return c.broker.GetPosition(c.ctx, symbol)
}

// Positions returns all current positions.
func (c *Context) Positions() ([]types.Position, error) {
	return c.broker.GetAllPositions(c.ctx)
}

// Account returns a fresh account snapshot.
func (c *Context) Account() (*types.Account, error) {
	return c.broker.GetAccount(c.ctx)
}

// Cash returns the available cash balance.
func (c *Context) Cash() (decimal.Decimal, error) {
	acct, err := c.broker.GetAccount(c.ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return acct.Cash, nil
}

// PortfolioValue returns the total portfolio value.
func (c *Context) PortfolioValue() (decimal.Decimal, error) {
	acct, err := c.broker.GetAccount(c.ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return acct.PortfolioValue, nil
}
