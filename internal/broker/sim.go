package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"stratlab/types"
)

// Compile-time interface check.
var _ Broker = (*SimulatedBroker)(nil)

var hundred = decimal.NewFromInt(100)

// SimConfig holds the fill-model parameters of a simulated broker. Zero
// commission and slippage values disable the respective cost.
type SimConfig struct {
	InitialCapital     decimal.Decimal
	CommissionPerShare decimal.Decimal
	CommissionPercent  decimal.Decimal
	SlippagePercent    decimal.Decimal
	AllowFractional    bool
}

// SimulatedBroker implements the Broker interface against an in-memory
// portfolio. Market orders fill immediately at the current reference price
// adjusted for slippage; cash, cost basis, and trade records are updated
// atomically with the fill.
//
// The broker is single-owner state: one backtest run drives one instance
// and nothing else mutates it, so no locking is needed.
type SimulatedBroker struct {
	cfg  SimConfig
	cash decimal.Decimal

	positions map[string]*types.Position
	orders    map[string]types.OrderResponse

	// trades holds every trade leg in creation order; open maps a symbol to
	// its not-yet-closed entry in trades.
	trades []*types.TradeRecord
	open   map[string]*types.TradeRecord

	currentTime time.Time
	prices      map[string]decimal.Decimal

	orderSeq  int
	tradeSeq  int
	connected bool
	log       *slog.Logger
}

// NewSimulatedBroker creates a simulated broker funded with
// cfg.InitialCapital.
func NewSimulatedBroker(cfg SimConfig) *SimulatedBroker {
	return &SimulatedBroker{
		cfg:       cfg,
		cash:      cfg.InitialCapital,
		positions: make(map[string]*types.Position),
		orders:    make(map[string]types.OrderResponse),
		open:      make(map[string]*types.TradeRecord),
		prices:    make(map[string]decimal.Decimal),
		log:       slog.Default().With("broker", "simulated"),
	}
}

// Name returns "simulated".
func (b *SimulatedBroker) Name() string { return "simulated" }

// Connect flips the lifecycle flag. The simulation has no session to open,
// but the shared lifecycle contract must still hold.
func (b *SimulatedBroker) Connect(_ context.Context) error {
	b.connected = true
	return nil
}

// Disconnect flips the lifecycle flag. Safe to call repeatedly.
func (b *SimulatedBroker) Disconnect() error {
	b.connected = false
	return nil
}

// SetCurrentTime advances the simulation clock. Must be called before fills
// are expected at that timestamp.
func (b *SimulatedBroker) SetCurrentTime(ts time.Time) {
	b.currentTime = ts
}

// SetCurrentPrice updates the reference price for a symbol and revalues any
// held position at it.
func (b *SimulatedBroker) SetCurrentPrice(symbol string, price decimal.Decimal) {
	b.prices[symbol] = price
	if pos, ok := b.positions[symbol]; ok {
		pos.CurrentPrice = price
	}
}

// SubmitOrder fills a market order synchronously against the current
// reference price. Buys are debited fill*qty + commission and fail with
// ErrInsufficientFunds when that exceeds cash, leaving all state untouched.
func (b *SimulatedBroker) SubmitOrder(_ context.Context, req types.OrderRequest) (*types.OrderResponse, error) {
	base, ok := b.prices[req.Symbol]
	if !ok {
		return nil, fmt.Errorf("%w: no reference price for %s", ErrDataUnavailable, req.Symbol)
	}
	if !req.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrOrderRejected)
	}
	if !b.cfg.AllowFractional && !req.Quantity.IsInteger() {
		return nil, fmt.Errorf("%w: fractional shares disabled", ErrOrderRejected)
	}
	if req.Side != types.SideBuy && req.Side != types.SideSell {
		return nil, fmt.Errorf("%w: unknown side %q", ErrOrderRejected, req.Side)
	}
	if req.Type != types.TypeMarket {
		// Every simulated fill is synchronous; order types that would need a
		// pending state are rejected up front.
		return nil, fmt.Errorf("%w: order type %q not supported in simulation", ErrOrderRejected, req.Type)
	}

	fill := b.fillPrice(req.Side, base)
	commission := b.commission(req.Quantity, fill)

	if req.Side == types.SideBuy {
		required := fill.Mul(req.Quantity).Add(commission)
		if required.GreaterThan(b.cash) {
			return nil, fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, required.StringFixed(2), b.cash.StringFixed(2))
		}
	}

	b.orderSeq++
	orderID := fmt.Sprintf("SIM%08d", b.orderSeq)

	slippageCost := fill.Sub(base).Abs().Mul(req.Quantity)

	delta := req.Quantity
	if req.Side == types.SideSell {
		delta = delta.Neg()
		b.cash = b.cash.Add(fill.Mul(req.Quantity)).Sub(commission)
	} else {
		b.cash = b.cash.Sub(fill.Mul(req.Quantity)).Sub(commission)
	}
	b.applyFill(req.Symbol, delta, fill, commission, slippageCost)

	filledAt := b.currentTime
	resp := types.OrderResponse{
		OrderID:        orderID,
		ClientOrderID:  req.ClientOrderID,
		Symbol:         req.Symbol,
		Side:           req.Side,
		Type:           req.Type,
		Quantity:       req.Quantity,
		FilledQuantity: req.Quantity,
		Status:         types.OrderFilled,
		SubmittedAt:    b.currentTime,
		FilledAt:       &filledAt,
		AvgFillPrice:   &fill,
		Commission:     commission,
		Slippage:       slippageCost,
	}
	b.orders[orderID] = resp

	b.log.Debug("order filled",
		"order_id", orderID,
		"side", req.Side,
		"symbol", req.Symbol,
		"qty", req.Quantity.String(),
		"fill", fill.String(),
		"commission", commission.String(),
	)
	return &resp, nil
}

func (b *SimulatedBroker) fillPrice(side types.Side, base decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(b.cfg.SlippagePercent.Div(hundred))
	if side == types.SideBuy {
		return base.Mul(factor)
	}
	return base.Div(factor)
}

func (b *SimulatedBroker) commission(qty, fill decimal.Decimal) decimal.Decimal {
	perShare := qty.Mul(b.cfg.CommissionPerShare)
	percent := fill.Mul(qty).Mul(b.cfg.CommissionPercent).Div(hundred)
	return perShare.Add(percent)
}

// applyFill updates the position and trade records for a signed quantity
// delta executed at fill. Cost basis accumulates on adds and reduces
// proportionally on exits so that avg entry price stays cost_basis/quantity
// even through a long-to-short reversal.
func (b *SimulatedBroker) applyFill(symbol string, delta, fill, commission, slippage decimal.Decimal) {
	pos, exists := b.positions[symbol]
	if !exists {
		b.openPosition(symbol, delta, fill, commission, slippage)
		return
	}

	oldQty := pos.Quantity
	newQty := oldQty.Add(delta)

	switch {
	case oldQty.Sign() == delta.Sign():
		// Adding to the position: weighted-average cost basis.
		pos.CostBasis = pos.CostBasis.Add(delta.Mul(fill))
		pos.Quantity = newQty
		pos.AvgEntryPrice = pos.CostBasis.Div(newQty)
		if tr := b.open[symbol]; tr != nil {
			tr.Quantity = tr.Quantity.Add(delta.Abs())
			tr.EntryPrice = pos.AvgEntryPrice
			tr.Commission = tr.Commission.Add(commission)
			tr.Slippage = tr.Slippage.Add(slippage)
		}

	case newQty.IsZero() || newQty.Sign() == oldQty.Sign():
		// Reducing (possibly to zero): realize P&L on the exited quantity
		// and shrink cost basis proportionally.
		reduced := delta.Abs()
		pnl := b.realize(pos, reduced, fill)
		pos.CostBasis = pos.AvgEntryPrice.Mul(newQty)
		pos.Quantity = newQty
		if tr := b.open[symbol]; tr != nil {
			tr.RealizedPnL = tr.RealizedPnL.Add(pnl)
			tr.Commission = tr.Commission.Add(commission)
			tr.Slippage = tr.Slippage.Add(slippage)
		}
		if newQty.IsZero() {
			delete(b.positions, symbol)
			b.closeTrade(symbol, fill)
		}

	default:
		// Direction reversal: close the old leg fully, then open the
		// remainder on the other side at the fill price. Commission and
		// slippage split pro rata between the two legs.
		closed := oldQty.Abs()
		total := delta.Abs()
		rem := newQty

		closeFrac := closed.Div(total)
		commClose := commission.Mul(closeFrac)
		slipClose := slippage.Mul(closeFrac)

		pnl := b.realize(pos, closed, fill)
		if tr := b.open[symbol]; tr != nil {
			tr.RealizedPnL = tr.RealizedPnL.Add(pnl)
			tr.Commission = tr.Commission.Add(commClose)
			tr.Slippage = tr.Slippage.Add(slipClose)
		}
		delete(b.positions, symbol)
		b.closeTrade(symbol, fill)

		b.openPosition(symbol, rem, fill, commission.Sub(commClose), slippage.Sub(slipClose))
	}
}

// realize computes P&L for exiting qty units of pos at fill. Long exits earn
// fill - avg entry; short exits earn avg entry - fill.
func (b *SimulatedBroker) realize(pos *types.Position, qty, fill decimal.Decimal) decimal.Decimal {
	diff := fill.Sub(pos.AvgEntryPrice)
	if pos.Quantity.IsNegative() {
		diff = diff.Neg()
	}
	return diff.Mul(qty)
}

func (b *SimulatedBroker) openPosition(symbol string, qty, fill, commission, slippage decimal.Decimal) {
	side := types.SideBuy
	if qty.IsNegative() {
		side = types.SideSell
	}
	current, ok := b.prices[symbol]
	if !ok {
		current = fill
	}
	b.positions[symbol] = &types.Position{
		Symbol:        symbol,
		Quantity:      qty,
		AvgEntryPrice: fill,
		CostBasis:     qty.Mul(fill),
		CurrentPrice:  current,
		Side:          side,
	}

	b.tradeSeq++
	tr := &types.TradeRecord{
		TradeID:    fmt.Sprintf("TRD%08d", b.tradeSeq),
		Symbol:     symbol,
		Side:       side,
		EntryTime:  b.currentTime,
		EntryPrice: fill,
		Quantity:   qty.Abs(),
		Commission: commission,
		Slippage:   slippage,
	}
	b.trades = append(b.trades, tr)
	b.open[symbol] = tr
}

func (b *SimulatedBroker) closeTrade(symbol string, fill decimal.Decimal) {
	tr, ok := b.open[symbol]
	if !ok {
		return
	}
	exitTime := b.currentTime
	tr.ExitTime = &exitTime
	tr.ExitPrice = &fill
	delete(b.open, symbol)
}

// CancelOrder reports false for every known order: simulated orders are
// terminal the moment they are submitted, so there is nothing to cancel.
func (b *SimulatedBroker) CancelOrder(_ context.Context, orderID string) (bool, error) {
	if _, ok := b.orders[orderID]; !ok {
		return false, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return false, nil
}

// GetOrder returns the recorded terminal state of an order.
func (b *SimulatedBroker) GetOrder(_ context.Context, orderID string) (*types.OrderResponse, error) {
	resp, ok := b.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return &resp, nil
}

// GetOpenOrders always returns an empty slice: every simulated order fills
// synchronously.
func (b *SimulatedBroker) GetOpenOrders(_ context.Context, _ string) ([]types.OrderResponse, error) {
	return []types.OrderResponse{}, nil
}

// GetPosition returns a copy of the held position, or nil when the symbol
// has no open position.
func (b *SimulatedBroker) GetPosition(_ context.Context, symbol string) (*types.Position, error) {
	pos, ok := b.positions[symbol]
	if !ok {
		return nil, nil
	}
	cp := *pos
	return &cp, nil
}

// GetAllPositions returns copies of every held position, sorted by symbol.
func (b *SimulatedBroker) GetAllPositions(_ context.Context) ([]types.Position, error) {
	out := make([]types.Position, 0, len(b.positions))
	for _, pos := range b.positions {
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

// ClosePosition exits the full held quantity with a synthetic opposing
// market order.
func (b *SimulatedBroker) ClosePosition(ctx context.Context, symbol string) (*types.OrderResponse, error) {
	pos, ok := b.positions[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoPosition, symbol)
	}
	side := types.SideSell
	if pos.Quantity.IsNegative() {
		side = types.SideBuy
	}
	return b.SubmitOrder(ctx, types.OrderRequest{
		Symbol:   symbol,
		Side:     side,
		Type:     types.TypeMarket,
		Quantity: pos.Quantity.Abs(),
	})
}

// GetAccount recomputes equity and portfolio value from current cash and
// position market values. Nothing is cached across mutations.
func (b *SimulatedBroker) GetAccount(_ context.Context) (*types.Account, error) {
	portfolio := b.cash
	for _, pos := range b.positions {
		portfolio = portfolio.Add(pos.MarketValue())
	}
	return &types.Account{
		AccountID:      "SIMULATED",
		Cash:           b.cash,
		Equity:         portfolio,
		BuyingPower:    b.cash,
		PortfolioValue: portfolio,
		AsOf:           b.currentTime,
	}, nil
}

// Trades returns every trade leg recorded so far, open legs included, in
// entry order.
func (b *SimulatedBroker) Trades() []types.TradeRecord {
	out := make([]types.TradeRecord, 0, len(b.trades))
	for _, tr := range b.trades {
		out = append(out, *tr)
	}
	return out
}
