package broker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"stratlab/internal/util"
	"stratlab/types"
)

// Compile-time interface check.
var _ Broker = (*AlpacaBroker)(nil)

// AlpacaBroker implements the Broker interface against the Alpaca trading
// API. Every call waits on a token-bucket rate limiter; transient failures
// are retried with exponential backoff. SubmitOrder is the only mutating
// entry point, so retries never compound state changes beyond it.
type AlpacaBroker struct {
	client    *alpaca.Client
	limiter   *util.RateLimiter
	connected bool
}

// NewAlpacaBroker creates an AlpacaBroker for the given credentials and
// endpoint. ratePerMin bounds outgoing API calls.
func NewAlpacaBroker(apiKey, apiSecret, baseURL string, ratePerMin int) *AlpacaBroker {
	return &AlpacaBroker{
		client: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
		limiter: util.NewRateLimiter(ratePerMin),
	}
}

// Name returns "alpaca".
func (b *AlpacaBroker) Name() string { return "alpaca" }

// Connect verifies the credentials by fetching the account once.
func (b *AlpacaBroker) Connect(ctx context.Context) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := b.client.GetAccount(); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	b.connected = true
	return nil
}

// Disconnect clears the session flag. The REST client holds no connection
// state of its own.
func (b *AlpacaBroker) Disconnect() error {
	b.connected = false
	return nil
}

func (b *AlpacaBroker) call(ctx context.Context, fn func() error) error {
	if !b.connected {
		return ErrNotConnected
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	return util.Retry(ctx, 3, 500*time.Millisecond, fn)
}

// SubmitOrder places the order with Alpaca and maps the response back to
// the shared order model.
func (b *AlpacaBroker) SubmitOrder(ctx context.Context, req types.OrderRequest) (*types.OrderResponse, error) {
	if !req.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrOrderRejected)
	}

	tif := alpaca.Day
	if req.TimeInForce != "" {
		tif = alpaca.TimeInForce(req.TimeInForce)
	}
	qty := req.Quantity
	placeReq := alpaca.PlaceOrderRequest{
		Symbol:        req.Symbol,
		Qty:           &qty,
		Side:          alpaca.Side(req.Side),
		Type:          alpaca.OrderType(req.Type),
		TimeInForce:   tif,
		LimitPrice:    req.LimitPrice,
		StopPrice:     req.StopPrice,
		ExtendedHours: req.ExtendedHours,
		ClientOrderID: req.ClientOrderID,
	}

	var order *alpaca.Order
	err := b.call(ctx, func() error {
		var placeErr error
		order, placeErr = b.client.PlaceOrder(placeReq)
		return placeErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderRejected, err)
	}
	return convertAlpacaOrder(order), nil
}

// CancelOrder requests cancellation; an order already in a terminal state
// reports false without error.
func (b *AlpacaBroker) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	var order *alpaca.Order
	err := b.call(ctx, func() error {
		var getErr error
		order, getErr = b.client.GetOrder(orderID)
		return getErr
	})
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrOrderNotFound, orderID, err)
	}
	if convertAlpacaStatus(order.Status).Terminal() {
		return false, nil
	}
	err = b.call(ctx, func() error {
		return b.client.CancelOrder(orderID)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetOrder fetches an order by ID.
func (b *AlpacaBroker) GetOrder(ctx context.Context, orderID string) (*types.OrderResponse, error) {
	var order *alpaca.Order
	err := b.call(ctx, func() error {
		var getErr error
		order, getErr = b.client.GetOrder(orderID)
		return getErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOrderNotFound, orderID, err)
	}
	return convertAlpacaOrder(order), nil
}

// GetOpenOrders lists non-terminal orders, optionally scoped to one symbol.
func (b *AlpacaBroker) GetOpenOrders(ctx context.Context, symbol string) ([]types.OrderResponse, error) {
	getReq := alpaca.GetOrdersRequest{Status: "open"}
	if symbol != "" {
		getReq.Symbols = []string{symbol}
	}

	var orders []alpaca.Order
	err := b.call(ctx, func() error {
		var listErr error
		orders, listErr = b.client.GetOrders(getReq)
		return listErr
	})
	if err != nil {
		return nil, err
	}
	out := make([]types.OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, *convertAlpacaOrder(&orders[i]))
	}
	return out, nil
}

// GetPosition returns the held position for a symbol, or nil when Alpaca
// reports none.
func (b *AlpacaBroker) GetPosition(ctx context.Context, symbol string) (*types.Position, error) {
	var pos *alpaca.Position
	err := b.call(ctx, func() error {
		var getErr error
		pos, getErr = b.client.GetPosition(symbol)
		return getErr
	})
	if err != nil {
		if strings.Contains(err.Error(), "position does not exist") {
			return nil, nil
		}
		return nil, err
	}
	return convertAlpacaPosition(pos), nil
}

// GetAllPositions returns every held position.
func (b *AlpacaBroker) GetAllPositions(ctx context.Context) ([]types.Position, error) {
	var positions []alpaca.Position
	err := b.call(ctx, func() error {
		var listErr error
		positions, listErr = b.client.GetPositions()
		return listErr
	})
	if err != nil {
		return nil, err
	}
	out := make([]types.Position, 0, len(positions))
	for i := range positions {
		out = append(out, *convertAlpacaPosition(&positions[i]))
	}
	return out, nil
}

// ClosePosition liquidates the full held quantity for a symbol.
func (b *AlpacaBroker) ClosePosition(ctx context.Context, symbol string) (*types.OrderResponse, error) {
	var order *alpaca.Order
	err := b.call(ctx, func() error {
		var closeErr error
		order, closeErr = b.client.ClosePosition(symbol, alpaca.ClosePositionRequest{})
		return closeErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoPosition, symbol, err)
	}
	return convertAlpacaOrder(order), nil
}

// GetAccount fetches the current account snapshot.
func (b *AlpacaBroker) GetAccount(ctx context.Context) (*types.Account, error) {
	var acct *alpaca.Account
	err := b.call(ctx, func() error {
		var getErr error
		acct, getErr = b.client.GetAccount()
		return getErr
	})
	if err != nil {
		return nil, err
	}
	return &types.Account{
		AccountID:      acct.ID,
		Cash:           acct.Cash,
		Equity:         acct.Equity,
		BuyingPower:    acct.BuyingPower,
		PortfolioValue: acct.Equity,
		AsOf:           time.Now().UTC(),
	}, nil
}

func convertAlpacaOrder(o *alpaca.Order) *types.OrderResponse {
	resp := &types.OrderResponse{
		OrderID:        o.ID,
		ClientOrderID:  o.ClientOrderID,
		Symbol:         o.Symbol,
		Side:           types.Side(o.Side),
		Type:           types.OrderType(o.Type),
		FilledQuantity: o.FilledQty,
		Status:         convertAlpacaStatus(o.Status),
		SubmittedAt:    o.SubmittedAt,
		FilledAt:       o.FilledAt,
		AvgFillPrice:   o.FilledAvgPrice,
	}
	if o.Qty != nil {
		resp.Quantity = *o.Qty
	}
	return resp
}

func convertAlpacaStatus(status string) types.OrderStatus {
	switch status {
	case "new", "accepted", "pending_new":
		return types.OrderSubmitted
	case "partially_filled":
		return types.OrderPartiallyFilled
	case "filled":
		return types.OrderFilled
	case "canceled", "pending_cancel":
		return types.OrderCancelled
	case "rejected":
		return types.OrderRejected
	case "expired":
		return types.OrderExpired
	default:
		return types.OrderPending
	}
}

func convertAlpacaPosition(p *alpaca.Position) *types.Position {
	side := types.SideBuy
	if strings.EqualFold(p.Side, "short") {
		side = types.SideSell
	}
	pos := &types.Position{
		Symbol:        p.Symbol,
		Quantity:      p.Qty,
		AvgEntryPrice: p.AvgEntryPrice,
		CostBasis:     p.CostBasis,
		Side:          side,
	}
	if p.CurrentPrice != nil {
		pos.CurrentPrice = *p.CurrentPrice
	}
	return pos
}
