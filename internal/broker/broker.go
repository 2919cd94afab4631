// Package broker defines the capability interface shared by every broker
// implementation and provides the simulated broker used for backtesting and
// the Alpaca-backed live broker. Strategies depend only on the Broker
// interface, which keeps them portable between backtest and live modes.
package broker

import (
	"context"

	"stratlab/types"
)

// Broker abstracts order execution, position tracking, and account state.
// Implementations must keep the whole surface call-compatible so that a
// strategy written against the interface runs unmodified in either mode.
type Broker interface {
	// Name returns the broker identifier (e.g. "simulated", "alpaca").
	Name() string

	// Connect establishes the broker session. The simulated broker treats
	// this as a no-op that only flips lifecycle state.
	Connect(ctx context.Context) error

	// Disconnect tears the session down. Safe to call more than once.
	Disconnect() error

	// SubmitOrder sends an order for execution and returns the resulting
	// order state. It is the only mutating entry point, so retry wrappers
	// around live brokers have a single operation to act upon.
	SubmitOrder(ctx context.Context, req types.OrderRequest) (*types.OrderResponse, error)

	// CancelOrder requests cancellation of an order by ID. It reports
	// whether the order was actually cancelled; cancelling an order that is
	// already terminal returns false without error.
	CancelOrder(ctx context.Context, orderID string) (bool, error)

	// GetOrder returns the current state of an order by ID.
	GetOrder(ctx context.Context, orderID string) (*types.OrderResponse, error)

	// GetOpenOrders returns all non-terminal orders, optionally filtered by
	// symbol when symbol is non-empty.
	GetOpenOrders(ctx context.Context, symbol string) ([]types.OrderResponse, error)

	// GetPosition returns the position for a symbol, or nil when none is
	// held.
	GetPosition(ctx context.Context, symbol string) (*types.Position, error)

	// GetAllPositions returns every currently held position.
	GetAllPositions(ctx context.Context) ([]types.Position, error)

	// ClosePosition exits the full held quantity for a symbol with an
	// opposing market order.
	ClosePosition(ctx context.Context, symbol string) (*types.OrderResponse, error)

	// GetAccount returns a freshly computed account snapshot.
	GetAccount(ctx context.Context) (*types.Account, error)
}
