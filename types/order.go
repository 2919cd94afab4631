package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

type OrderType string

type OrderStatus string

type TimeInForce string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"

	TypeMarket       OrderType = "market"
	TypeLimit        OrderType = "limit"
	TypeStop         OrderType = "stop"
	TypeStopLimit    OrderType = "stop_limit"
	TypeTrailingStop OrderType = "trailing_stop"

	OrderPending         OrderStatus = "pending"
	OrderSubmitted       OrderStatus = "submitted"
	OrderPartiallyFilled OrderStatus = "partially_filled"
	OrderFilled          OrderStatus = "filled"
	OrderCancelled       OrderStatus = "cancelled"
	OrderRejected        OrderStatus = "rejected"
	OrderExpired         OrderStatus = "expired"

	TIFDay TimeInForce = "day"
	TIFGTC TimeInForce = "gtc"
	TIFIOC TimeInForce = "ioc"
	TIFFOK TimeInForce = "fok"
)

// Terminal reports whether the status is final: no further fills or
// cancellations can change the order.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderFilled, OrderCancelled, OrderRejected, OrderExpired:
		return true
	}
	return false
}

// OrderRequest is the caller-supplied order intent, shared by every broker
// implementation.
type OrderRequest struct {
	Symbol        string
	Side          Side
	Type          OrderType
	Quantity      decimal.Decimal
	LimitPrice    *decimal.Decimal
	StopPrice     *decimal.Decimal
	TimeInForce   TimeInForce
	ExtendedHours bool
	ClientOrderID string
}

// OrderResponse is the broker-assigned outcome of an order submission or
// query. It is immutable once issued.
type OrderResponse struct {
	OrderID        string
	ClientOrderID  string
	Symbol         string
	Side           Side
	Type           OrderType
	Quantity       decimal.Decimal
	FilledQuantity decimal.Decimal
	Status         OrderStatus
	SubmittedAt    time.Time
	FilledAt       *time.Time
	AvgFillPrice   *decimal.Decimal

	// Fee metadata for simulated fills. Live brokers leave these zero.
	Commission decimal.Decimal
	Slippage   decimal.Decimal
}
