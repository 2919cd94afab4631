package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord is one trade leg: opened when a fill establishes a position in
// a direction, closed when the position returns to zero. Exit fields stay
// nil while the trade is open.
type TradeRecord struct {
	TradeID     string
	Symbol      string
	Side        Side
	EntryTime   time.Time
	EntryPrice  decimal.Decimal
	ExitTime    *time.Time
	ExitPrice   *decimal.Decimal
	Quantity    decimal.Decimal
	RealizedPnL decimal.Decimal
	Commission  decimal.Decimal
	Slippage    decimal.Decimal
}

// Closed reports whether the trade has been fully exited.
func (t TradeRecord) Closed() bool {
	return t.ExitTime != nil
}
