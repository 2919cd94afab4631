package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the current holding for one symbol. Quantity is signed:
// positive for long, negative for short. A position with zero quantity does
// not exist; brokers remove it instead of storing it.
type Position struct {
	Symbol        string
	Quantity      decimal.Decimal
	AvgEntryPrice decimal.Decimal
	CostBasis     decimal.Decimal
	CurrentPrice  decimal.Decimal
	Side          Side
}

// MarketValue is quantity * current price, derived on demand so it can never
// go stale across fills.
func (p Position) MarketValue() decimal.Decimal {
	return p.Quantity.Mul(p.CurrentPrice)
}

// UnrealizedPnL is market value minus cost basis.
func (p Position) UnrealizedPnL() decimal.Decimal {
	return p.MarketValue().Sub(p.CostBasis)
}

// UnrealizedPnLPercent is unrealized P&L as a percentage of the absolute
// cost basis, or zero for a zero cost basis.
func (p Position) UnrealizedPnLPercent() decimal.Decimal {
	if p.CostBasis.IsZero() {
		return decimal.Zero
	}
	return p.UnrealizedPnL().Div(p.CostBasis.Abs()).Mul(decimal.NewFromInt(100))
}

// Account is a snapshot of the trading account. Brokers recompute it on
// every call rather than caching across mutations.
type Account struct {
	AccountID      string
	Cash           decimal.Decimal
	Equity         decimal.Decimal
	BuyingPower    decimal.Decimal
	PortfolioValue decimal.Decimal
	AsOf           time.Time
}
