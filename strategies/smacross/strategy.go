// Package smacross implements a simple moving-average crossover strategy:
// go long when the fast SMA crosses above the slow SMA, exit when it
// crosses back below.
package smacross

import (
	"fmt"

	"github.com/shopspring/decimal"

	"stratlab/internal/engine"
	"stratlab/internal/indicators"
)

// Strategy trades one long position per symbol on SMA crossovers. Position
// size is a fixed fraction of available cash at entry time.
type Strategy struct {
	FastPeriod int
	SlowPeriod int

	// AllocationPct is the fraction of cash committed per entry, in
	// percent. Defaults to 10 when zero.
	AllocationPct decimal.Decimal
}

// New creates a crossover strategy with the given SMA periods.
func New(fast, slow int) (*Strategy, error) {
	if fast <= 0 || slow <= 0 {
		return nil, fmt.Errorf("sma periods must be positive, got fast=%d slow=%d", fast, slow)
	}
	if fast >= slow {
		return nil, fmt.Errorf("fast period %d must be shorter than slow period %d", fast, slow)
	}
	return &Strategy{
		FastPeriod:    fast,
		SlowPeriod:    slow,
		AllocationPct: decimal.NewFromInt(10),
	}, nil
}

// OnBar evaluates the crossover for every symbol present at this timestamp.
func (s *Strategy) OnBar(c *engine.Context) error {
	for _, symbol := range c.Symbols() {
		if err := s.evaluate(c, symbol); err != nil {
			return err
		}
	}
	return nil
}

func (s *Strategy) evaluate(c *engine.Context, symbol string) error {
	// One extra bar so the cross test has a previous value for both SMAs.
	hist, err := c.History(symbol, s.SlowPeriod+1)
	if err != nil {
		return fmt.Errorf("history %s: %w", symbol, err)
	}
	if hist.Len() < s.SlowPeriod+1 {
		return nil
	}

	fast := indicators.SMA(hist.Closes, s.FastPeriod)
	slow := indicators.SMA(hist.Closes, s.SlowPeriod)

	pos, err := c.Position(symbol)
	if err != nil {
		return fmt.Errorf("position %s: %w", symbol, err)
	}

	switch {
	case indicators.CrossedAbove(fast, slow) && pos == nil:
		qty, err := s.entryQuantity(c, symbol)
		if err != nil {
			return err
		}
		if qty.IsZero() {
			return nil
		}
		if _, err := c.Buy(symbol, qty); err != nil {
			return fmt.Errorf("buy %s: %w", symbol, err)
		}

	case indicators.CrossedBelow(fast, slow) && pos != nil && pos.Quantity.IsPositive():
		if _, err := c.ClosePosition(symbol); err != nil {
			return fmt.Errorf("close %s: %w", symbol, err)
		}
	}
	return nil
}

// entryQuantity sizes the order as AllocationPct of cash at the current
// close, rounded down to whole shares.
func (s *Strategy) entryQuantity(c *engine.Context, symbol string) (decimal.Decimal, error) {
	price, ok := c.Close(symbol)
	if !ok || !price.IsPositive() {
		return decimal.Zero, nil
	}
	cash, err := c.Cash()
	if err != nil {
		return decimal.Zero, fmt.Errorf("cash: %w", err)
	}

	pct := s.AllocationPct
	if pct.IsZero() {
		pct = decimal.NewFromInt(10)
	}
	budget := cash.Mul(pct).Div(decimal.NewFromInt(100))
	return budget.Div(price).Floor(), nil
}
