package engine

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"stratlab/internal/broker"
	"stratlab/types"
)

// DefaultBatchSize is the page size used when loading bars from the store.
const DefaultBatchSize = 10000

// BacktestConfig is the immutable input to one backtest run.
type BacktestConfig struct {
	Symbols        []string
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital decimal.Decimal
	Timeframe      types.Timeframe

	CommissionPerShare decimal.Decimal
	CommissionPercent  decimal.Decimal
	SlippagePercent    decimal.Decimal

	AllowFractional  bool
	EnableSlippage   bool
	EnableCommission bool

	// ContinueOnInsufficientFunds skips to the next timestamp when a strategy
	// order fails for lack of cash, instead of failing the run.
	ContinueOnInsufficientFunds bool

	// BatchSize overrides DefaultBatchSize when positive.
	BatchSize int
}

// Validate checks the configuration before a run starts.
func (c BacktestConfig) Validate() error {
	if len(c.Symbols) == 0 {
		return errors.New("at least one symbol required")
	}
	if c.StartDate.After(c.EndDate) {
		return errors.New("start date must not be after end date")
	}
	if !c.InitialCapital.IsPositive() {
		return errors.New("initial capital must be positive")
	}
	if c.Timeframe.Duration() == 0 {
		return errors.New("unknown timeframe")
	}
	return nil
}

func (c BacktestConfig) batchSize() int {
	if c.BatchSize > 0 {
		return c.BatchSize
	}
	return DefaultBatchSize
}

// SimConfig derives the simulated-broker fill model, zeroing out costs whose
// enable flags are off.
func (c BacktestConfig) SimConfig() broker.SimConfig {
	cfg := broker.SimConfig{
		InitialCapital:  c.InitialCapital,
		AllowFractional: c.AllowFractional,
	}
	if c.EnableSlippage {
		cfg.SlippagePercent = c.SlippagePercent
	}
	if c.EnableCommission {
		cfg.CommissionPerShare = c.CommissionPerShare
		cfg.CommissionPercent = c.CommissionPercent
	}
	return cfg
}
