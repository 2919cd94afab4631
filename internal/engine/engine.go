// Package engine implements the backtesting simulation core: a
// chronological event-replay loop that feeds historical bars to a strategy,
// fills orders through the simulated broker, tracks the equity curve, and
// derives performance metrics.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"

	"stratlab/internal/broker"
	"stratlab/types"
)

// State is the engine lifecycle state.
type State string

const (
	StateInitialized State = "initialized"
	StateRunning     State = "running"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
)

// Strategy is invoked exactly once per distinct timestamp with a fresh
// Context. Any order it places fills synchronously before the call returns.
// An error aborts the run.
type Strategy interface {
	OnBar(c *Context) error
}

// StrategyFunc adapts a plain function to the Strategy interface.
type StrategyFunc func(*Context) error

// OnBar calls f(c).
func (f StrategyFunc) OnBar(c *Context) error { return f(c) }

// MarketBroker is the broker capability the engine drives: the shared
// Broker surface plus the simulation clock and reference-price hooks.
type MarketBroker interface {
	broker.Broker
	SetCurrentTime(ts time.Time)
	SetCurrentPrice(symbol string, price decimal.Decimal)
	Trades() []types.TradeRecord
}

// RunError reports which timestamp and operation aborted a run.
type RunError struct {
	Timestamp time.Time
	Op        string
	Err       error
}

func (e *RunError) Error() string {
	if e.Timestamp.IsZero() {
		return fmt.Sprintf("backtest %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("backtest %s at %s: %v", e.Op, e.Timestamp.Format(time.RFC3339), e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Engine orchestrates one backtest run. It owns the broker, the equity
// curve, and the loader; a run is strictly single-threaded and sequential
// because account valuation depends on the order of prior fills. Engines
// are one-shot: construct a new one per run. Separate Engine instances
// share no mutable state and may run concurrently.
type Engine struct {
	cfg    BacktestConfig
	src    BarSource
	strat  Strategy
	broker MarketBroker

	state       State
	equityCurve []types.EquityPoint

	// ShowProgress renders a terminal progress bar during the run.
	ShowProgress bool

	log *slog.Logger
}

// New creates an Engine for one run of the given strategy.
func New(cfg BacktestConfig, src BarSource, strat Strategy, bkr MarketBroker) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if strat == nil {
		return nil, errors.New("strategy required")
	}
	return &Engine{
		cfg:    cfg,
		src:    src,
		strat:  strat,
		broker: bkr,
		state:  StateInitialized,
		log:    slog.Default().With("component", "backtest"),
	}, nil
}

// State returns the current lifecycle state.
func (e *Engine) State() State { return e.state }

// EquityCurve returns a copy of the equity points accumulated so far. After
// a failed run it holds the partial curve for diagnostics.
func (e *Engine) EquityCurve() []types.EquityPoint {
	out := make([]types.EquityPoint, len(e.equityCurve))
	copy(out, e.equityCurve)
	return out
}

// Trades returns the trade records accumulated so far.
func (e *Engine) Trades() []types.TradeRecord {
	return e.broker.Trades()
}

// Run replays the configured date range through the strategy and returns
// the terminal result. Cancellation via ctx is honored at timestamp
// boundaries only, so no timestamp is ever half-processed. On error the
// engine transitions to Failed, returns a *RunError, and produces no
// result.
func (e *Engine) Run(ctx context.Context) (*BacktestResult, error) {
	if e.state != StateInitialized {
		return nil, fmt.Errorf("engine already ran (state %s)", e.state)
	}
	started := time.Now()
	e.state = StateRunning
	e.log.Info("backtest starting",
		"symbols", e.cfg.Symbols,
		"start", e.cfg.StartDate.Format("2006-01-02"),
		"end", e.cfg.EndDate.Format("2006-01-02"),
		"timeframe", string(e.cfg.Timeframe),
		"initial_capital", e.cfg.InitialCapital.String(),
	)

	if err := e.broker.Connect(ctx); err != nil {
		return nil, e.fail(time.Time{}, "connect", err)
	}

	progress := e.initProgress(ctx)
	loader := NewLoader(e.src, e.cfg.Symbols, e.cfg.StartDate, e.cfg.EndDate, e.cfg.Timeframe, e.cfg.batchSize())

	// Bars for one timestamp can straddle a page boundary, so a timestamp
	// group is only processed once a later timestamp (or the end of data)
	// has been seen.
	var pending []types.OHLCBar
	var pendingTS time.Time

	for {
		batch, err := loader.Next(ctx)
		if err != nil {
			return nil, e.fail(pendingTS, "load", err)
		}
		if batch == nil {
			break
		}
		for _, b := range batch {
			if len(pending) > 0 && !b.Timestamp.Equal(pendingTS) {
				if err := e.processTimestamp(ctx, pendingTS, pending); err != nil {
					return nil, err
				}
				pending = pending[:0]
			}
			pending = append(pending, b)
			pendingTS = b.Timestamp
		}
		if progress != nil {
			_ = progress.Add(len(batch))
		}
	}
	if len(pending) > 0 {
		if err := e.processTimestamp(ctx, pendingTS, pending); err != nil {
			return nil, err
		}
	}

	if err := e.broker.Disconnect(); err != nil {
		return nil, e.fail(pendingTS, "disconnect", err)
	}

	result, err := e.buildResult(started)
	if err != nil {
		return nil, e.fail(pendingTS, "result", err)
	}
	e.state = StateCompleted
	e.log.Info("backtest completed",
		"timestamps", len(e.equityCurve),
		"trades", result.TotalTrades,
		"final_capital", result.FinalCapital.String(),
		"total_return_pct", result.TotalReturnPct,
		"duration", result.Duration.String(),
	)
	return result, nil
}

// processTimestamp advances the broker to ts, makes every bar's reference
// price visible, then invokes the strategy once and records the resulting
// portfolio value. Price updates strictly precede the strategy call so the
// strategy never observes a partial snapshot of this instant.
func (e *Engine) processTimestamp(ctx context.Context, ts time.Time, bars []types.OHLCBar) error {
	if err := ctx.Err(); err != nil {
		return e.fail(ts, "cancelled", err)
	}

	e.broker.SetCurrentTime(ts)
	barsBySym := make(map[string]types.OHLCBar, len(bars))
	for _, b := range bars {
		e.broker.SetCurrentPrice(b.Symbol, b.Close)
		barsBySym[b.Symbol] = b
	}

	c := newContext(ctx, ts, barsBySym, e.broker, e.src, e.cfg.Timeframe, e.cfg.batchSize())
	if err := e.strat.OnBar(c); err != nil {
		if e.cfg.ContinueOnInsufficientFunds && errors.Is(err, broker.ErrInsufficientFunds) {
			e.log.Warn("order skipped, insufficient funds", "timestamp", ts, "err", err)
		} else {
			return e.fail(ts, "strategy", err)
		}
	}

	acct, err := e.broker.GetAccount(ctx)
	if err != nil {
		return e.fail(ts, "account", err)
	}
	e.equityCurve = append(e.equityCurve, types.EquityPoint{Time: ts, Equity: acct.PortfolioValue})
	return nil
}

func (e *Engine) fail(ts time.Time, op string, err error) error {
	e.state = StateFailed
	runErr := &RunError{Timestamp: ts, Op: op, Err: err}
	e.log.Error("backtest failed", "op", op, "timestamp", ts, "err", err)
	return runErr
}

func (e *Engine) buildResult(started time.Time) (*BacktestResult, error) {
	acct, err := e.broker.GetAccount(context.Background())
	if err != nil {
		return nil, err
	}
	trades := e.broker.Trades()

	absReturn, pctReturn := totalReturn(e.cfg.InitialCapital, acct.PortfolioValue)
	maxDD, maxDDPct := maxDrawdown(e.equityCurve)
	total, winning, losing, winRate := tradeStats(trades)

	return &BacktestResult{
		Config:         e.cfg,
		InitialCapital: e.cfg.InitialCapital,
		FinalCapital:   acct.PortfolioValue,
		TotalReturn:    absReturn,
		TotalReturnPct: pctReturn,
		SharpeRatio:    sharpeRatio(e.equityCurve),
		MaxDrawdown:    maxDD,
		MaxDrawdownPct: maxDDPct,
		TotalTrades:    total,
		WinningTrades:  winning,
		LosingTrades:   losing,
		WinRate:        winRate,
		EquityCurve:    e.EquityCurve(),
		Trades:         trades,
		Duration:       time.Since(started),
	}, nil
}

func (e *Engine) initProgress(ctx context.Context) *progressbar.ProgressBar {
	if !e.ShowProgress {
		return nil
	}
	count, err := e.src.GetBarCount(ctx, e.cfg.Symbols, e.cfg.StartDate, e.cfg.EndDate, e.cfg.Timeframe)
	if err != nil || count == 0 {
		e.log.Debug("bar count unavailable, skipping progress bar", "err", err)
		return nil
	}
	return progressbar.NewOptions(int(count),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("Backtesting in progress..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
