package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stratlab/types"
)

// BacktestResult is the terminal snapshot of a completed run. It is produced
// exactly once, when the run completes, and never mutated afterwards.
type BacktestResult struct {
	Config BacktestConfig

	InitialCapital decimal.Decimal
	FinalCapital   decimal.Decimal
	TotalReturn    decimal.Decimal
	TotalReturnPct float64

	SharpeRatio    float64
	MaxDrawdown    decimal.Decimal
	MaxDrawdownPct float64

	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64

	EquityCurve []types.EquityPoint
	Trades      []types.TradeRecord

	Duration time.Duration
}

// PrintReport writes a human-readable summary to stdout.
func (r *BacktestResult) PrintReport() {
	fmt.Println("===== Backtest Report =====")
	fmt.Printf("Symbols:               %v\n", r.Config.Symbols)
	fmt.Printf("Period:                %s to %s\n",
		r.Config.StartDate.Format("2006-01-02"), r.Config.EndDate.Format("2006-01-02"))
	fmt.Printf("Timeframe:             %s\n", r.Config.Timeframe)
	fmt.Printf("Duration:              %s\n", r.Duration.Round(time.Millisecond))

	fmt.Println("\n-- Performance --")
	fmt.Printf("Initial Capital:       %s\n", r.InitialCapital.StringFixed(2))
	fmt.Printf("Final Capital:         %s\n", r.FinalCapital.StringFixed(2))
	fmt.Printf("Total Return:          %s (%.2f%%)\n", r.TotalReturn.StringFixed(2), r.TotalReturnPct)

	fmt.Println("\n-- Risk Metrics --")
	fmt.Printf("Sharpe Ratio:          %.4f\n", r.SharpeRatio)
	fmt.Printf("Max Drawdown:          %s (%.2f%%)\n", r.MaxDrawdown.StringFixed(2), r.MaxDrawdownPct)

	fmt.Println("\n-- Trades --")
	fmt.Printf("Total Trades:          %d\n", r.TotalTrades)
	fmt.Printf("Winning Trades:        %d\n", r.WinningTrades)
	fmt.Printf("Losing Trades:         %d\n", r.LosingTrades)
	fmt.Printf("Win Rate:              %.2f%%\n", r.WinRate*100)

	fmt.Println("===========================")
}
