package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"stratlab/types"
)

// WriteTradesCSVFile writes the result's trade list to a CSV file.
func (r *BacktestResult) WriteTradesCSVFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trades file: %w", err)
	}
	defer f.Close()

	return writeTradesCSV(f, r.Trades)
}

// WriteEquityCSVFile writes the result's equity curve to a CSV file.
func (r *BacktestResult) WriteEquityCSVFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create equity file: %w", err)
	}
	defer f.Close()

	return writeEquityCSV(f, r.EquityCurve)
}

// writeTradesCSV writes trades to any io.Writer as CSV. Pass os.Stdout for
// debugging, or a file.
func writeTradesCSV(w io.Writer, trades []types.TradeRecord) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"trade_id",
		"symbol",
		"side",
		"entry_time", // RFC3339
		"entry_price",
		"exit_time",
		"exit_price",
		"quantity",
		"realized_pnl",
		"commission",
		"slippage",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, t := range trades {
		exitTime, exitPrice := "", ""
		if t.ExitTime != nil {
			exitTime = t.ExitTime.Format(time.RFC3339)
		}
		if t.ExitPrice != nil {
			exitPrice = t.ExitPrice.String()
		}
		record := []string{
			t.TradeID,
			t.Symbol,
			string(t.Side),
			t.EntryTime.Format(time.RFC3339),
			t.EntryPrice.String(),
			exitTime,
			exitPrice,
			t.Quantity.String(),
			t.RealizedPnL.String(),
			t.Commission.String(),
			t.Slippage.String(),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func writeEquityCSV(w io.Writer, curve []types.EquityPoint) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"timestamp", "equity"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range curve {
		record := []string{p.Time.Format(time.RFC3339), p.Equity.String()}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
