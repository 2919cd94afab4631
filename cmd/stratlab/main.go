package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"stratlab/internal/broker"
	"stratlab/internal/config"
	"stratlab/internal/engine"
	"stratlab/internal/repository"
	"stratlab/internal/util"
	"stratlab/strategies/smacross"
	"stratlab/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "config.yaml", "path to YAML configuration")
		mode       = flag.String("mode", "backtest", "backtest | account")
		symbols    = flag.String("symbols", "", "comma-separated symbols, e.g. AAPL,MSFT")
		startStr   = flag.String("start", "", "start date (YYYY-MM-DD)")
		endStr     = flag.String("end", "", "end date (YYYY-MM-DD)")
		fast       = flag.Int("fast", 10, "fast SMA period")
		slow       = flag.Int("slow", 30, "slow SMA period")
		tradesCSV  = flag.String("trades-csv", "", "write trade list CSV to this path")
		equityCSV  = flag.String("equity-csv", "", "write equity curve CSV to this path")
		progress   = flag.Bool("progress", true, "show progress bar")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger := util.NewLogger(cfg.Logging.Level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "backtest":
		return runBacktest(ctx, cfg, *symbols, *startStr, *endStr, *fast, *slow, *tradesCSV, *equityCSV, *progress)
	case "account":
		return runAccount(ctx, cfg)
	default:
		return fmt.Errorf("unknown mode %q", *mode)
	}
}

func runBacktest(ctx context.Context, cfg *config.Config, symbolsCSV, startStr, endStr string, fast, slow int, tradesCSV, equityCSV string, progress bool) error {
	btCfg, err := buildBacktestConfig(cfg, symbolsCSV, startStr, endStr)
	if err != nil {
		return err
	}

	db, err := repository.NewDatabase(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	strat, err := smacross.New(fast, slow)
	if err != nil {
		return err
	}

	sim := broker.NewSimulatedBroker(btCfg.SimConfig())
	eng, err := engine.New(btCfg, db, strat, sim)
	if err != nil {
		return err
	}
	eng.ShowProgress = progress

	result, err := eng.Run(ctx)
	if err != nil {
		return err
	}

	result.PrintReport()
	if tradesCSV != "" {
		if err := result.WriteTradesCSVFile(tradesCSV); err != nil {
			return err
		}
	}
	if equityCSV != "" {
		if err := result.WriteEquityCSVFile(equityCSV); err != nil {
			return err
		}
	}
	return nil
}

// runAccount prints the live account snapshot and open positions, mainly to
// verify credentials and connectivity.
func runAccount(ctx context.Context, cfg *config.Config) error {
	live := broker.NewAlpacaBroker(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL, cfg.Alpaca.RateLimitPerMin)
	if err := live.Connect(ctx); err != nil {
		return fmt.Errorf("connect %s: %w", live.Name(), err)
	}
	defer live.Disconnect()

	acct, err := live.GetAccount(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Account:         %s\n", acct.AccountID)
	fmt.Printf("Cash:            %s\n", acct.Cash.StringFixed(2))
	fmt.Printf("Equity:          %s\n", acct.Equity.StringFixed(2))
	fmt.Printf("Buying Power:    %s\n", acct.BuyingPower.StringFixed(2))
	fmt.Printf("Portfolio Value: %s\n", acct.PortfolioValue.StringFixed(2))

	positions, err := live.GetAllPositions(ctx)
	if err != nil {
		return err
	}
	for _, p := range positions {
		fmt.Printf("  %-6s qty=%s avg=%s pnl=%s\n",
			p.Symbol, p.Quantity.String(), p.AvgEntryPrice.String(), p.UnrealizedPnL().String())
	}
	return nil
}

func buildBacktestConfig(cfg *config.Config, symbolsCSV, startStr, endStr string) (engine.BacktestConfig, error) {
	var btCfg engine.BacktestConfig

	if symbolsCSV == "" {
		return btCfg, fmt.Errorf("-symbols is required")
	}
	for _, s := range strings.Split(symbolsCSV, ",") {
		if s = strings.TrimSpace(s); s != "" {
			btCfg.Symbols = append(btCfg.Symbols, strings.ToUpper(s))
		}
	}

	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return btCfg, fmt.Errorf("parse -start: %w", err)
	}
	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		return btCfg, fmt.Errorf("parse -end: %w", err)
	}
	btCfg.StartDate = start
	btCfg.EndDate = end.Add(24*time.Hour - time.Nanosecond)

	btCfg.InitialCapital, err = parseDecimal(cfg.Backtest.InitialCapital, "100000")
	if err != nil {
		return btCfg, fmt.Errorf("initial_capital: %w", err)
	}
	btCfg.CommissionPerShare, err = parseDecimal(cfg.Backtest.CommissionPerShare, "0")
	if err != nil {
		return btCfg, fmt.Errorf("commission_per_share: %w", err)
	}
	btCfg.CommissionPercent, err = parseDecimal(cfg.Backtest.CommissionPercent, "0")
	if err != nil {
		return btCfg, fmt.Errorf("commission_percent: %w", err)
	}
	btCfg.SlippagePercent, err = parseDecimal(cfg.Backtest.SlippagePercent, "0")
	if err != nil {
		return btCfg, fmt.Errorf("slippage_percent: %w", err)
	}

	tf := cfg.Backtest.Timeframe
	if tf == "" {
		tf = "1d"
	}
	btCfg.Timeframe, err = types.ParseTimeframe(tf)
	if err != nil {
		return btCfg, err
	}

	btCfg.AllowFractional = cfg.Backtest.AllowFractional
	btCfg.EnableSlippage = cfg.Backtest.EnableSlippage
	btCfg.EnableCommission = cfg.Backtest.EnableCommission
	btCfg.ContinueOnInsufficientFunds = cfg.Backtest.SkipOnNoFunds
	btCfg.BatchSize = cfg.Backtest.BatchSize
	return btCfg, nil
}

func parseDecimal(s, fallback string) (decimal.Decimal, error) {
	if s == "" {
		s = fallback
	}
	return decimal.NewFromString(s)
}
