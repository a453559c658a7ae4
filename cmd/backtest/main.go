package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/tradelab/trendsniper/internal/backtest"
	"github.com/tradelab/trendsniper/internal/logger"
	"github.com/tradelab/trendsniper/internal/strategy"
	"github.com/tradelab/trendsniper/pkg/config"
	"github.com/tradelab/trendsniper/pkg/data"
	"github.com/tradelab/trendsniper/pkg/reporting"
	"github.com/tradelab/trendsniper/pkg/types"
)

const (
	AppName    = "Trend Sniper Backtest"
	AppVersion = "1.2.0"
)

func main() {
	flags := NewFlags()
	flag.Parse()

	if *flags.ShowVersion {
		fmt.Printf("%s v%s\n", AppName, AppVersion)
		return
	}
	if *flags.ShowHelp {
		fmt.Printf("%s v%s\n\nUSAGE:\n  %s [OPTIONS]\n", AppName, AppVersion, filepath.Base(flag.CommandLine.Name()))
		PrintUsageExamples()
		fmt.Println("\nFLAGS:")
		flag.PrintDefaults()
		return
	}

	log, err := logger.NewLogger(*flags.Verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := flags.Validate(); err != nil {
		log.Fatal("invalid flags", zap.Error(err))
	}
	if err := godotenv.Load(*flags.EnvFile); err != nil {
		log.Debug("no environment file loaded", zap.String("path", *flags.EnvFile))
	}

	app, err := resolveConfig(flags)
	if err != nil {
		log.Fatal("configuration error", zap.Error(err))
	}

	bars, source, err := loadBars(flags, app)
	if err != nil {
		log.Fatal("data error", zap.Error(err))
	}
	log.Info("data loaded",
		zap.String("source", source),
		zap.Int("bars", len(bars)),
		zap.Time("first", bars[0].Timestamp),
		zap.Time("last", bars[len(bars)-1].Timestamp))

	eval, err := strategy.NewEvaluator(app.Strategy)
	if err != nil {
		log.Fatal("strategy error", zap.Error(err))
	}

	engine := backtest.NewEngine(app.Backtest, app.Strategy, eval, log)
	start := time.Now()
	result, err := engine.Run(bars)
	if err != nil {
		log.Fatal("backtest failed", zap.Error(err))
	}
	log.Info("backtest finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("trades", result.Report.TradeCount),
		zap.Float64("sharpe", result.Report.SharpeRatio))

	console := reporting.NewConsoleReporter()
	console.PrintSummary(result)
	if *flags.ShowTrades {
		console.PrintTrades(result.Trades)
	}

	if !*flags.ConsoleOnly {
		output := *flags.Output
		if output == "" {
			output = filepath.Join("results",
				fmt.Sprintf("%s_%s.xlsx", app.Data.Symbol, app.Data.Interval))
		}
		if err := reporting.NewExcelReporter().WriteResultXLSX(result, output); err != nil {
			log.Error("report write failed", zap.Error(err))
			os.Exit(1)
		}
		log.Info("report written", zap.String("path", output))
	}
}

// resolveConfig layers flag overrides on top of the config file (or the
// defaults when no file is given).
func resolveConfig(flags *Flags) (*config.App, error) {
	var app *config.App
	if *flags.ConfigFile != "" {
		loaded, err := config.Load(*flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		app = loaded
	} else {
		def := config.Default()
		app = &def
	}

	if *flags.Symbol != "" {
		app.Data.Symbol = *flags.Symbol
	}
	if *flags.Interval != "" {
		app.Data.Interval = *flags.Interval
	}
	if *flags.Exchange != "" {
		app.Data.Exchange = *flags.Exchange
	}
	if *flags.DataRoot != "" {
		app.Data.DataRoot = *flags.DataRoot
	}
	if *flags.DataFile != "" {
		app.Data.File = *flags.DataFile
	}
	if *flags.InitialCash > 0 {
		app.Backtest.InitialCash = *flags.InitialCash
	}
	if *flags.Commission >= 0 {
		app.Backtest.Commission = *flags.Commission
	}
	if *flags.Slippage >= 0 {
		app.Backtest.Slippage = *flags.Slippage
	}
	if *flags.Strategy != "" {
		app.Strategy.Name = *flags.Strategy
	}

	if err := app.Validate(); err != nil {
		return nil, err
	}
	return app, nil
}

// loadBars resolves the candle file, loads it, and applies the requested
// data window.
func loadBars(flags *Flags, app *config.App) ([]types.OHLCV, string, error) {
	source, err := app.CandleFile()
	if err != nil {
		return nil, "", err
	}

	format := data.BybitFormat
	if *flags.CSVFormat == "default" {
		format = data.DefaultFormat
	}

	bars, err := data.NewCSVProviderWithFormat(format).LoadData(source)
	if err != nil {
		return nil, "", err
	}

	if *flags.Period != "" {
		period, _ := data.ParseTrailingPeriod(*flags.Period)
		bars = data.FilterByPeriod(bars, period)
	}
	if *flags.From != "" || *flags.To != "" {
		from, err := parseDate(*flags.From)
		if err != nil {
			return nil, "", err
		}
		to, err := parseDate(*flags.To)
		if err != nil {
			return nil, "", err
		}
		bars = data.FilterByDateRange(bars, from, to)
	}

	if len(bars) == 0 {
		return nil, "", fmt.Errorf("no bars left in %s after applying the data window", source)
	}
	return bars, source, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (use RFC 3339 or 2006-01-02)", s)
}
