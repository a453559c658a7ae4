package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/tradelab/trendsniper/internal/backtest"
	"github.com/tradelab/trendsniper/internal/logger"
	"github.com/tradelab/trendsniper/internal/monitoring"
	"github.com/tradelab/trendsniper/pkg/config"
	"github.com/tradelab/trendsniper/pkg/data"
	"github.com/tradelab/trendsniper/pkg/reporting"
	"github.com/tradelab/trendsniper/pkg/types"
)

const (
	AppName    = "Trend Sniper Optimizer"
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

	configs := app.Grid.Expand(app.Strategy)
	log.Info("sweep prepared",
		zap.String("source", source),
		zap.Int("bars", len(bars)),
		zap.Int("combinations", len(configs)),
		zap.Int("workers", *flags.Workers))
	if len(configs) == 1 {
		log.Warn("grid is empty, sweeping a single combination")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *flags.MetricsAddr != "" {
		go func() {
			if err := monitoring.Serve(ctx, *flags.MetricsAddr); err != nil {
				log.Error("metrics server stopped", zap.Error(err))
			}
		}()
		log.Info("metrics exposed", zap.String("addr", *flags.MetricsAddr))
	}

	observer := monitoring.NewSweepObserver(len(configs))
	var bar *progressbar.ProgressBar
	if !*flags.NoProgress {
		bar = progressbar.NewOptions(len(configs),
			progressbar.OptionSetDescription("Sweeping"),
			progressbar.OptionShowCount())
	}

	opt := backtest.NewOptimizer(app.Backtest, *flags.Workers, log)
	opt.OnResult = func(combo backtest.ComboResult) {
		observer.Observe(combo)
		if bar != nil {
			bar.Add(1)
		}
	}

	start := time.Now()
	results := opt.Run(ctx, bars, configs)
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}

	if ctx.Err() != nil && len(results) < len(configs) {
		log.Warn("sweep interrupted",
			zap.Int("completed", len(results)),
			zap.Int("total", len(configs)))
	}

	ranked := backtest.Rank(results)
	log.Info("sweep finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("ranked", len(ranked)),
		zap.Int("failed", len(results)-len(ranked)))
	if len(ranked) == 0 {
		log.Fatal("no combination completed successfully")
	}

	reporting.NewConsoleReporter().PrintRanking(ranked, *flags.TopN)

	if !*flags.ConsoleOnly {
		output := *flags.Output
		if output == "" {
			output = filepath.Join("results",
				fmt.Sprintf("%s_%s_sweep.xlsx", app.Data.Symbol, app.Data.Interval))
		}
		if err := reporting.NewExcelReporter().WriteSweepXLSX(ranked, output); err != nil {
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
	if *flags.DataRoot != "" {
		app.Data.DataRoot = *flags.DataRoot
	}
	if *flags.DataFile != "" {
		app.Data.File = *flags.DataFile
	}

	if err := app.Validate(); err != nil {
		return nil, err
	}
	return app, nil
}

// loadBars resolves the candle file, loads it, and applies the trailing
// window.
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
	if len(bars) == 0 {
		return nil, "", fmt.Errorf("no bars left in %s after applying the data window", source)
	}
	return bars, source, nil
}
