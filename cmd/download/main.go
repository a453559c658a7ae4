package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/tradelab/trendsniper/internal/exchange/bybit"
	"github.com/tradelab/trendsniper/internal/logger"
	"github.com/tradelab/trendsniper/pkg/data"
	"github.com/tradelab/trendsniper/pkg/types"
)

const (
	AppName    = "Trend Sniper Downloader"
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

	interval, err := bybit.ParseInterval(*flags.Interval)
	if err != nil {
		log.Fatal("invalid interval", zap.Error(err))
	}

	start, end, err := flags.Window()
	if err != nil {
		log.Fatal("invalid time window", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := bybit.NewClient(bybit.Config{
		APIKey:    os.Getenv("BYBIT_API_KEY"),
		APISecret: os.Getenv("BYBIT_API_SECRET"),
		Testnet:   *flags.Testnet,
	})

	symbol := strings.ToUpper(*flags.Symbol)
	log.Info("download started",
		zap.String("symbol", symbol),
		zap.String("category", *flags.Category),
		zap.String("interval", string(interval)),
		zap.Time("start", start),
		zap.Time("end", end))

	bars, err := client.GetKlineRange(ctx, bybit.KlineParams{
		Category: *flags.Category,
		Symbol:   symbol,
		Interval: interval,
	}, start, end)
	if err != nil {
		log.Fatal("download failed", zap.Error(err))
	}
	if len(bars) == 0 {
		log.Fatal("exchange returned no candles for the requested window")
	}

	bars = data.Normalize(bars)
	if err := types.ValidateSeries(bars); err != nil {
		log.Fatal("downloaded series violates the data contract", zap.Error(err))
	}

	output := *flags.Output
	if output == "" {
		output = data.CandlePath(*flags.DataRoot, "bybit", *flags.Category, symbol, *flags.Interval)
	}
	if err := data.WriteCandles(output, bars); err != nil {
		log.Fatal("write failed", zap.Error(err))
	}

	log.Info("download finished",
		zap.String("path", output),
		zap.Int("bars", len(bars)),
		zap.Time("first", bars[0].Timestamp),
		zap.Time("last", bars[len(bars)-1].Timestamp))
}
