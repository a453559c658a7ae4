package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/tradelab/trendsniper/pkg/data"
)

// Flags holds the command line flags for the backtest command.
type Flags struct {
	// Configuration
	ConfigFile *string
	DataFile   *string
	Symbol     *string
	Interval   *string
	Exchange   *string
	DataRoot   *string
	CSVFormat  *string

	// Broker settings
	InitialCash *float64
	Commission  *float64
	Slippage    *float64

	// Strategy selection
	Strategy *string

	// Data window
	Period *string
	From   *string
	To     *string

	// Output options
	Output      *string
	ShowTrades  *bool
	ConsoleOnly *bool

	EnvFile *string
	Verbose *bool

	ShowVersion *bool
	ShowHelp    *bool
}

// NewFlags registers all backtest flags.
func NewFlags() *Flags {
	return &Flags{
		ConfigFile: flag.String("config", "", "Path to YAML configuration file"),
		DataFile:   flag.String("data", "", "Path to candle CSV file (overrides data-root lookup)"),
		Symbol:     flag.String("symbol", "", "Trading symbol (e.g. BTCUSDT)"),
		Interval:   flag.String("interval", "", "Candle interval (5m, 15m, 1h, 4h, 1d)"),
		Exchange:   flag.String("exchange", "", "Exchange the data came from"),
		DataRoot:   flag.String("data-root", "", "Data root directory"),
		CSVFormat:  flag.String("csv-format", "bybit", "CSV layout: bybit (epoch millis) or default (datetime)"),

		InitialCash: flag.Float64("balance", 0, "Initial cash (overrides config)"),
		Commission:  flag.Float64("commission", -1, "Commission rate per fill (overrides config)"),
		Slippage:    flag.Float64("slippage", -1, "Slippage rate per fill (overrides config)"),

		Strategy: flag.String("strategy", "", "Strategy name: trend_breakout or trend_sniper"),

		Period: flag.String("period", "", "Limit data to trailing period (7d, 30d, 365d)"),
		From:   flag.String("from", "", "Start date, RFC 3339 or 2006-01-02"),
		To:     flag.String("to", "", "End date, RFC 3339 or 2006-01-02"),

		Output:      flag.String("output", "", "Path for the xlsx report (default results/<symbol>_<interval>.xlsx)"),
		ShowTrades:  flag.Bool("trades", false, "Print the trade ledger"),
		ConsoleOnly: flag.Bool("console-only", false, "Console output only, no report file"),

		EnvFile: flag.String("env", ".env", "Environment file path"),
		Verbose: flag.Bool("verbose", false, "Enable debug logging"),

		ShowVersion: flag.Bool("version", false, "Show version information"),
		ShowHelp:    flag.Bool("help", false, "Show detailed help"),
	}
}

// Validate checks flag combinations before anything heavier runs.
func (f *Flags) Validate() error {
	switch *f.CSVFormat {
	case "bybit", "default":
	default:
		return fmt.Errorf("invalid csv-format %q (valid: bybit, default)", *f.CSVFormat)
	}

	if *f.Period != "" {
		if _, ok := data.ParseTrailingPeriod(*f.Period); !ok {
			return fmt.Errorf("invalid period %q (use 7d, 30d, 365d)", *f.Period)
		}
	}

	if *f.Strategy != "" {
		switch *f.Strategy {
		case "trend_breakout", "trend_sniper":
		default:
			return fmt.Errorf("unknown strategy %q (valid: trend_breakout, trend_sniper)", *f.Strategy)
		}
	}

	return nil
}

// PrintUsageExamples prints common invocations.
func PrintUsageExamples() {
	examples := []struct {
		command     string
		description string
	}{
		{"backtest -symbol BTCUSDT -interval 1h", "Backtest BTC hourly data from the data root"},
		{"backtest -config configs/btc_1h.yaml", "Load all settings from a configuration file"},
		{"backtest -data exports/candles.csv -csv-format default", "Backtest an arbitrary CSV file"},
		{"backtest -symbol ETHUSDT -period 90d -trades", "Last 90 days with a full trade ledger"},
		{"backtest -symbol BTCUSDT -strategy trend_sniper", "Run the legacy long-only strategy"},
	}

	fmt.Printf("\nUSAGE EXAMPLES:\n%s\n", strings.Repeat("-", 60))
	for _, example := range examples {
		fmt.Printf("\n  %s\n      %s\n", example.command, example.description)
	}
}
