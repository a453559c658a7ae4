package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/tradelab/trendsniper/pkg/data"
)

// Flags holds the command line flags for the optimize command.
type Flags struct {
	// Configuration
	ConfigFile *string
	DataFile   *string
	Symbol     *string
	Interval   *string
	DataRoot   *string
	CSVFormat  *string

	// Data window
	Period *string

	// Sweep options
	Workers *int
	TopN    *int

	// Observability
	MetricsAddr *string
	NoProgress  *bool

	// Output options
	Output      *string
	ConsoleOnly *bool

	EnvFile *string
	Verbose *bool

	ShowVersion *bool
	ShowHelp    *bool
}

// NewFlags registers all optimize flags.
func NewFlags() *Flags {
	return &Flags{
		ConfigFile: flag.String("config", "", "Path to YAML configuration file with a grid section"),
		DataFile:   flag.String("data", "", "Path to candle CSV file (overrides data-root lookup)"),
		Symbol:     flag.String("symbol", "", "Trading symbol (e.g. BTCUSDT)"),
		Interval:   flag.String("interval", "", "Candle interval (5m, 15m, 1h, 4h, 1d)"),
		DataRoot:   flag.String("data-root", "", "Data root directory"),
		CSVFormat:  flag.String("csv-format", "bybit", "CSV layout: bybit (epoch millis) or default (datetime)"),

		Period: flag.String("period", "", "Limit data to trailing period (7d, 30d, 365d)"),

		Workers: flag.Int("workers", 0, "Worker goroutines (0 = one per CPU)"),
		TopN:    flag.Int("top", 10, "Combinations to show in the ranking table"),

		MetricsAddr: flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9100)"),
		NoProgress:  flag.Bool("no-progress", false, "Disable the progress bar"),

		Output:      flag.String("output", "", "Path for the xlsx ranking (default results/<symbol>_<interval>_sweep.xlsx)"),
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

	if *f.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", *f.Workers)
	}
	if *f.TopN <= 0 {
		return fmt.Errorf("top must be positive, got %d", *f.TopN)
	}

	return nil
}

// PrintUsageExamples prints common invocations.
func PrintUsageExamples() {
	examples := []struct {
		command     string
		description string
	}{
		{"optimize -config configs/btc_1h.yaml", "Sweep the grid declared in the configuration file"},
		{"optimize -config configs/btc_1h.yaml -workers 8", "Sweep with a fixed worker count"},
		{"optimize -config configs/btc_1h.yaml -period 180d -top 20", "Sweep the last 180 days, show the top 20"},
		{"optimize -config configs/btc_1h.yaml -metrics-addr :9100", "Expose sweep progress to Prometheus"},
	}

	fmt.Printf("\nUSAGE EXAMPLES:\n%s\n", strings.Repeat("-", 60))
	for _, example := range examples {
		fmt.Printf("\n  %s\n      %s\n", example.command, example.description)
	}
}
