package main

import (
	"flag"
	"fmt"
	"strings"
	"time"
)

// Flags holds the command line flags for the download command.
type Flags struct {
	Symbol   *string
	Interval *string
	Category *string
	Days     *int
	From     *string
	To       *string

	DataRoot *string
	Output   *string

	Testnet *bool

	EnvFile *string
	Verbose *bool

	ShowVersion *bool
	ShowHelp    *bool
}

// NewFlags registers all download flags.
func NewFlags() *Flags {
	return &Flags{
		Symbol:   flag.String("symbol", "BTCUSDT", "Trading symbol"),
		Interval: flag.String("interval", "1h", "Candle interval (1m, 5m, 15m, 30m, 1h, 4h, 1d, 1w)"),
		Category: flag.String("category", "linear", "Market category (spot, linear, inverse)"),
		Days:     flag.Int("days", 365, "Days of history to download (ignored when -from is set)"),
		From:     flag.String("from", "", "Start date, RFC 3339 or 2006-01-02"),
		To:       flag.String("to", "", "End date, defaults to now"),

		DataRoot: flag.String("data-root", "data", "Data root directory"),
		Output:   flag.String("output", "", "Explicit output file (overrides data-root layout)"),

		Testnet: flag.Bool("testnet", false, "Download from the testnet"),

		EnvFile: flag.String("env", ".env", "Environment file path"),
		Verbose: flag.Bool("verbose", false, "Enable debug logging"),

		ShowVersion: flag.Bool("version", false, "Show version information"),
		ShowHelp:    flag.Bool("help", false, "Show detailed help"),
	}
}

// Validate checks flag combinations before hitting the network.
func (f *Flags) Validate() error {
	if *f.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}

	switch *f.Category {
	case "spot", "linear", "inverse":
	default:
		return fmt.Errorf("invalid category %q (valid: spot, linear, inverse)", *f.Category)
	}

	if *f.From == "" && *f.Days <= 0 {
		return fmt.Errorf("days must be positive, got %d", *f.Days)
	}

	return nil
}

// Window resolves the requested time range.
func (f *Flags) Window() (start, end time.Time, err error) {
	end = time.Now().UTC()
	if *f.To != "" {
		end, err = parseDate(*f.To)
		if err != nil {
			return
		}
	}

	if *f.From != "" {
		start, err = parseDate(*f.From)
	} else {
		start = end.AddDate(0, 0, -*f.Days)
	}
	if err == nil && !start.Before(end) {
		err = fmt.Errorf("start %s is not before end %s", start, end)
	}
	return
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (use RFC 3339 or 2006-01-02)", s)
}

// PrintUsageExamples prints common invocations.
func PrintUsageExamples() {
	examples := []struct {
		command     string
		description string
	}{
		{"download -symbol BTCUSDT -interval 1h -days 365", "One year of hourly BTC candles"},
		{"download -symbol ETHUSDT -interval 4h -from 2022-01-01", "4-hour ETH candles from a fixed date"},
		{"download -symbol BTCUSDT -category spot -output btc_spot.csv", "Spot candles to an explicit file"},
	}

	fmt.Printf("\nUSAGE EXAMPLES:\n%s\n", strings.Repeat("-", 60))
	for _, example := range examples {
		fmt.Printf("\n  %s\n      %s\n", example.command, example.description)
	}
}
