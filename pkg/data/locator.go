package data

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// IntervalToMinutes converts interval strings like "5m", "1h", "4h" into
// the minute numbers used in data directory names. Bare numbers pass
// through untouched.
func IntervalToMinutes(interval string) string {
	if _, err := strconv.Atoi(interval); err == nil {
		return interval
	}

	interval = strings.ToLower(strings.TrimSpace(interval))
	if len(interval) < 2 {
		return interval
	}

	num, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil {
		return interval
	}

	switch interval[len(interval)-1:] {
	case "m":
		return strconv.Itoa(num)
	case "h":
		return strconv.Itoa(num * 60)
	case "d":
		return strconv.Itoa(num * 24 * 60)
	case "w":
		return strconv.Itoa(num * 7 * 24 * 60)
	default:
		return interval
	}
}

// CandlePath builds the canonical location for a symbol's candle file:
// {root}/{exchange}/{category}/{SYMBOL}/{interval-minutes}/candles.csv.
func CandlePath(dataRoot, exchange, category, symbol, interval string) string {
	return filepath.Join(dataRoot, strings.ToLower(exchange), strings.ToLower(category),
		strings.ToUpper(symbol), IntervalToMinutes(interval), "candles.csv")
}

// FindCandleFile searches the known category directories of an exchange
// for a symbol's candle file.
func FindCandleFile(dataRoot, exchange, symbol, interval string) (string, error) {
	var categories []string
	switch strings.ToLower(exchange) {
	case "bybit":
		categories = []string{"linear", "spot", "inverse"}
	default:
		categories = []string{"spot", "linear", "inverse", "futures"}
	}

	attempted := make([]string, 0, len(categories))
	for _, category := range categories {
		path := CandlePath(dataRoot, exchange, category, symbol, interval)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		attempted = append(attempted, path)
	}

	return "", fmt.Errorf("no candle file for %s %s %s, tried: %s",
		exchange, symbol, interval, strings.Join(attempted, ", "))
}
