package types

import (
	"errors"
	"fmt"
	"time"
)

// OHLCV is a single historical bar. Bars are immutable once loaded and are
// always handed to the engine as a chronologically sorted slice.
type OHLCV struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timestamp time.Time
}

// Structural violations of the input-data contract. The backtest engine
// refuses to run on a series that fails validation.
var (
	ErrEmptySeries        = errors.New("empty bar series")
	ErrUnsortedSeries     = errors.New("bar series is not sorted by timestamp")
	ErrDuplicateTimestamp = errors.New("bar series contains duplicate timestamps")
	ErrInvalidBar         = errors.New("bar has inconsistent or non-positive prices")
)

// ValidateSeries checks the structural invariants the strategy core relies
// on: non-empty, strictly increasing timestamps, and internally consistent
// bars (high is the max of the bar, low is the min, prices positive).
func ValidateSeries(bars []OHLCV) error {
	if len(bars) == 0 {
		return ErrEmptySeries
	}

	for i, bar := range bars {
		if err := validateBar(bar); err != nil {
			return fmt.Errorf("bar %d (%s): %w", i, bar.Timestamp.Format(time.RFC3339), err)
		}

		if i == 0 {
			continue
		}

		prev := bars[i-1].Timestamp
		switch {
		case bar.Timestamp.Equal(prev):
			return fmt.Errorf("bar %d (%s): %w", i, bar.Timestamp.Format(time.RFC3339), ErrDuplicateTimestamp)
		case bar.Timestamp.Before(prev):
			return fmt.Errorf("bar %d (%s): %w", i, bar.Timestamp.Format(time.RFC3339), ErrUnsortedSeries)
		}
	}

	return nil
}

func validateBar(bar OHLCV) error {
	if bar.Open <= 0 || bar.High <= 0 || bar.Low <= 0 || bar.Close <= 0 {
		return ErrInvalidBar
	}
	if bar.Volume < 0 {
		return ErrInvalidBar
	}
	if bar.High < bar.Open || bar.High < bar.Close || bar.High < bar.Low {
		return ErrInvalidBar
	}
	if bar.Low > bar.Open || bar.Low > bar.Close {
		return ErrInvalidBar
	}
	return nil
}
