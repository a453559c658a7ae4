package data

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tradelab/trendsniper/pkg/types"
)

// ParseTrailingPeriod parses period strings like "7d", "36h" or "4w" into
// a duration. The boolean is false when the string is not a period.
func ParseTrailingPeriod(s string) (time.Duration, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 2 {
		return 0, false
	}

	num, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || num <= 0 {
		return 0, false
	}

	switch s[len(s)-1:] {
	case "h":
		return time.Duration(num) * time.Hour, true
	case "d":
		return time.Duration(num) * 24 * time.Hour, true
	case "w":
		return time.Duration(num) * 7 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// FilterByPeriod keeps the trailing window of the series: everything from
// (last timestamp - period) onward.
func FilterByPeriod(bars []types.OHLCV, period time.Duration) []types.OHLCV {
	if period <= 0 || len(bars) == 0 {
		return bars
	}

	cutoff := bars[len(bars)-1].Timestamp.Add(-period)
	idx := sort.Search(len(bars), func(i int) bool {
		return !bars[i].Timestamp.Before(cutoff)
	})
	return bars[idx:]
}

// FilterByDateRange keeps bars inside [start, end]. A zero start or end
// leaves that side unbounded.
func FilterByDateRange(bars []types.OHLCV, start, end time.Time) []types.OHLCV {
	var filtered []types.OHLCV
	for _, bar := range bars {
		if !start.IsZero() && bar.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && bar.Timestamp.After(end) {
			continue
		}
		filtered = append(filtered, bar)
	}
	return filtered
}

// Normalize sorts bars chronologically and drops duplicate timestamps,
// keeping the first occurrence. Exchange kline pages arrive newest first
// and overlap at the page seams; this puts them into contract shape.
func Normalize(bars []types.OHLCV) []types.OHLCV {
	if len(bars) <= 1 {
		return bars
	}

	sorted := make([]types.OHLCV, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	out := sorted[:1]
	for _, bar := range sorted[1:] {
		if bar.Timestamp.Equal(out[len(out)-1].Timestamp) {
			continue
		}
		out = append(out, bar)
	}
	return out
}
