package indicators

import (
	"math"

	"github.com/tradelab/trendsniper/pkg/types"
)

// Params sets the lookback periods for every indicator the bank maintains.
type Params struct {
	TrendPeriod    int // SMA of close, the trend filter
	VolMAPeriod    int // SMA of volume
	ATRPeriod      int // rolling mean of True Range
	BreakoutPeriod int // highest-high / lowest-low lookback
}

// Snapshot is the indicator state for one bar. Fields that have not seen
// enough history yet are NaN; use Defined to test them. Ready is true once
// every indicator has warmed up, which is the earliest point a signal may
// fire.
type Snapshot struct {
	TrendSMA    float64
	VolSMA      float64
	ATR         float64
	NATR        float64
	HighestHigh float64
	LowestLow   float64
	Ready       bool
}

// Defined reports whether an indicator value has warmed up.
func Defined(v float64) bool {
	return !math.IsNaN(v)
}

// Bank computes all indicator values incrementally, one bar at a time.
// Every value returned for bar t depends only on bars <= t; nothing is
// ever recomputed retroactively.
type Bank struct {
	params Params
	warmup int

	closes  *rollingWindow
	volumes *rollingWindow
	ranges  *rollingWindow
	highs   *rollingWindow
	lows    *rollingWindow

	prevClose float64
	barCount  int
}

// NewBank creates an indicator bank for the given periods.
func NewBank(params Params) *Bank {
	warmup := params.TrendPeriod
	for _, p := range []int{params.VolMAPeriod, params.ATRPeriod, params.BreakoutPeriod} {
		if p > warmup {
			warmup = p
		}
	}

	return &Bank{
		params:  params,
		warmup:  warmup,
		closes:  newRollingWindow(params.TrendPeriod),
		volumes: newRollingWindow(params.VolMAPeriod),
		ranges:  newRollingWindow(params.ATRPeriod),
		highs:   newRollingWindow(params.BreakoutPeriod),
		lows:    newRollingWindow(params.BreakoutPeriod),
	}
}

// WarmupBars returns the number of bars needed before Ready snapshots are
// produced.
func (b *Bank) WarmupBars() int {
	return b.warmup
}

// Update feeds the next bar into the bank and returns the indicator state
// dated at that bar. The highest-high and lowest-low windows include the
// current bar; callers testing breakouts must compare against the previous
// bar's snapshot.
func (b *Bank) Update(bar types.OHLCV) Snapshot {
	tr := bar.High - bar.Low
	if b.barCount > 0 {
		tr = trueRange(bar, b.prevClose)
	}

	b.closes.Push(bar.Close)
	b.volumes.Push(bar.Volume)
	b.ranges.Push(tr)
	b.highs.Push(bar.High)
	b.lows.Push(bar.Low)

	b.prevClose = bar.Close
	b.barCount++

	snap := Snapshot{
		TrendSMA:    math.NaN(),
		VolSMA:      math.NaN(),
		ATR:         math.NaN(),
		NATR:        math.NaN(),
		HighestHigh: math.NaN(),
		LowestLow:   math.NaN(),
		Ready:       b.barCount >= b.warmup,
	}

	if b.closes.Full() {
		snap.TrendSMA = b.closes.Mean()
	}
	if b.volumes.Full() {
		snap.VolSMA = b.volumes.Mean()
	}
	if b.ranges.Full() {
		snap.ATR = b.ranges.Mean()
		if bar.Close > 0 {
			snap.NATR = snap.ATR / bar.Close
		}
	}
	if b.highs.Full() {
		snap.HighestHigh = b.highs.Max()
		snap.LowestLow = b.lows.Min()
	}

	return snap
}

// trueRange is max(high-low, |high-prevClose|, |low-prevClose|).
func trueRange(bar types.OHLCV, prevClose float64) float64 {
	hl := bar.High - bar.Low
	hc := math.Abs(bar.High - prevClose)
	lc := math.Abs(bar.Low - prevClose)

	return math.Max(hl, math.Max(hc, lc))
}
