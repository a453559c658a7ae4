package strategy

import (
	"math"

	"github.com/tradelab/trendsniper/internal/indicators"
	"github.com/tradelab/trendsniper/pkg/types"
)

// Signal is an entry decision for one bar. The evaluator is only consulted
// while flat; exits are the position manager's job.
type Signal int

const (
	SignalNone Signal = iota
	SignalLong
	SignalShort
)

func (s Signal) String() string {
	switch s {
	case SignalLong:
		return "LONG"
	case SignalShort:
		return "SHORT"
	default:
		return "NONE"
	}
}

// Evaluator decides entries and position sizes for the backtest engine.
// Evaluate sees the full bar and snapshot history up to and including bar
// t and must not reference anything past t.
type Evaluator interface {
	Name() string
	Evaluate(t int, snaps []indicators.Snapshot, bars []types.OHLCV) Signal
	PositionSize(equity, price, atr float64) float64
}

// TrendBreakout is the dual-direction trend/breakout evaluator.
//
// A long fires when the close is above the trend SMA, breaks above the
// previous bar's highest-high, volume confirms on any of the last three
// bars, and normalized ATR clears the volatility floor. A short is the
// mirror. The breakout test deliberately uses the snapshot at t-1: the
// extreme window includes its own bar, so comparing against the current
// snapshot would require the close to exceed the bar's own high.
type TrendBreakout struct {
	cfg Config
}

// NewTrendBreakout creates the dual-direction evaluator.
func NewTrendBreakout(cfg Config) *TrendBreakout {
	return &TrendBreakout{cfg: cfg}
}

func (s *TrendBreakout) Name() string { return NameTrendBreakout }

// Evaluate returns the entry signal for bar t, or SignalNone. Long takes
// priority if degenerate data satisfies both directions at once.
func (s *TrendBreakout) Evaluate(t int, snaps []indicators.Snapshot, bars []types.OHLCV) Signal {
	if t < 1 || !snaps[t].Ready || !snaps[t-1].Ready {
		return SignalNone
	}

	cur := snaps[t]
	prev := snaps[t-1]
	close := bars[t].Close

	if !indicators.Defined(cur.TrendSMA) || !indicators.Defined(cur.NATR) ||
		!indicators.Defined(prev.HighestHigh) || !indicators.Defined(prev.LowestLow) {
		return SignalNone
	}

	if cur.NATR <= s.cfg.VolatilityThreshold {
		return SignalNone
	}
	if !s.volumeConfirmed(t, snaps, bars) {
		return SignalNone
	}

	if close > cur.TrendSMA && close > prev.HighestHigh {
		return SignalLong
	}
	if close < cur.TrendSMA && close < prev.LowestLow {
		return SignalShort
	}

	return SignalNone
}

// volumeConfirmed is true when any of bars t, t-1, t-2 printed volume above
// its own volume-SMA threshold. Bars whose volume SMA has not warmed up do
// not count.
func (s *TrendBreakout) volumeConfirmed(t int, snaps []indicators.Snapshot, bars []types.OHLCV) bool {
	for k := t; k >= t-2 && k >= 0; k-- {
		if !indicators.Defined(snaps[k].VolSMA) {
			continue
		}
		if bars[k].Volume > snaps[k].VolSMA*s.cfg.VolMultiplier {
			return true
		}
	}
	return false
}

// PositionSize converts the account risk budget into units:
// floor(equity * risk / (ATR * stopMultiplier)), capped at what equity can
// actually buy. Returns 0 when the risk budget cannot afford one unit.
func (s *TrendBreakout) PositionSize(equity, price, atr float64) float64 {
	if atr <= 0 || price <= 0 || equity <= 0 {
		return 0
	}

	stopDistance := atr * s.cfg.StopLossATRMultiplier
	if stopDistance <= 0 {
		return 0
	}

	size := math.Floor(equity * s.cfg.RiskPerTrade / stopDistance)
	maxAffordable := math.Floor(equity / price)
	if size > maxAffordable {
		size = maxAffordable
	}
	if size < 0 {
		return 0
	}
	return size
}
