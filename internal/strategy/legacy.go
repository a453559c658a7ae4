package strategy

import (
	"math"

	"github.com/tradelab/trendsniper/internal/indicators"
	"github.com/tradelab/trendsniper/pkg/types"
)

// TrendSniper is the original long-only variant kept for comparison runs:
// price above the trend SMA with a single-bar volume spike, no breakout or
// volatility filter, and a fixed cash fraction per entry.
type TrendSniper struct {
	cfg Config
}

// NewTrendSniper creates the legacy long-only evaluator.
func NewTrendSniper(cfg Config) *TrendSniper {
	return &TrendSniper{cfg: cfg}
}

func (s *TrendSniper) Name() string { return NameTrendSniper }

// Evaluate returns SignalLong when the trend and volume conditions hold.
// The legacy variant never shorts.
func (s *TrendSniper) Evaluate(t int, snaps []indicators.Snapshot, bars []types.OHLCV) Signal {
	if !snaps[t].Ready {
		return SignalNone
	}

	cur := snaps[t]
	if !indicators.Defined(cur.TrendSMA) || !indicators.Defined(cur.VolSMA) {
		return SignalNone
	}

	if bars[t].Close > cur.TrendSMA && bars[t].Volume > cur.VolSMA*s.cfg.VolMultiplier {
		return SignalLong
	}
	return SignalNone
}

// PositionSize commits a fixed fraction of equity at the entry price.
func (s *TrendSniper) PositionSize(equity, price, atr float64) float64 {
	if price <= 0 || equity <= 0 {
		return 0
	}
	size := math.Floor(equity * s.cfg.PositionSizeFraction / price)
	if size < 0 {
		return 0
	}
	return size
}
