package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradelab/trendsniper/pkg/types"
)

func rangeBar(high, low, close float64) types.OHLCV {
	open := close
	if open > high {
		open = high
	}
	if open < low {
		open = low
	}
	return types.OHLCV{
		Open: open, High: high, Low: low, Close: close,
		Volume:    1000,
		Timestamp: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// TestOpenPosition_HardStops tests initial hard stop placement for both
// directions.
func TestOpenPosition_HardStops(t *testing.T) {
	long := OpenPosition(Long, 100, 10, 0, time.Time{}, 2, 2.0)
	assert.InDelta(t, 96.0, long.HardStop, 1e-9)
	assert.False(t, long.TrailingActive)
	assert.InDelta(t, 96.0, long.ActiveStop(), 1e-9)

	short := OpenPosition(Short, 100, 10, 0, time.Time{}, 2, 2.0)
	assert.InDelta(t, 104.0, short.HardStop, 1e-9)
	assert.InDelta(t, 104.0, short.ActiveStop(), 1e-9)
}

// TestPosition_HardStopFill tests that an intrabar drop through the stop
// fills at the stop price, not at the bar's low.
func TestPosition_HardStopFill(t *testing.T) {
	pos := OpenPosition(Long, 100, 10, 0, time.Time{}, 2, 2.0) // stop 96

	price, reason, hit := pos.StopHit(rangeBar(101, 95, 97))
	require.True(t, hit)
	assert.InDelta(t, 96.0, price, 1e-9)
	assert.Equal(t, ExitStopLoss, reason)

	// A bar that holds above the stop does not trigger.
	_, _, hit = pos.StopHit(rangeBar(101, 96.5, 98))
	assert.False(t, hit)
}

// TestPosition_TrailingLifecycleLong walks the documented long scenario:
// entry 100, ATR 2 at entry, trailing multiplier 3 (distance 6). Rise to
// 110 arms at 104, rise to 120 ratchets to 114, the fall to 113 exits at
// 114.
func TestPosition_TrailingLifecycleLong(t *testing.T) {
	pos := OpenPosition(Long, 100, 10, 0, time.Time{}, 2, 2.0)

	// Not armed below the 6-point excursion threshold.
	pos.UpdateTrailing(105, 3.0, true)
	assert.False(t, pos.TrailingActive)
	assert.InDelta(t, 96.0, pos.ActiveStop(), 1e-9)

	pos.UpdateTrailing(110, 3.0, true)
	require.True(t, pos.TrailingActive)
	assert.InDelta(t, 104.0, pos.TrailingStop, 1e-9)

	pos.UpdateTrailing(120, 3.0, true)
	assert.InDelta(t, 114.0, pos.TrailingStop, 1e-9)

	// The ratchet never gives ground.
	pos.UpdateTrailing(113, 3.0, true)
	assert.InDelta(t, 114.0, pos.TrailingStop, 1e-9)

	price, reason, hit := pos.StopHit(rangeBar(115, 113, 113))
	require.True(t, hit)
	assert.InDelta(t, 114.0, price, 1e-9)
	assert.Equal(t, ExitTrailingStop, reason)
}

// TestPosition_TrailingLifecycleShort tests the mirrored short ratchet.
func TestPosition_TrailingLifecycleShort(t *testing.T) {
	pos := OpenPosition(Short, 100, 10, 0, time.Time{}, 2, 2.0) // hard stop 104

	pos.UpdateTrailing(96, 3.0, true)
	assert.False(t, pos.TrailingActive)

	pos.UpdateTrailing(90, 3.0, true)
	require.True(t, pos.TrailingActive)
	assert.InDelta(t, 96.0, pos.TrailingStop, 1e-9)

	pos.UpdateTrailing(80, 3.0, true)
	assert.InDelta(t, 86.0, pos.TrailingStop, 1e-9)

	pos.UpdateTrailing(85, 3.0, true)
	assert.InDelta(t, 86.0, pos.TrailingStop, 1e-9)

	price, reason, hit := pos.StopHit(rangeBar(87, 84, 86))
	require.True(t, hit)
	assert.InDelta(t, 86.0, price, 1e-9)
	assert.Equal(t, ExitTrailingStop, reason)
}

// TestPosition_TrailingMonotone tests the invariant over a noisy close
// path: once armed, the long trailing stop never decreases.
func TestPosition_TrailingMonotone(t *testing.T) {
	pos := OpenPosition(Long, 100, 10, 0, time.Time{}, 2, 2.0)

	closes := []float64{103, 107, 111, 108, 115, 112, 119, 118, 125, 124}
	prevStop := 0.0
	for _, c := range closes {
		pos.UpdateTrailing(c, 3.0, true)
		if pos.TrailingActive {
			assert.GreaterOrEqual(t, pos.TrailingStop, prevStop)
			prevStop = pos.TrailingStop
		}
	}
	assert.True(t, pos.TrailingActive)
}

// TestPosition_TrailingDisabled tests that the hard stop stays in force
// when trailing is off.
func TestPosition_TrailingDisabled(t *testing.T) {
	pos := OpenPosition(Long, 100, 10, 0, time.Time{}, 2, 2.0)

	pos.UpdateTrailing(150, 3.0, false)
	assert.False(t, pos.TrailingActive)
	assert.InDelta(t, 96.0, pos.ActiveStop(), 1e-9)
}

// TestPosition_UnrealizedPnL tests mark-to-market for both directions.
func TestPosition_UnrealizedPnL(t *testing.T) {
	long := OpenPosition(Long, 100, 10, 0, time.Time{}, 2, 2.0)
	assert.InDelta(t, 50.0, long.UnrealizedPnL(105), 1e-9)
	assert.InDelta(t, -30.0, long.UnrealizedPnL(97), 1e-9)

	short := OpenPosition(Short, 100, 10, 0, time.Time{}, 2, 2.0)
	assert.InDelta(t, 50.0, short.UnrealizedPnL(95), 1e-9)
	assert.InDelta(t, -30.0, short.UnrealizedPnL(103), 1e-9)
}

// TestTrendBreakout_PositionSize tests the risk-budget sizing formula and
// its zero boundary.
func TestTrendBreakout_PositionSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RiskPerTrade = 0.02
	cfg.StopLossATRMultiplier = 2.0
	eval := NewTrendBreakout(cfg)

	// floor(10000 * 0.02 / (2 * 2)) = floor(50) = 50, capped at
	// floor(10000 / 100) = 100.
	assert.InDelta(t, 50.0, eval.PositionSize(10000, 100, 2), 1e-9)

	// The cash cap binds when the stop distance is tiny.
	assert.InDelta(t, 100.0, eval.PositionSize(10000, 100, 0.01), 1e-9)

	// Size is zero exactly when the risk budget cannot cover one unit:
	// equity*risk < atr*stopMult means floor(<1) == 0.
	assert.Zero(t, eval.PositionSize(100, 100, 2)) // 2 < 4
	assert.InDelta(t, 1.0, eval.PositionSize(200, 100, 2), 1e-9)

	// Degenerate inputs.
	assert.Zero(t, eval.PositionSize(10000, 100, 0))
	assert.Zero(t, eval.PositionSize(0, 100, 2))
}

// TestTrendSniper_PositionSize tests the legacy fixed-fraction sizing.
func TestTrendSniper_PositionSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PositionSizeFraction = 0.95
	eval := NewTrendSniper(cfg)

	assert.InDelta(t, 95.0, eval.PositionSize(10000, 100, 2), 1e-9)
	assert.Zero(t, eval.PositionSize(50, 100, 2))
}

// TestConfig_Validate tests the struct-tag validation surface.
func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	bad := DefaultConfig()
	bad.TrendPeriod = 0
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.RiskPerTrade = 1.5
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.Name = "momentum"
	assert.Error(t, bad.Validate())
}
