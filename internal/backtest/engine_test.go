package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradelab/trendsniper/internal/indicators"
	"github.com/tradelab/trendsniper/internal/logger"
	"github.com/tradelab/trendsniper/internal/strategy"
	"github.com/tradelab/trendsniper/pkg/types"
)

var testBase = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

func testBar(i int, open, high, low, close, volume float64) types.OHLCV {
	return types.OHLCV{
		Open: open, High: high, Low: low, Close: close,
		Volume:    volume,
		Timestamp: testBase.Add(time.Duration(i) * time.Hour),
	}
}

// flatBars returns n identical bars: constant price, constant volume.
func flatBars(n int, price, volume float64) []types.OHLCV {
	bars := make([]types.OHLCV, n)
	for i := range bars {
		bars[i] = testBar(i, price, price, price, price, volume)
	}
	return bars
}

// shortPeriodConfig keeps every lookback at 4 bars so scenarios stay small
// enough to hand-compute.
func shortPeriodConfig() strategy.Config {
	cfg := strategy.DefaultConfig()
	cfg.TrendPeriod = 4
	cfg.VolMAPeriod = 4
	cfg.ATRPeriod = 4
	cfg.BreakoutPeriod = 4
	cfg.VolMultiplier = 1.5
	cfg.VolatilityThreshold = 0
	cfg.RiskPerTrade = 0.02
	cfg.StopLossATRMultiplier = 2.0
	cfg.UseTrailingStop = false
	return cfg
}

// frictionlessSettings removes commission and slippage so fills match the
// hand calculations exactly.
func frictionlessSettings(cash float64) Settings {
	return Settings{InitialCash: cash, Commission: 0, Slippage: 0, PeriodsPerYear: 252}
}

func newTestEngine(t *testing.T, settings Settings, cfg strategy.Config) *Engine {
	t.Helper()
	eval, err := strategy.NewEvaluator(cfg)
	require.NoError(t, err)
	return NewEngine(settings, cfg, eval, logger.NewNop())
}

// entrySetupBars is the shared scenario prelude: six quiet bars at 100
// (range 99..101), then a breakout bar to 110 on triple volume. With
// 4-bar lookbacks the entry fires at bar 6 with ATR exactly 4, so the
// 2-ATR hard stop lands at 102 and risk sizing yields 250 units on 100k.
func entrySetupBars() []types.OHLCV {
	bars := make([]types.OHLCV, 0, 8)
	for i := 0; i < 6; i++ {
		bars = append(bars, testBar(i, 100, 101, 99, 100, 1000))
	}
	bars = append(bars, testBar(6, 100, 110, 100, 110, 3000))
	return bars
}

// TestEngine_FlatSeries tests the degenerate scenario: constant price and
// volume produce zero trades, zero return, and Sharpe 0.
func TestEngine_FlatSeries(t *testing.T) {
	engine := newTestEngine(t, frictionlessSettings(100000), shortPeriodConfig())

	result, err := engine.Run(flatBars(20, 100, 1000))
	require.NoError(t, err)

	assert.Empty(t, result.Trades)
	assert.Nil(t, result.OpenPosition)
	assert.Len(t, result.EquityCurve, 20)
	assert.Equal(t, 0.0, result.Report.TotalReturn)
	assert.Equal(t, 0.0, result.Report.SharpeRatio)
	assert.Equal(t, 0.0, result.Report.MaxDrawdown)
	assert.Equal(t, 0, result.Report.TradeCount)
	assert.Equal(t, 0.0, result.Report.WinRate)
}

// TestEngine_InvalidSeries tests that structural data violations abort the
// run instead of corrupting state.
func TestEngine_InvalidSeries(t *testing.T) {
	engine := newTestEngine(t, frictionlessSettings(100000), shortPeriodConfig())

	_, err := engine.Run(nil)
	assert.ErrorIs(t, err, types.ErrEmptySeries)

	bars := flatBars(5, 100, 1000)
	bars[3].Timestamp = bars[2].Timestamp
	_, err = engine.Run(bars)
	assert.ErrorIs(t, err, types.ErrDuplicateTimestamp)

	bars = flatBars(5, 100, 1000)
	bars[3].Timestamp = bars[1].Timestamp
	_, err = engine.Run(bars)
	assert.ErrorIs(t, err, types.ErrUnsortedSeries)
}

// TestEngine_HardStopFill tests the stop-order fill model: an intrabar
// drop through the hard stop closes at the stop price, not at the low.
//
// Entry at 110 with ATR 4 and a 2x multiplier puts the stop at 102; the
// next bar's low of 101 pierces it and the fill is 102.
func TestEngine_HardStopFill(t *testing.T) {
	bars := append(entrySetupBars(), testBar(7, 109, 109, 101, 105, 1000))

	engine := newTestEngine(t, frictionlessSettings(100000), shortPeriodConfig())
	result, err := engine.Run(bars)
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, strategy.Long, trade.Direction)
	assert.Equal(t, strategy.ExitStopLoss, trade.ExitReason)
	assert.InDelta(t, 110.0, trade.EntryPrice, 1e-9)
	assert.InDelta(t, 102.0, trade.ExitPrice, 1e-9)
	assert.InDelta(t, 250.0, trade.Size, 1e-9)

	// Losing 8 points on 250 units is exactly the 2% risk budget of 100k.
	assert.InDelta(t, -2000.0, trade.PnL, 1e-9)
	assert.InDelta(t, 98000.0, result.Report.FinalEquity, 1e-9)
	assert.Nil(t, result.OpenPosition)
}

// TestEngine_TrailingStopLifecycle tests arming and ratcheting through the
// engine: with entry ATR 4 and a 3x trailing multiplier the distance is
// 12. The rally to 122 arms the stop at 110, the push to 130 ratchets it
// to 118, and the pullback bar whose low touches 117 fills at 118.
func TestEngine_TrailingStopLifecycle(t *testing.T) {
	cfg := shortPeriodConfig()
	cfg.UseTrailingStop = true
	cfg.TrailingStopATRMultiplier = 3.0

	bars := append(entrySetupBars(),
		testBar(7, 112, 123, 111, 122, 1000),
		testBar(8, 122, 131, 121, 130, 1000),
		testBar(9, 129, 129, 117, 120, 1000),
	)

	engine := newTestEngine(t, frictionlessSettings(100000), cfg)
	result, err := engine.Run(bars)
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, strategy.ExitTrailingStop, trade.ExitReason)
	assert.InDelta(t, 110.0, trade.EntryPrice, 1e-9)
	assert.InDelta(t, 118.0, trade.ExitPrice, 1e-9)
	assert.InDelta(t, 2000.0, trade.PnL, 1e-9) // 8 points on 250 units
	assert.InDelta(t, 102000.0, result.Report.FinalEquity, 1e-9)
}

// TestEngine_ShortEntryAndReversalExit tests the mirrored short side: a
// breakdown entry and a trend-reversal exit at the close, not at a stop.
func TestEngine_ShortEntryAndReversalExit(t *testing.T) {
	bars := make([]types.OHLCV, 0, 8)
	for i := 0; i < 6; i++ {
		bars = append(bars, testBar(i, 100, 101, 99, 100, 1000))
	}
	// Breakdown to 90 on triple volume: ATR 4, stop at 98, 250 units.
	bars = append(bars, testBar(6, 100, 100, 90, 90, 3000))
	// Rally back above the trend SMA (96.75) without touching the stop.
	bars = append(bars, testBar(7, 91, 97, 90, 97, 1000))

	engine := newTestEngine(t, frictionlessSettings(100000), shortPeriodConfig())
	result, err := engine.Run(bars)
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, strategy.Short, trade.Direction)
	assert.Equal(t, strategy.ExitTrendReversal, trade.ExitReason)
	assert.InDelta(t, 90.0, trade.EntryPrice, 1e-9)
	assert.InDelta(t, 97.0, trade.ExitPrice, 1e-9)
	assert.InDelta(t, -1750.0, trade.PnL, 1e-9)
}

// TestEngine_SkippedEntry tests that a signal whose computed size is zero
// is suppressed and reported, not treated as an error.
func TestEngine_SkippedEntry(t *testing.T) {
	bars := entrySetupBars()

	// 100 of cash at 2% risk cannot cover an 8-point stop distance.
	engine := newTestEngine(t, frictionlessSettings(100), shortPeriodConfig())
	result, err := engine.Run(bars)
	require.NoError(t, err)

	assert.Empty(t, result.Trades)
	assert.Nil(t, result.OpenPosition)
	assert.Equal(t, 1, result.SkippedEntries)
	assert.Equal(t, 1, result.Report.SkippedEntries)
	assert.InDelta(t, 100.0, result.Report.FinalEquity, 1e-9)
}

// TestEngine_CommissionAndSlippage tests that both frictions flow through
// the fills: a long entry pays up by the slippage rate, the stop exit
// fills below the stop, and both legs pay commission.
func TestEngine_CommissionAndSlippage(t *testing.T) {
	settings := Settings{InitialCash: 100000, Commission: 0.001, Slippage: 0.001, PeriodsPerYear: 252}
	bars := append(entrySetupBars(), testBar(7, 109, 109, 101, 105, 1000))

	engine := newTestEngine(t, settings, shortPeriodConfig())
	result, err := engine.Run(bars)
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]

	// The hard stop hangs off the slippage-adjusted fill: 110.11 - 8.
	entryFill := 110 * 1.001
	exitFill := (entryFill - 8) * 0.999
	assert.InDelta(t, entryFill, trade.EntryPrice, 1e-9)
	assert.InDelta(t, exitFill, trade.ExitPrice, 1e-9)

	wantCommission := (entryFill + exitFill) * trade.Size * 0.001
	assert.InDelta(t, wantCommission, trade.Commission, 1e-6)
	assert.InDelta(t, (exitFill-entryFill)*trade.Size-wantCommission, trade.PnL, 1e-6)
}

// TestEngine_SinglePositionInvariant tests that overlapping trades never
// appear in the ledger and that the entry lands exactly on the first bar
// satisfying all four conditions, checked against an independent replay
// of the indicator bank.
func TestEngine_SinglePositionInvariant(t *testing.T) {
	cfg := shortPeriodConfig()
	cfg.UseTrailingStop = true
	cfg.TrailingStopATRMultiplier = 3.0

	// A staircase from 100 to 150 with a volume spike every third bar.
	bars := make([]types.OHLCV, 0, 30)
	price := 100.0
	for i := 0; i < 30; i++ {
		vol := 1000.0
		if i%3 == 0 {
			vol = 5000
		}
		high := price + 2
		low := price - 2
		bars = append(bars, testBar(i, price, high, low, price+1, vol))
		if price < 150 {
			price += 2
		}
	}

	engine := newTestEngine(t, frictionlessSettings(100000), cfg)
	result, err := engine.Run(bars)
	require.NoError(t, err)

	// No two trades overlap and every exit follows its entry.
	for i, trade := range result.Trades {
		assert.True(t, trade.ExitTime.After(trade.EntryTime) || trade.ExitTime.Equal(trade.EntryTime))
		if i > 0 {
			prev := result.Trades[i-1]
			assert.False(t, trade.EntryTime.Before(prev.ExitTime),
				"trade %d entered before trade %d exited", i, i-1)
		}
	}

	// Replay the bank and evaluator independently to find the first bar on
	// which all entry conditions hold; the ledger must start there.
	eval := strategy.NewTrendBreakout(cfg)
	bank := indicators.NewBank(cfg.IndicatorParams())
	snaps := make([]indicators.Snapshot, 0, len(bars))
	firstSignal := -1
	for i, bar := range bars {
		snaps = append(snaps, bank.Update(bar))
		if firstSignal < 0 && eval.Evaluate(i, snaps, bars) != strategy.SignalNone {
			firstSignal = i
		}
	}
	require.GreaterOrEqual(t, firstSignal, 0, "scenario should produce at least one signal")

	// The staircase never pulls back far enough to exit, so the first entry
	// may still be open at the end.
	var entryTime time.Time
	if len(result.Trades) > 0 {
		entryTime = result.Trades[0].EntryTime
	} else {
		require.NotNil(t, result.OpenPosition)
		entryTime = result.OpenPosition.EntryTime
	}
	assert.Equal(t, bars[firstSignal].Timestamp, entryTime)
}

// TestEngine_EquityCurveShape tests the append-only mark-to-market curve:
// one point per bar, cash constant while flat, equity tracking the close
// while a position is open.
func TestEngine_EquityCurveShape(t *testing.T) {
	cfg := shortPeriodConfig()
	bars := append(entrySetupBars(),
		testBar(7, 110, 112, 108, 108, 1000), // open position marks down
		testBar(8, 108, 109, 101, 105, 1000), // stop bar
	)

	engine := newTestEngine(t, frictionlessSettings(100000), cfg)
	result, err := engine.Run(bars)
	require.NoError(t, err)

	require.Len(t, result.EquityCurve, len(bars))
	for i, point := range result.EquityCurve {
		assert.Equal(t, bars[i].Timestamp, point.Timestamp)
	}

	// Flat prelude: equity pinned to cash.
	for _, point := range result.EquityCurve[:6] {
		assert.InDelta(t, 100000.0, point.Equity, 1e-9)
		assert.InDelta(t, point.Cash, point.Equity, 1e-9)
	}

	// Bar 7, long 250 from 110 marked at 108: 100000 - 2*250.
	assert.InDelta(t, 99500.0, result.EquityCurve[7].Equity, 1e-9)

	// Bar 8 stops out at 102 for -2000.
	assert.InDelta(t, 98000.0, result.EquityCurve[8].Equity, 1e-9)
}

// TestEngine_OpenPositionAtEnd tests that a position still open on the
// last bar stays out of the ledger and is reported separately, marked to
// market in the final equity.
func TestEngine_OpenPositionAtEnd(t *testing.T) {
	cfg := shortPeriodConfig()
	bars := append(entrySetupBars(), testBar(7, 110, 113, 109, 112, 1000))

	engine := newTestEngine(t, frictionlessSettings(100000), cfg)
	result, err := engine.Run(bars)
	require.NoError(t, err)

	assert.Empty(t, result.Trades)
	require.NotNil(t, result.OpenPosition)
	assert.Equal(t, strategy.Long, result.OpenPosition.Direction)

	// Marked at 112 from a 110 entry: +2 on 250 units.
	assert.InDelta(t, 100500.0, result.Report.FinalEquity, 1e-9)
}
