package backtest

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tradelab/trendsniper/internal/indicators"
	"github.com/tradelab/trendsniper/internal/logger"
	"github.com/tradelab/trendsniper/internal/strategy"
	"github.com/tradelab/trendsniper/pkg/types"
)

// Settings are the run-level knobs shared by every strategy.
type Settings struct {
	InitialCash    float64 `yaml:"initial_cash" validate:"gt=0"`
	Commission     float64 `yaml:"commission" validate:"gte=0,lt=1"`
	Slippage       float64 `yaml:"slippage" validate:"gte=0,lt=1"`
	PeriodsPerYear float64 `yaml:"periods_per_year" validate:"gt=0"`
}

// DefaultSettings mirrors the broker setup the strategy was tuned on:
// 0.1% commission, 0.1% slippage, daily bars.
func DefaultSettings() Settings {
	return Settings{
		InitialCash:    1_000_000,
		Commission:     0.001,
		Slippage:       0.001,
		PeriodsPerYear: 252,
	}
}

// Trade is one closed round trip, appended to the ledger when the position
// closes and immutable afterwards.
type Trade struct {
	EntryTime  time.Time
	ExitTime   time.Time
	Direction  strategy.Direction
	EntryPrice float64
	ExitPrice  float64
	Size       float64
	PnL        float64 // realized, net of commissions
	Commission float64 // entry + exit commission
	ExitReason strategy.ExitReason
}

// EquityPoint is one mark-to-market sample, appended once per bar.
type EquityPoint struct {
	Timestamp time.Time
	Cash      float64
	Equity    float64
}

// Result carries everything a single run produces: the ledger, the equity
// curve, diagnostics, and the derived report.
type Result struct {
	Config         strategy.Config
	Trades         []Trade
	EquityCurve    []EquityPoint
	SkippedEntries int                // entries suppressed by zero size
	OpenPosition   *strategy.Position // still open at the last bar, if any
	Report         Report
}

// Engine drives one strictly sequential backtest. Each bar runs the
// indicator update, then exit checks, then entry evaluation, then the
// mark to market, in that order.
type Engine struct {
	settings Settings
	cfg      strategy.Config
	eval     strategy.Evaluator
	log      *logger.Logger
}

// NewEngine creates an engine for one (settings, strategy) pair.
func NewEngine(settings Settings, cfg strategy.Config, eval strategy.Evaluator, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{settings: settings, cfg: cfg, eval: eval, log: log}
}

// Run replays the bar series through the strategy. The series must satisfy
// the input-data contract; structural violations abort the run.
func (e *Engine) Run(bars []types.OHLCV) (*Result, error) {
	if err := types.ValidateSeries(bars); err != nil {
		return nil, fmt.Errorf("input data contract violated: %w", err)
	}

	bank := indicators.NewBank(e.cfg.IndicatorParams())
	snaps := make([]indicators.Snapshot, 0, len(bars))

	result := &Result{
		Config:      e.cfg,
		EquityCurve: make([]EquityPoint, 0, len(bars)),
	}

	cash := e.settings.InitialCash
	var pos *strategy.Position

	for t, bar := range bars {
		snaps = append(snaps, bank.Update(bar))

		if pos != nil {
			pos.UpdateTrailing(bar.Close, e.cfg.TrailingStopATRMultiplier, e.cfg.UseTrailingStop)

			if stopPrice, reason, hit := pos.StopHit(bar); hit {
				cash = e.closePosition(result, pos, bar, stopPrice, reason, cash)
				pos = nil
			} else if e.trendReversed(pos, bar, snaps[t]) {
				cash = e.closePosition(result, pos, bar, bar.Close, strategy.ExitTrendReversal, cash)
				pos = nil
			}
		}

		if pos == nil {
			if sig := e.eval.Evaluate(t, snaps, bars); sig != strategy.SignalNone {
				pos, cash = e.openPosition(result, sig, bar, t, snaps[t], cash)
			}
		}

		equity := cash
		if pos != nil {
			equity += pos.UnrealizedPnL(bar.Close)
		}
		result.EquityCurve = append(result.EquityCurve, EquityPoint{
			Timestamp: bar.Timestamp,
			Cash:      cash,
			Equity:    equity,
		})
	}

	result.OpenPosition = pos
	result.Report = Analyze(result, e.settings.InitialCash, e.settings.PeriodsPerYear)

	return result, nil
}

// openPosition sizes and fills an entry. A zero size is not an error: the
// signal is suppressed and counted for diagnostics.
func (e *Engine) openPosition(result *Result, sig strategy.Signal, bar types.OHLCV, t int, snap indicators.Snapshot, cash float64) (*strategy.Position, float64) {
	atr := snap.ATR
	size := e.eval.PositionSize(cash, bar.Close, atr)
	if size <= 0 {
		result.SkippedEntries++
		e.log.Debug("entry suppressed, size zero",
			zap.Time("bar", bar.Timestamp),
			zap.String("signal", sig.String()),
			zap.Float64("cash", cash),
			zap.Float64("atr", atr))
		return nil, cash
	}

	dir := strategy.Long
	fill := bar.Close * (1 + e.settings.Slippage)
	if sig == strategy.SignalShort {
		dir = strategy.Short
		fill = bar.Close * (1 - e.settings.Slippage)
	}

	commission := fill * size * e.settings.Commission
	cash -= commission

	pos := strategy.OpenPosition(dir, fill, size, t, bar.Timestamp, atr, e.cfg.StopLossATRMultiplier)

	e.log.Debug("position opened",
		zap.Time("bar", bar.Timestamp),
		zap.String("direction", dir.String()),
		zap.Float64("fill", fill),
		zap.Float64("size", size),
		zap.Float64("hard_stop", pos.HardStop))

	return pos, cash
}

// closePosition fills an exit at the trigger price, realizes P&L into
// cash, and appends the trade to the ledger.
func (e *Engine) closePosition(result *Result, pos *strategy.Position, bar types.OHLCV, price float64, reason strategy.ExitReason, cash float64) float64 {
	fill := price * (1 - e.settings.Slippage)
	if pos.Direction == strategy.Short {
		fill = price * (1 + e.settings.Slippage)
	}

	exitCommission := fill * pos.Size * e.settings.Commission
	entryCommission := pos.EntryPrice * pos.Size * e.settings.Commission

	realized := (fill - pos.EntryPrice) * pos.Size
	if pos.Direction == strategy.Short {
		realized = (pos.EntryPrice - fill) * pos.Size
	}

	// The entry commission already left cash when the position opened.
	cash += realized - exitCommission

	trade := Trade{
		EntryTime:  pos.EntryTime,
		ExitTime:   bar.Timestamp,
		Direction:  pos.Direction,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  fill,
		Size:       pos.Size,
		PnL:        realized - exitCommission - entryCommission,
		Commission: entryCommission + exitCommission,
		ExitReason: reason,
	}
	result.Trades = append(result.Trades, trade)

	e.log.Debug("position closed",
		zap.Time("bar", bar.Timestamp),
		zap.String("direction", pos.Direction.String()),
		zap.String("reason", string(reason)),
		zap.Float64("fill", fill),
		zap.Float64("pnl", trade.PnL))

	return cash
}

// trendReversed is the non-stop exit: the close crossing to the wrong side
// of the trend SMA.
func (e *Engine) trendReversed(pos *strategy.Position, bar types.OHLCV, snap indicators.Snapshot) bool {
	if !indicators.Defined(snap.TrendSMA) {
		return false
	}
	if pos.Direction == strategy.Long {
		return bar.Close < snap.TrendSMA
	}
	return bar.Close > snap.TrendSMA
}
