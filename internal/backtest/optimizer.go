package backtest

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/tradelab/trendsniper/internal/logger"
	"github.com/tradelab/trendsniper/internal/strategy"
	"github.com/tradelab/trendsniper/pkg/types"
)

// Grid declares the value lists swept during optimization. Empty lists
// keep the base config's value.
type Grid struct {
	TrendPeriod               []int     `yaml:"trend_period"`
	VolMAPeriod               []int     `yaml:"vol_ma_period"`
	ATRPeriod                 []int     `yaml:"atr_period"`
	BreakoutPeriod            []int     `yaml:"breakout_period"`
	VolMultiplier             []float64 `yaml:"vol_multiplier"`
	VolatilityThreshold       []float64 `yaml:"volatility_threshold"`
	RiskPerTrade              []float64 `yaml:"risk_per_trade"`
	StopLossATRMultiplier     []float64 `yaml:"stop_loss_atr_multiplier"`
	TrailingStopATRMultiplier []float64 `yaml:"trailing_stop_atr_multiplier"`
}

// Expand produces the cartesian product of the grid over the base config.
func (g Grid) Expand(base strategy.Config) []strategy.Config {
	configs := []strategy.Config{base}

	configs = expandInt(configs, g.TrendPeriod, func(c *strategy.Config, v int) { c.TrendPeriod = v })
	configs = expandInt(configs, g.VolMAPeriod, func(c *strategy.Config, v int) { c.VolMAPeriod = v })
	configs = expandInt(configs, g.ATRPeriod, func(c *strategy.Config, v int) { c.ATRPeriod = v })
	configs = expandInt(configs, g.BreakoutPeriod, func(c *strategy.Config, v int) { c.BreakoutPeriod = v })
	configs = expandFloat(configs, g.VolMultiplier, func(c *strategy.Config, v float64) { c.VolMultiplier = v })
	configs = expandFloat(configs, g.VolatilityThreshold, func(c *strategy.Config, v float64) { c.VolatilityThreshold = v })
	configs = expandFloat(configs, g.RiskPerTrade, func(c *strategy.Config, v float64) { c.RiskPerTrade = v })
	configs = expandFloat(configs, g.StopLossATRMultiplier, func(c *strategy.Config, v float64) { c.StopLossATRMultiplier = v })
	configs = expandFloat(configs, g.TrailingStopATRMultiplier, func(c *strategy.Config, v float64) { c.TrailingStopATRMultiplier = v })

	return configs
}

func expandInt(configs []strategy.Config, values []int, set func(*strategy.Config, int)) []strategy.Config {
	if len(values) == 0 {
		return configs
	}
	out := make([]strategy.Config, 0, len(configs)*len(values))
	for _, cfg := range configs {
		for _, v := range values {
			next := cfg
			set(&next, v)
			out = append(out, next)
		}
	}
	return out
}

func expandFloat(configs []strategy.Config, values []float64, set func(*strategy.Config, float64)) []strategy.Config {
	if len(values) == 0 {
		return configs
	}
	out := make([]strategy.Config, 0, len(configs)*len(values))
	for _, cfg := range configs {
		for _, v := range values {
			next := cfg
			set(&next, v)
			out = append(out, next)
		}
	}
	return out
}

// Optimizer sweeps a parameter grid, running each combination as an
// independent backtest, and ranks the survivors by Sharpe ratio.
type Optimizer struct {
	settings Settings
	workers  int
	log      *logger.Logger

	// OnResult, if set, is called from the collection goroutine after each
	// combination finishes. Used for progress bars and metrics.
	OnResult func(ComboResult)
}

// NewOptimizer creates a sweep runner. workers <= 0 means one per CPU.
func NewOptimizer(settings Settings, workers int, log *logger.Logger) *Optimizer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Optimizer{settings: settings, workers: workers, log: log}
}

// Run executes every combination and returns all results, failed ones
// included, in no particular order. Cancelling the context abandons the
// sweep; results already collected remain usable.
func (o *Optimizer) Run(ctx context.Context, bars []types.OHLCV, configs []strategy.Config) []ComboResult {
	pool := newWorkerPool(o.workers, o.settings, bars, o.log)
	pool.start(ctx)

	go func() {
		defer close(pool.jobs)
		for _, cfg := range configs {
			select {
			case pool.jobs <- sweepJob{cfg: cfg}:
			case <-ctx.Done():
				return
			}
		}
	}()

	results := make([]ComboResult, 0, len(configs))
	for combo := range pool.results {
		if combo.Err != nil {
			o.log.Warn("combination failed",
				zap.String("params", combo.Config.Label()),
				zap.Error(combo.Err))
		}
		if o.OnResult != nil {
			o.OnResult(combo)
		}
		results = append(results, combo)
		if len(results) == len(configs) {
			break
		}
	}

	return results
}

// Rank filters out failed combinations and sorts the rest by Sharpe ratio
// descending, breaking ties by lower max drawdown. The sort is stable so
// equal combinations keep their submission order.
func Rank(results []ComboResult) []ComboResult {
	ranked := make([]ComboResult, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			ranked = append(ranked, r)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Report.SharpeRatio != ranked[j].Report.SharpeRatio {
			return ranked[i].Report.SharpeRatio > ranked[j].Report.SharpeRatio
		}
		return ranked[i].Report.MaxDrawdown < ranked[j].Report.MaxDrawdown
	})

	return ranked
}
