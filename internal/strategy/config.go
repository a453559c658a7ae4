package strategy

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/tradelab/trendsniper/internal/indicators"
)

// Strategy names accepted in configuration files.
const (
	NameTrendBreakout = "trend_breakout"
	NameTrendSniper   = "trend_sniper"
)

// Config is the full parameter set for one backtest run. It is immutable
// for the duration of the run; the optimizer varies it across runs.
type Config struct {
	Name string `yaml:"name" validate:"oneof=trend_breakout trend_sniper"`

	TrendPeriod    int `yaml:"trend_period" validate:"gt=0"`
	VolMAPeriod    int `yaml:"vol_ma_period" validate:"gt=0"`
	ATRPeriod      int `yaml:"atr_period" validate:"gt=0"`
	BreakoutPeriod int `yaml:"breakout_period" validate:"gt=0"`

	VolMultiplier       float64 `yaml:"vol_multiplier" validate:"gt=0"`
	VolatilityThreshold float64 `yaml:"volatility_threshold" validate:"gte=0"`

	RiskPerTrade          float64 `yaml:"risk_per_trade" validate:"gt=0,lte=1"`
	StopLossATRMultiplier float64 `yaml:"stop_loss_atr_multiplier" validate:"gt=0"`

	UseTrailingStop           bool    `yaml:"use_trailing_stop"`
	TrailingStopATRMultiplier float64 `yaml:"trailing_stop_atr_multiplier" validate:"gte=0"`

	// Cash fraction committed per entry by the legacy long-only strategy.
	PositionSizeFraction float64 `yaml:"position_size_fraction" validate:"gt=0,lte=1"`
}

// DefaultConfig returns the parameter set the strategy shipped with.
func DefaultConfig() Config {
	return Config{
		Name:                      NameTrendBreakout,
		TrendPeriod:               60,
		VolMAPeriod:               20,
		ATRPeriod:                 14,
		BreakoutPeriod:            20,
		VolMultiplier:             1.5,
		VolatilityThreshold:       0,
		RiskPerTrade:              0.02,
		StopLossATRMultiplier:     2.0,
		UseTrailingStop:           true,
		TrailingStopATRMultiplier: 3.0,
		PositionSizeFraction:      0.95,
	}
}

// IndicatorParams maps the config to the indicator bank periods.
func (c Config) IndicatorParams() indicators.Params {
	return indicators.Params{
		TrendPeriod:    c.TrendPeriod,
		VolMAPeriod:    c.VolMAPeriod,
		ATRPeriod:      c.ATRPeriod,
		BreakoutPeriod: c.BreakoutPeriod,
	}
}

// Label is a compact parameter string used in sweep rankings and logs.
func (c Config) Label() string {
	return fmt.Sprintf("trend=%d breakout=%d volx=%.2f natr=%.4f stop=%.1f trail=%.1f",
		c.TrendPeriod, c.BreakoutPeriod, c.VolMultiplier, c.VolatilityThreshold,
		c.StopLossATRMultiplier, c.TrailingStopATRMultiplier)
}

var validate = validator.New()

// Validate checks the config against its struct tags.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid strategy config: %w", err)
	}
	return nil
}

// NewEvaluator builds the evaluator named by the config.
func NewEvaluator(cfg Config) (Evaluator, error) {
	switch cfg.Name {
	case NameTrendBreakout, "":
		return NewTrendBreakout(cfg), nil
	case NameTrendSniper:
		return NewTrendSniper(cfg), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", cfg.Name)
	}
}
