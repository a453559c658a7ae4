package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/tradelab/trendsniper/internal/backtest"
	"github.com/tradelab/trendsniper/internal/strategy"
	"github.com/tradelab/trendsniper/pkg/data"
)

// Data locates the candle series for a run. File, when set, overrides the
// directory-layout lookup.
type Data struct {
	Exchange string `yaml:"exchange" validate:"required"`
	Category string `yaml:"category" validate:"required"`
	Symbol   string `yaml:"symbol" validate:"required"`
	Interval string `yaml:"interval" validate:"required"`
	DataRoot string `yaml:"data_root" validate:"required"`
	File     string `yaml:"file"`
}

// App is the whole run configuration: where the data lives, the broker
// model, the strategy parameters, and the sweep grid.
type App struct {
	Data     Data              `yaml:"data"`
	Backtest backtest.Settings `yaml:"backtest"`
	Strategy strategy.Config   `yaml:"strategy"`
	Grid     backtest.Grid     `yaml:"grid"`
}

var validate = validator.New()

// Default returns a runnable configuration: hourly Bybit linear BTCUSDT
// under ./data with the tuned strategy defaults.
func Default() App {
	return App{
		Data: Data{
			Exchange: "bybit",
			Category: "linear",
			Symbol:   "BTCUSDT",
			Interval: "1h",
			DataRoot: "data",
		},
		Backtest: backtest.DefaultSettings(),
		Strategy: strategy.DefaultConfig(),
	}
}

// Load reads a YAML file over the defaults and validates the result.
// Unknown keys are errors so a typoed parameter cannot silently fall back
// to its default.
func Load(path string) (*App, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	app := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&app); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if err := app.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return &app, nil
}

// Validate checks the whole tree, including the nested strategy and
// broker settings.
func (a *App) Validate() error {
	if err := validate.Struct(a); err != nil {
		return err
	}
	return a.Strategy.Validate()
}

// CandleFile resolves the data file for the run: the explicit file when
// set, otherwise a lookup through the data-root directory layout.
func (a *App) CandleFile() (string, error) {
	if a.Data.File != "" {
		return a.Data.File, nil
	}
	return data.FindCandleFile(a.Data.DataRoot, a.Data.Exchange, a.Data.Symbol, a.Data.Interval)
}
