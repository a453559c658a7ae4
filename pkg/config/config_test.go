package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradelab/trendsniper/internal/strategy"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestLoad tests that file values override defaults and untouched fields
// keep theirs.
func TestLoad(t *testing.T) {
	path := writeTempConfig(t, `
data:
  symbol: ETHUSDT
  interval: 4h
backtest:
  initial_cash: 50000
strategy:
  trend_period: 100
  risk_per_trade: 0.01
grid:
  stop_loss_atr_multiplier: [1.5, 2.0, 2.5]
`)

	app, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ETHUSDT", app.Data.Symbol)
	assert.Equal(t, "4h", app.Data.Interval)
	assert.Equal(t, "bybit", app.Data.Exchange) // default kept
	assert.Equal(t, 50000.0, app.Backtest.InitialCash)
	assert.Equal(t, 0.001, app.Backtest.Commission) // default kept
	assert.Equal(t, 100, app.Strategy.TrendPeriod)
	assert.Equal(t, 0.01, app.Strategy.RiskPerTrade)
	assert.Equal(t, strategy.NameTrendBreakout, app.Strategy.Name)
	assert.Equal(t, []float64{1.5, 2.0, 2.5}, app.Grid.StopLossATRMultiplier)
}

// TestLoad_UnknownKey tests that a typoed key fails loudly instead of
// silently keeping the default.
func TestLoad_UnknownKey(t *testing.T) {
	path := writeTempConfig(t, `
strategy:
  trend_periood: 100
`)
	_, err := Load(path)
	assert.Error(t, err)
}

// TestLoad_InvalidValues tests that validation rejects out-of-range
// parameters.
func TestLoad_InvalidValues(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"negative cash", "backtest:\n  initial_cash: -1\n"},
		{"zero trend period", "strategy:\n  trend_period: 0\n"},
		{"risk above one", "strategy:\n  risk_per_trade: 1.5\n"},
		{"unknown strategy", "strategy:\n  name: momentum\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeTempConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

// TestLoad_MissingFile tests the read error path.
func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

// TestApp_CandleFile tests file resolution: explicit file wins, otherwise
// the data-root layout is searched.
func TestApp_CandleFile(t *testing.T) {
	app := Default()
	app.Data.File = "custom/candles.csv"
	path, err := app.CandleFile()
	require.NoError(t, err)
	assert.Equal(t, "custom/candles.csv", path)

	app = Default()
	app.Data.DataRoot = t.TempDir()
	_, err = app.CandleFile()
	assert.Error(t, err) // nothing downloaded yet

	candle := filepath.Join(app.Data.DataRoot, "bybit", "linear", "BTCUSDT", "60", "candles.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(candle), 0o755))
	require.NoError(t, os.WriteFile(candle, []byte("timestamp\n"), 0o644))

	path, err = app.CandleFile()
	require.NoError(t, err)
	assert.Equal(t, candle, path)
}
