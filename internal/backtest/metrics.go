package backtest

import "math"

// Report is the derived performance summary for one run. It is a pure
// function of the ledger and equity curve; degenerate inputs (no trades,
// zero-variance returns) produce zeros, never NaN, so sweep rankings stay
// total.
type Report struct {
	InitialEquity  float64
	FinalEquity    float64
	TotalReturn    float64 // fraction, not percent
	SharpeRatio    float64 // annualized
	MaxDrawdown    float64 // fraction of the running peak
	WinRate        float64 // percent
	TradeCount     int
	WinningTrades  int
	LosingTrades   int
	TotalPnL       float64
	AvgPnL         float64
	AvgWin         float64
	AvgLoss        float64
	SkippedEntries int
}

// Analyze derives the performance report from a finished run.
func Analyze(result *Result, initialEquity, periodsPerYear float64) Report {
	report := Report{
		InitialEquity:  initialEquity,
		FinalEquity:    initialEquity,
		SkippedEntries: result.SkippedEntries,
	}

	if n := len(result.EquityCurve); n > 0 {
		report.FinalEquity = result.EquityCurve[n-1].Equity
	}
	if initialEquity > 0 {
		report.TotalReturn = (report.FinalEquity - initialEquity) / initialEquity
	}

	report.SharpeRatio = sharpeRatio(result.EquityCurve, periodsPerYear)
	report.MaxDrawdown = maxDrawdown(result.EquityCurve)

	report.TradeCount = len(result.Trades)
	var totalWin, totalLoss float64
	for _, trade := range result.Trades {
		report.TotalPnL += trade.PnL
		if trade.PnL > 0 {
			report.WinningTrades++
			totalWin += trade.PnL
		} else {
			report.LosingTrades++
			totalLoss += trade.PnL
		}
	}

	if report.TradeCount > 0 {
		report.AvgPnL = report.TotalPnL / float64(report.TradeCount)
		report.WinRate = float64(report.WinningTrades) / float64(report.TradeCount) * 100
	}
	if report.WinningTrades > 0 {
		report.AvgWin = totalWin / float64(report.WinningTrades)
	}
	if report.LosingTrades > 0 {
		report.AvgLoss = totalLoss / float64(report.LosingTrades)
	}

	return report
}

// sharpeRatio computes mean/stdev of the per-bar equity returns, scaled by
// sqrt(periodsPerYear). A zero-variance return series yields 0 by policy.
func sharpeRatio(curve []EquityPoint, periodsPerYear float64) float64 {
	if len(curve) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev <= 0 {
			continue
		}
		returns = append(returns, (curve[i].Equity-prev)/prev)
	}
	if len(returns) == 0 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))
	stdDev := math.Sqrt(variance)

	if stdDev < 1e-12 {
		return 0
	}

	annualize := 1.0
	if periodsPerYear > 0 {
		annualize = math.Sqrt(periodsPerYear)
	}
	return mean / stdDev * annualize
}

// maxDrawdown is the largest peak-to-trough equity decline as a fraction
// of the running peak.
func maxDrawdown(curve []EquityPoint) float64 {
	if len(curve) == 0 {
		return 0
	}

	peak := curve[0].Equity
	maxDD := 0.0
	for _, point := range curve {
		if point.Equity > peak {
			peak = point.Equity
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - point.Equity) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
