package reporting

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/tradelab/trendsniper/internal/backtest"
)

// ConsoleReporter renders run and sweep results as terminal tables.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter writes to stdout.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{out: os.Stdout}
}

// NewConsoleReporterTo writes to w. Used by tests.
func NewConsoleReporterTo(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: w}
}

// PrintSummary renders the performance report of a single run.
func (r *ConsoleReporter) PrintSummary(result *backtest.Result) {
	report := result.Report

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("BACKTEST RESULTS")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"Strategy", result.Config.Label()},
		{"Initial Equity", fmt.Sprintf("$%.2f", report.InitialEquity)},
		{"Final Equity", fmt.Sprintf("$%.2f", report.FinalEquity)},
		{"Total Return", fmt.Sprintf("%.2f%%", report.TotalReturn*100)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Sharpe Ratio", fmt.Sprintf("%.2f", report.SharpeRatio)},
		{"Max Drawdown", fmt.Sprintf("%.2f%%", report.MaxDrawdown*100)},
		{"Win Rate", fmt.Sprintf("%.1f%%", report.WinRate)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Trades", report.TradeCount},
		{"Winning / Losing", fmt.Sprintf("%d / %d", report.WinningTrades, report.LosingTrades)},
		{"Avg Win / Avg Loss", fmt.Sprintf("$%.2f / $%.2f", report.AvgWin, report.AvgLoss)},
		{"Skipped Entries", report.SkippedEntries},
	})
	if result.OpenPosition != nil {
		t.AppendSeparator()
		t.AppendRow(table.Row{"Open Position", fmt.Sprintf("%s %.4f @ %.4f",
			result.OpenPosition.Direction, result.OpenPosition.Size, result.OpenPosition.EntryPrice)})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 20, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Fprintln(r.out)
}

// PrintTrades renders the trade ledger.
func (r *ConsoleReporter) PrintTrades(trades []backtest.Trade) {
	if len(trades) == 0 {
		fmt.Fprintln(r.out, "No trades executed.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("TRADES")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Direction", "Entry", "Exit", "Entry Price", "Exit Price", "Size", "PnL", "Exit Reason"})

	for i, trade := range trades {
		t.AppendRow(table.Row{
			i + 1,
			trade.Direction.String(),
			trade.EntryTime.Format(time.DateTime),
			trade.ExitTime.Format(time.DateTime),
			fmt.Sprintf("%.4f", trade.EntryPrice),
			fmt.Sprintf("%.4f", trade.ExitPrice),
			fmt.Sprintf("%.4f", trade.Size),
			fmt.Sprintf("%.2f", trade.PnL),
			string(trade.ExitReason),
		})
	}

	t.Render()
	fmt.Fprintln(r.out)
}

// PrintRanking renders the top combinations of a sweep, best first.
func (r *ConsoleReporter) PrintRanking(ranked []backtest.ComboResult, limit int) {
	if len(ranked) == 0 {
		fmt.Fprintln(r.out, "No successful combinations.")
		return
	}
	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("OPTIMIZATION RANKING")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Rank", "Parameters", "Sharpe", "Return", "Max DD", "Trades", "Win Rate"})

	for i, combo := range ranked {
		t.AppendRow(table.Row{
			i + 1,
			combo.Config.Label(),
			fmt.Sprintf("%.2f", combo.Report.SharpeRatio),
			fmt.Sprintf("%.2f%%", combo.Report.TotalReturn*100),
			fmt.Sprintf("%.2f%%", combo.Report.MaxDrawdown*100),
			combo.Report.TradeCount,
			fmt.Sprintf("%.1f%%", combo.Report.WinRate),
		})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})

	t.Render()
	fmt.Fprintln(r.out)
}
