package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/tradelab/trendsniper/internal/backtest"
)

// ExcelReporter writes run and sweep results as xlsx workbooks.
type ExcelReporter struct{}

// NewExcelReporter creates an Excel reporter.
func NewExcelReporter() *ExcelReporter {
	return &ExcelReporter{}
}

type excelStyles struct {
	header   int
	currency int
	percent  int
}

func (r *ExcelReporter) createStyles(fx *excelize.File) (excelStyles, error) {
	var styles excelStyles
	var err error

	styles.header, err = fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return styles, err
	}

	styles.currency, err = fx.NewStyle(&excelize.Style{
		NumFmt:    7,
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return styles, err
	}

	styles.percent, err = fx.NewStyle(&excelize.Style{
		NumFmt:    10,
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	return styles, err
}

func ensureReportDir(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory %s: %w", dir, err)
		}
	}
	return nil
}

// WriteResultXLSX writes a single run to a workbook with Summary, Trades
// and Equity Curve sheets.
func (r *ExcelReporter) WriteResultXLSX(result *backtest.Result, path string) error {
	if err := ensureReportDir(path); err != nil {
		return err
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const summarySheet = "Summary"
	const tradesSheet = "Trades"
	const equitySheet = "Equity Curve"

	fx.SetSheetName(fx.GetSheetName(0), summarySheet)
	if _, err := fx.NewSheet(tradesSheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(equitySheet); err != nil {
		return err
	}

	styles, err := r.createStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeSummarySheet(fx, summarySheet, result, styles); err != nil {
		return err
	}
	if err := r.writeTradesSheet(fx, tradesSheet, result.Trades, styles); err != nil {
		return err
	}
	if err := r.writeEquitySheet(fx, equitySheet, result.EquityCurve, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (r *ExcelReporter) writeSummarySheet(fx *excelize.File, sheet string, result *backtest.Result, styles excelStyles) error {
	report := result.Report

	rows := []struct {
		label string
		value interface{}
		style int
	}{
		{"Strategy", result.Config.Label(), 0},
		{"Initial Equity", report.InitialEquity, styles.currency},
		{"Final Equity", report.FinalEquity, styles.currency},
		{"Total Return", report.TotalReturn, styles.percent},
		{"Sharpe Ratio", report.SharpeRatio, 0},
		{"Max Drawdown", report.MaxDrawdown, styles.percent},
		{"Win Rate", report.WinRate / 100, styles.percent},
		{"Trades", report.TradeCount, 0},
		{"Winning Trades", report.WinningTrades, 0},
		{"Losing Trades", report.LosingTrades, 0},
		{"Total PnL", report.TotalPnL, styles.currency},
		{"Avg Win", report.AvgWin, styles.currency},
		{"Avg Loss", report.AvgLoss, styles.currency},
		{"Skipped Entries", report.SkippedEntries, 0},
	}

	for i, row := range rows {
		labelCell := fmt.Sprintf("A%d", i+1)
		valueCell := fmt.Sprintf("B%d", i+1)
		if err := fx.SetCellValue(sheet, labelCell, row.label); err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, valueCell, row.value); err != nil {
			return err
		}
		if row.style != 0 {
			if err := fx.SetCellStyle(sheet, valueCell, valueCell, row.style); err != nil {
				return err
			}
		}
	}

	return fx.SetColWidth(sheet, "A", "B", 22)
}

func (r *ExcelReporter) writeTradesSheet(fx *excelize.File, sheet string, trades []backtest.Trade, styles excelStyles) error {
	headers := []string{"#", "Direction", "Entry Time", "Exit Time", "Entry Price", "Exit Price", "Size", "PnL", "Commission", "Exit Reason"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, cell, cell, styles.header); err != nil {
			return err
		}
	}

	for i, trade := range trades {
		values := []interface{}{
			i + 1,
			trade.Direction.String(),
			trade.EntryTime,
			trade.ExitTime,
			trade.EntryPrice,
			trade.ExitPrice,
			trade.Size,
			trade.PnL,
			trade.Commission,
			string(trade.ExitReason),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := fx.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	return fx.SetColWidth(sheet, "A", "J", 18)
}

func (r *ExcelReporter) writeEquitySheet(fx *excelize.File, sheet string, curve []backtest.EquityPoint, styles excelStyles) error {
	headers := []string{"Timestamp", "Cash", "Equity"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, cell, cell, styles.header); err != nil {
			return err
		}
	}

	for i, point := range curve {
		values := []interface{}{point.Timestamp, point.Cash, point.Equity}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := fx.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	return fx.SetColWidth(sheet, "A", "C", 20)
}

// WriteSweepXLSX writes ranked sweep results to a workbook with a single
// Ranking sheet, best combination first.
func (r *ExcelReporter) WriteSweepXLSX(ranked []backtest.ComboResult, path string) error {
	if err := ensureReportDir(path); err != nil {
		return err
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const sheet = "Ranking"
	fx.SetSheetName(fx.GetSheetName(0), sheet)

	styles, err := r.createStyles(fx)
	if err != nil {
		return err
	}

	headers := []string{"Rank", "Parameters", "Sharpe", "Total Return", "Max Drawdown", "Trades", "Win Rate", "Duration"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, cell, cell, styles.header); err != nil {
			return err
		}
	}

	for i, combo := range ranked {
		values := []interface{}{
			i + 1,
			combo.Config.Label(),
			combo.Report.SharpeRatio,
			combo.Report.TotalReturn,
			combo.Report.MaxDrawdown,
			combo.Report.TradeCount,
			combo.Report.WinRate / 100,
			combo.Duration.String(),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := fx.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	return fx.SaveAs(path)
}
