package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/keelquant/keel/internal/backtest"
)

// outcomeHeader is the augmented table layout: input price, the signal
// columns, then the accounting columns in pipeline order.
var outcomeHeader = []string{
	"date", "close",
	"weight", "entry", "exit", "position_hint", "entry_reason", "exit_reason",
	"position", "asset_ret", "turnover", "cost", "strategy_ret", "equity",
}

// WriteOutcomeCSV writes the full per-bar backtest table. NaN cells are
// written blank, matching what Load reads back as absent.
func WriteOutcomeCSV(path string, out *backtest.Outcome) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(outcomeHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, bar := range out.Bars {
		row := out.Rows[i]
		res := out.Result
		record := []string{
			bar.Time.Format("2006-01-02"),
			formatFloat(bar.Close),
			formatFloat(row.Weight),
			strconv.FormatBool(row.Entry),
			strconv.FormatBool(row.Exit),
			strconv.Itoa(row.PositionHint),
			row.EntryReason,
			row.ExitReason,
			formatFloat(res.Position[i]),
			formatFloat(res.AssetReturn[i]),
			formatFloat(res.Turnover[i]),
			formatFloat(res.Cost[i]),
			formatFloat(res.StrategyReturn[i]),
			formatFloat(res.Equity[i]),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteMetricsJSON writes the summary metrics as indented JSON.
// Undefined metrics (NaN) encode as null.
func WriteMetricsJSON(path string, m backtest.Metrics) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metrics: %w", err)
	}
	data = append(data, '\n')

	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}

// WriteTradesCSV writes the closed-trade log.
func WriteTradesCSV(path string, trades []backtest.TradeRecord) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"entry_date", "exit_date", "entry_price", "exit_price", "return"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, tr := range trades {
		record := []string{
			tr.EntryDate.Format("2006-01-02"),
			tr.ExitDate.Format("2006-01-02"),
			formatFloat(tr.EntryPrice),
			formatFloat(tr.ExitPrice),
			formatFloat(tr.Return),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing trade %d: %w", i, err)
		}
	}
	w.Flush()
	return w.Error()
}

func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating directories: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return f, nil
}
