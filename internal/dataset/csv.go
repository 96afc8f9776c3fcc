// Package dataset reads and writes the CSV interchange format for
// indicator-augmented bar series and backtest artifacts.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/keelquant/keel/internal/core"
)

// dateLayouts are tried in order when parsing the date column.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// columnField maps a normalized CSV header to the bar field it fills.
var columnField = map[string]string{
	"date":        "date",
	"close":       core.FieldClose,
	"high":        core.FieldHigh,
	"low":         core.FieldLow,
	"ma20":        core.FieldMA20,
	"ma50":        core.FieldMA50,
	"ma200":       core.FieldMA200,
	"rsi_14":      core.FieldRSI14,
	"macd":        core.FieldMACD,
	"macd_signal": core.FieldMACDSignal,
	"atr":         core.FieldATR,
}

// Load parses a bar series from CSV. Column mapping is header-driven
// and case-insensitive; unknown columns are ignored and blank cells
// become NaN. The date and close columns are mandatory and timestamps
// must be strictly increasing.
func Load(r io.Reader) ([]core.Bar, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, core.ErrEmptyInput
	}
	if err != nil {
		return nil, core.WrapError(core.ErrBadInput, fmt.Errorf("reading header: %w", err))
	}

	// column index -> field name
	fields := make(map[int]string, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if f, ok := columnField[name]; ok {
			fields[i] = f
		}
	}

	var missing []string
	for _, required := range []string{"date", core.FieldClose} {
		if !containsField(fields, required) {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, core.WrapError(core.ErrMissingField,
			fmt.Errorf("missing columns: %s", strings.Join(missing, ", ")))
	}

	var bars []core.Bar
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, core.WrapError(core.ErrBadInput, fmt.Errorf("line %d: %w", line, err))
		}

		bar := core.EmptyBar(time.Time{})
		for i, cell := range record {
			field, ok := fields[i]
			if !ok {
				continue
			}
			cell = strings.TrimSpace(cell)
			if field == "date" {
				ts, err := parseDate(cell)
				if err != nil {
					return nil, core.WrapError(core.ErrBadInput, fmt.Errorf("line %d: %w", line, err))
				}
				bar.Time = ts
				continue
			}
			if cell == "" {
				continue // absent, stays NaN
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, core.WrapError(core.ErrBadInput,
					fmt.Errorf("line %d: column %s: %w", line, field, err))
			}
			bar.SetField(field, v)
		}
		bars = append(bars, bar)
	}

	if err := core.ValidateBars(bars); err != nil {
		return nil, err
	}
	return bars, nil
}

// LoadFile reads a bar series from a CSV file on disk.
func LoadFile(path string) ([]core.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	bars, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bars, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date cell")
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func containsField(fields map[int]string, name string) bool {
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
