package dataset

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/keelquant/keel/internal/core"
)

func TestLoad_HeaderDriven(t *testing.T) {
	in := strings.NewReader(
		"Date,Close,MA20,MA50,MA200,RSI_14,MACD,MACD_Signal,ATR,High,Low\n" +
			"2024-01-02,100.5,99,98,90,55.2,0.4,0.1,1.2,101,99.5\n" +
			"2024-01-03,101.25,99.5,98.2,90.1,57,0.5,0.2,1.3,102,100\n")

	bars, err := Load(in)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("got %d bars, want 2", len(bars))
	}
	b := bars[0]
	if b.Close != 100.5 || b.MA200 != 90 || b.RSI14 != 55.2 || b.ATR != 1.2 {
		t.Errorf("bar 0 parsed wrong: %+v", b)
	}
	if b.Time.Format("2006-01-02") != "2024-01-02" {
		t.Errorf("bar 0 date = %v", b.Time)
	}
}

func TestLoad_UnknownColumnsIgnored(t *testing.T) {
	in := strings.NewReader(
		"date,close,volume,adj_close\n" +
			"2024-01-02,100,123456,99.8\n")

	bars, err := Load(in)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if bars[0].Close != 100 {
		t.Errorf("close = %v, want 100", bars[0].Close)
	}
}

func TestLoad_BlankCellsAreAbsent(t *testing.T) {
	in := strings.NewReader(
		"date,close,ma200,atr\n" +
			"2024-01-02,100,,1.5\n" +
			"2024-01-03,101,95,\n")

	bars, err := Load(in)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !math.IsNaN(bars[0].MA200) {
		t.Errorf("blank ma200 = %v, want NaN", bars[0].MA200)
	}
	if !math.IsNaN(bars[1].ATR) {
		t.Errorf("blank atr = %v, want NaN", bars[1].ATR)
	}
	if bars[1].MA200 != 95 {
		t.Errorf("ma200 = %v, want 95", bars[1].MA200)
	}
	// Untouched columns stay absent for the whole series.
	if core.HasField(bars, core.FieldHigh) {
		t.Error("high should be absent when the column is missing")
	}
}

func TestLoad_MissingRequiredColumns(t *testing.T) {
	in := strings.NewReader("open,high,low\n1,2,3\n")

	_, err := Load(in)
	if !errors.Is(err, core.ErrMissingField) {
		t.Fatalf("Load = %v, want ErrMissingField", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "date") || !strings.Contains(msg, "close") {
		t.Errorf("error should name both missing columns, got %q", msg)
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	_, err := Load(strings.NewReader(""))
	if !errors.Is(err, core.ErrEmptyInput) {
		t.Errorf("Load(empty) = %v, want ErrEmptyInput", err)
	}
}

func TestLoad_HeaderOnly(t *testing.T) {
	_, err := Load(strings.NewReader("date,close\n"))
	if !errors.Is(err, core.ErrEmptyInput) {
		t.Errorf("Load(header only) = %v, want ErrEmptyInput", err)
	}
}

func TestLoad_OutOfOrderDates(t *testing.T) {
	in := strings.NewReader(
		"date,close\n" +
			"2024-01-03,100\n" +
			"2024-01-02,101\n")

	_, err := Load(in)
	if !errors.Is(err, core.ErrBadInput) {
		t.Errorf("Load(unsorted) = %v, want ErrBadInput", err)
	}
}

func TestLoad_BadNumber(t *testing.T) {
	in := strings.NewReader(
		"date,close\n" +
			"2024-01-02,not-a-price\n")

	_, err := Load(in)
	if !errors.Is(err, core.ErrBadInput) {
		t.Fatalf("Load = %v, want ErrBadInput", err)
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error should locate the bad line, got %q", err.Error())
	}
}

func TestLoad_BadDate(t *testing.T) {
	in := strings.NewReader(
		"date,close\n" +
			"02/01/2024,100\n")

	_, err := Load(in)
	if !errors.Is(err, core.ErrBadInput) {
		t.Errorf("Load = %v, want ErrBadInput for unrecognized date", err)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile("/nonexistent/bars.csv")
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
