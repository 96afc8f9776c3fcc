package core

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestValidateBars_Empty(t *testing.T) {
	if err := ValidateBars(nil); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("ValidateBars(nil) = %v, want ErrEmptyInput", err)
	}
}

func TestValidateBars_Unsorted(t *testing.T) {
	bars := []Bar{
		{Time: day(0), Close: 100},
		{Time: day(2), Close: 101},
		{Time: day(1), Close: 102},
	}
	err := ValidateBars(bars)
	if !errors.Is(err, ErrBadInput) {
		t.Fatalf("ValidateBars = %v, want ErrBadInput", err)
	}
}

func TestValidateBars_DuplicateTimestamp(t *testing.T) {
	bars := []Bar{
		{Time: day(0), Close: 100},
		{Time: day(0), Close: 101},
	}
	if err := ValidateBars(bars); !errors.Is(err, ErrBadInput) {
		t.Errorf("duplicate timestamps should be rejected, got %v", err)
	}
}

func TestValidateBars_OK(t *testing.T) {
	bars := []Bar{
		{Time: day(0), Close: 100},
		{Time: day(1), Close: 101},
	}
	if err := ValidateBars(bars); err != nil {
		t.Errorf("ValidateBars = %v, want nil", err)
	}
}

func TestRequireFields_NamesAllMissing(t *testing.T) {
	b := EmptyBar(day(0))
	b.Close = 100
	b.MA20 = 99

	err := RequireFields([]Bar{b}, FieldClose, FieldMA20, FieldMA200, FieldRSI14)
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("RequireFields = %v, want ErrMissingField", err)
	}
	msg := err.Error()
	for _, want := range []string{FieldMA200, FieldRSI14} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q should name missing field %q", msg, want)
		}
	}
	if strings.Contains(msg, FieldMACDSignal) {
		t.Errorf("error %q names a field that was not required", msg)
	}
}

func TestRequireFields_PresentIfAnyBarHasValue(t *testing.T) {
	a := EmptyBar(day(0))
	a.Close = 100
	b := EmptyBar(day(1))
	b.Close = 101
	b.MA200 = 95 // only the second bar carries MA200

	if err := RequireFields([]Bar{a, b}, FieldClose, FieldMA200); err != nil {
		t.Errorf("RequireFields = %v, want nil", err)
	}
}

func TestBar_Field(t *testing.T) {
	b := Bar{Close: 1, High: 2, Low: 3, MA20: 4, MA50: 5, MA200: 6, RSI14: 7, MACD: 8, MACDSignal: 9, ATR: 10}

	cases := map[string]float64{
		FieldClose:      1,
		FieldHigh:       2,
		FieldLow:        3,
		FieldMA20:       4,
		FieldMA50:       5,
		FieldMA200:      6,
		FieldRSI14:      7,
		FieldMACD:       8,
		FieldMACDSignal: 9,
		FieldATR:        10,
	}
	for name, want := range cases {
		if got := b.Field(name); got != want {
			t.Errorf("Field(%q) = %v, want %v", name, got, want)
		}
	}
	if !math.IsNaN(b.Field("bogus")) {
		t.Error("unknown field should return NaN")
	}
}

func TestBar_SetFieldRoundTrip(t *testing.T) {
	b := EmptyBar(day(0))
	for i, f := range []string{FieldClose, FieldHigh, FieldLow, FieldMA20, FieldMA50, FieldMA200, FieldRSI14, FieldMACD, FieldMACDSignal, FieldATR} {
		want := float64(i + 1)
		b.SetField(f, want)
		if got := b.Field(f); got != want {
			t.Errorf("SetField(%q, %v) then Field = %v", f, want, got)
		}
	}
	b.SetField("bogus", 99) // must be a no-op, not a panic
}

func TestEmptyBar_AllNaN(t *testing.T) {
	b := EmptyBar(day(0))
	for _, f := range []string{FieldClose, FieldHigh, FieldLow, FieldMA20, FieldMA50, FieldMA200, FieldRSI14, FieldMACD, FieldMACDSignal, FieldATR} {
		if !math.IsNaN(b.Field(f)) {
			t.Errorf("EmptyBar field %q = %v, want NaN", f, b.Field(f))
		}
	}
}
