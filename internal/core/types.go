package core

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Bar is one trading period of an indicator-augmented price series.
// Numeric fields other than Close are optional; absence is represented
// by NaN so a partially populated series stays a flat value type.
type Bar struct {
	Time       time.Time
	Close      float64
	High       float64
	Low        float64
	MA20       float64
	MA50       float64
	MA200      float64
	RSI14      float64
	MACD       float64
	MACDSignal float64
	ATR        float64
}

// Field names used in validation errors and CSV headers.
const (
	FieldClose      = "close"
	FieldHigh       = "high"
	FieldLow        = "low"
	FieldMA20       = "ma20"
	FieldMA50       = "ma50"
	FieldMA200      = "ma200"
	FieldRSI14      = "rsi_14"
	FieldMACD       = "macd"
	FieldMACDSignal = "macd_signal"
	FieldATR        = "atr"
)

// Field returns the named numeric field, or NaN for an unknown name.
func (b Bar) Field(name string) float64 {
	switch name {
	case FieldClose:
		return b.Close
	case FieldHigh:
		return b.High
	case FieldLow:
		return b.Low
	case FieldMA20:
		return b.MA20
	case FieldMA50:
		return b.MA50
	case FieldMA200:
		return b.MA200
	case FieldRSI14:
		return b.RSI14
	case FieldMACD:
		return b.MACD
	case FieldMACDSignal:
		return b.MACDSignal
	case FieldATR:
		return b.ATR
	}
	return math.NaN()
}

// SetField assigns the named numeric field; unknown names are ignored.
func (b *Bar) SetField(name string, v float64) {
	switch name {
	case FieldClose:
		b.Close = v
	case FieldHigh:
		b.High = v
	case FieldLow:
		b.Low = v
	case FieldMA20:
		b.MA20 = v
	case FieldMA50:
		b.MA50 = v
	case FieldMA200:
		b.MA200 = v
	case FieldRSI14:
		b.RSI14 = v
	case FieldMACD:
		b.MACD = v
	case FieldMACDSignal:
		b.MACDSignal = v
	case FieldATR:
		b.ATR = v
	}
}

// EmptyBar returns a Bar with every numeric field set to NaN.
func EmptyBar(t time.Time) Bar {
	nan := math.NaN()
	return Bar{
		Time:       t,
		Close:      nan,
		High:       nan,
		Low:        nan,
		MA20:       nan,
		MA50:       nan,
		MA200:      nan,
		RSI14:      nan,
		MACD:       nan,
		MACDSignal: nan,
		ATR:        nan,
	}
}

// HasField reports whether the named column carries any real data,
// i.e. at least one bar has a non-NaN value for it.
func HasField(bars []Bar, name string) bool {
	for _, b := range bars {
		if !math.IsNaN(b.Field(name)) {
			return true
		}
	}
	return false
}

// ValidateBars checks the basic shape contract every engine stage
// assumes: a non-empty series with strictly increasing timestamps.
func ValidateBars(bars []Bar) error {
	if len(bars) == 0 {
		return ErrEmptyInput
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			return WrapError(ErrBadInput, fmt.Errorf(
				"timestamps must be strictly increasing: bar %d (%s) does not follow %s",
				i, bars[i].Time.Format("2006-01-02"), bars[i-1].Time.Format("2006-01-02")))
		}
	}
	return nil
}

// RequireFields verifies that every named column carries data, returning
// a single error naming all missing fields.
func RequireFields(bars []Bar, fields ...string) error {
	var missing []string
	for _, f := range fields {
		if !HasField(bars, f) {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return WrapError(ErrMissingField,
			fmt.Errorf("missing fields: %s", strings.Join(missing, ", ")))
	}
	return nil
}
