package indicator

import (
	"math"

	"github.com/keelquant/keel/internal/core"
)

// ATR calculates the Average True Range as a simple moving average of
// the true range, aligned with bars. Values are NaN until `period`
// bars have accumulated. When High/Low carry no data the whole series
// is NaN: callers decide whether that is acceptable.
func ATR(bars []core.Bar, period int) []float64 {
	out := make([]float64, len(bars))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(bars) == 0 {
		return out
	}
	if !core.HasField(bars, core.FieldHigh) || !core.HasField(bars, core.FieldLow) {
		return out
	}

	tr := make([]float64, len(bars))
	for i, b := range bars {
		hl := math.Abs(b.High - b.Low)
		if i == 0 {
			tr[i] = hl
			continue
		}
		prevClose := bars[i-1].Close
		hc := math.Abs(b.High - prevClose)
		lc := math.Abs(b.Low - prevClose)
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	for i := period - 1; i < len(tr); i++ {
		var sum float64
		valid := true
		for _, v := range tr[i-period+1 : i+1] {
			if math.IsNaN(v) {
				valid = false
				break
			}
			sum += v
		}
		if valid {
			out[i] = sum / float64(period)
		}
	}
	return out
}
