package indicator

import "math"

// Returns calculates simple percentage change bar over bar.
// Returns a slice aligned with prices; index 0 is NaN (no prior bar).
func Returns(prices []float64) []float64 {
	out := make([]float64, len(prices))
	if len(out) > 0 {
		out[0] = math.NaN()
	}
	for i := 1; i < len(prices); i++ {
		prev := prices[i-1]
		if prev == 0 || math.IsNaN(prev) || math.IsNaN(prices[i]) {
			out[i] = math.NaN()
			continue
		}
		out[i] = prices[i]/prev - 1
	}
	return out
}

// RollingStd calculates the rolling sample standard deviation over a
// full window of values, aligned with the input. A position is NaN
// until the trailing window holds `period` non-NaN values.
func RollingStd(xs []float64, period int) []float64 {
	out := make([]float64, len(xs))
	for i := range out {
		out[i] = math.NaN()
	}
	if period < 2 || len(xs) < period {
		return out
	}

	for i := period - 1; i < len(xs); i++ {
		window := xs[i-period+1 : i+1]

		valid := true
		var sum float64
		for _, v := range window {
			if math.IsNaN(v) {
				valid = false
				break
			}
			sum += v
		}
		if !valid {
			continue
		}

		mean := sum / float64(period)
		var variance float64
		for _, v := range window {
			variance += (v - mean) * (v - mean)
		}
		out[i] = math.Sqrt(variance / float64(period-1))
	}
	return out
}
