package backtest

import (
	"math"

	"github.com/keelquant/keel/internal/signal"
)

// BuildPosition converts entry/exit events into the exposure actually
// traded, enforcing a one-bar execution delay: the position held at
// bar t is resolved from the entry/exit flags observed at bar t-1, so
// nothing at bar t can influence the position at bar t. While long,
// the magnitude follows the current bar's weight (dynamic sizing);
// while flat it is exactly 0.
func BuildPosition(rows []signal.Row) []float64 {
	pos := make([]float64, len(rows))
	long := false

	for i := range rows {
		if i > 0 {
			switch {
			case !long && rows[i-1].Entry:
				long = true
			case long && rows[i-1].Exit:
				long = false
			}
		}
		if long {
			pos[i] = clampWeight(rows[i].Weight)
		}
	}
	return pos
}

func clampWeight(w float64) float64 {
	if math.IsNaN(w) || w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}
