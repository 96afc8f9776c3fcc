// Package backtest turns a position series into a costed equity curve
// with standard performance metrics and a discrete trade log.
package backtest

import (
	"fmt"
	"math"

	"github.com/keelquant/keel/internal/core"
)

// Run executes the accounting pass over an aligned bar and position
// series. Per-bar asset returns are simple percentage changes of close
// (0 at the first bar), turnover is the absolute change in position —
// the series is treated as starting already flat, so the first bar's
// turnover is 0 — and costs accrue at CostBps per unit of turnover.
// The equity curve is a running cumulative product from InitialEquity.
func Run(bars []core.Bar, position []float64, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := core.ValidateBars(bars); err != nil {
		return nil, err
	}
	if len(position) != len(bars) {
		return nil, core.WrapError(core.ErrBadInput,
			fmt.Errorf("position length %d does not match bar count %d", len(position), len(bars)))
	}
	if err := core.RequireFields(bars, core.FieldClose); err != nil {
		return nil, err
	}

	n := len(bars)
	res := &Result{
		Position:       position,
		AssetReturn:    make([]float64, n),
		Turnover:       make([]float64, n),
		Cost:           make([]float64, n),
		StrategyReturn: make([]float64, n),
		Equity:         make([]float64, n),
	}

	equity := cfg.InitialEquity
	for i := 0; i < n; i++ {
		var ret float64
		if i > 0 && bars[i-1].Close != 0 {
			ret = bars[i].Close/bars[i-1].Close - 1
		}
		if math.IsNaN(ret) {
			ret = 0
		}
		res.AssetReturn[i] = ret

		if i > 0 {
			res.Turnover[i] = math.Abs(position[i] - position[i-1])
		}
		res.Cost[i] = cfg.CostBps / 10000.0 * res.Turnover[i]
		res.StrategyReturn[i] = position[i]*ret - res.Cost[i]

		equity *= 1 + res.StrategyReturn[i]
		res.Equity[i] = equity
	}

	res.Trades = ExtractTrades(bars, position)
	res.Metrics = computeMetrics(res, len(res.Trades), cfg)
	return res, nil
}
