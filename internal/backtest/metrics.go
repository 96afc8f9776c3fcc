package backtest

import "math"

// computeMetrics derives the performance summary from the per-bar
// accounting. Undefined ratios come back as NaN rather than an error:
// they are legitimate outcomes of degenerate inputs, and callers must
// carry them through instead of crashing.
func computeMetrics(res *Result, tradeCount int, cfg Config) Metrics {
	n := len(res.Equity)
	ann := float64(cfg.Annualization)
	finalEquity := res.Equity[n-1]

	cagr := math.NaN()
	if years := float64(n) / ann; years > 0 {
		cagr = math.Pow(finalEquity, ann/float64(n)) - 1
	}

	vol := populationStd(res.StrategyReturn) * math.Sqrt(ann)

	sharpe := math.NaN()
	if vol > 0 {
		sharpe = mean(res.StrategyReturn) * ann / vol
	}

	var positive, turnoverEvents int
	for i, r := range res.StrategyReturn {
		if r > 0 {
			positive++
		}
		if res.Turnover[i] > 0 {
			turnoverEvents++
		}
	}

	return Metrics{
		Bars:             n,
		CostBps:          cfg.CostBps,
		InitialEquity:    cfg.InitialEquity,
		FinalEquity:      finalEquity,
		CAGR:             cagr,
		AnnualVol:        vol,
		Sharpe:           sharpe,
		MaxDrawdown:      maxDrawdown(res.Equity),
		HitRate:          float64(positive) / float64(n),
		TradeCount:       tradeCount,
		TradeCountApprox: turnoverEvents / 2,
	}
}

// maxDrawdown is the worst decline of equity from its running peak, a
// non-positive decimal (exactly 0 for a curve that never falls back).
func maxDrawdown(equity []float64) float64 {
	var worst float64
	peak := math.Inf(-1)
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		if peak > 0 {
			if dd := e/peak - 1; dd < worst {
				worst = dd
			}
		}
	}
	return worst
}

func mean(xs []float64) float64 {
	var sum float64
	for _, v := range xs {
		sum += v
	}
	return sum / float64(len(xs))
}

// populationStd uses the population (ddof=0) standard deviation so the
// volatility of a given series is a single deterministic number.
func populationStd(xs []float64) float64 {
	m := mean(xs)
	var variance float64
	for _, v := range xs {
		variance += (v - m) * (v - m)
	}
	return math.Sqrt(variance / float64(len(xs)))
}
