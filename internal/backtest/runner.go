package backtest

import (
	"github.com/keelquant/keel/internal/core"
	"github.com/keelquant/keel/internal/signal"
	"go.uber.org/zap"
)

// Outcome bundles the signal rows with the accounting result so
// reporting consumers get one bar-aligned unit.
type Outcome struct {
	Bars   []core.Bar   `json:"-"`
	Rows   []signal.Row `json:"signals"`
	Result *Result      `json:"result"`
}

// Runner ties the signal engine, the position builder and the
// accounting pass into one deterministic pipeline run.
type Runner struct {
	logger *zap.Logger
}

// NewRunner creates a Runner. A nil logger is replaced with a no-op.
func NewRunner(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger}
}

// Run computes signals for bars, derives the delayed position series
// and produces the full backtest result. The engine holds no state
// between invocations, so one Runner may serve concurrent runs over
// separate series.
func (r *Runner) Run(bars []core.Bar, sigCfg signal.Config, btCfg Config) (*Outcome, error) {
	rows, err := signal.Compute(bars, sigCfg)
	if err != nil {
		return nil, err
	}

	position := BuildPosition(rows)

	result, err := Run(bars, position, btCfg)
	if err != nil {
		return nil, err
	}

	m := result.Metrics
	r.logger.Info("backtest complete",
		zap.Int("bars", m.Bars),
		zap.Float64("final_equity", m.FinalEquity),
		zap.Float64("cagr", m.CAGR),
		zap.Float64("sharpe", m.Sharpe),
		zap.Float64("max_drawdown", m.MaxDrawdown),
		zap.Int("trades", m.TradeCount),
	)

	return &Outcome{Bars: bars, Rows: rows, Result: result}, nil
}
