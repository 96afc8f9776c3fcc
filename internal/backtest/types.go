package backtest

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/keelquant/keel/internal/core"
)

// Config holds backtest accounting parameters.
type Config struct {
	// Transaction cost in basis points per unit of turnover
	CostBps float64 `mapstructure:"cost_bps" json:"cost_bps"`
	// Starting portfolio value (1.0 gives a normalized curve)
	InitialEquity float64 `mapstructure:"initial_equity" json:"initial_equity"`
	// Trading bars per year for annualized metrics
	Annualization int `mapstructure:"annualization" json:"annualization"`
}

// DefaultConfig returns the standard accounting parameters.
func DefaultConfig() Config {
	return Config{
		CostBps:       10.0,
		InitialEquity: 1.0,
		Annualization: 252,
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.CostBps < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("cost_bps cannot be negative, got %v", c.CostBps))
	}
	if c.InitialEquity <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial_equity must be positive, got %v", c.InitialEquity))
	}
	if c.Annualization <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("annualization must be positive, got %d", c.Annualization))
	}
	return nil
}

// TradeRecord is one completed round trip extracted from the position
// series.
type TradeRecord struct {
	EntryDate  time.Time `json:"entry_date"`
	ExitDate   time.Time `json:"exit_date"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Return     float64   `json:"trade_return"`
}

// IsWin returns true if the trade was profitable.
func (t TradeRecord) IsWin() bool {
	return t.Return > 0
}

// Metrics holds the performance summary of one backtest. Ratios that
// are undefined for the input (Sharpe with zero volatility, CAGR over
// zero elapsed time) are NaN in memory and null in JSON.
type Metrics struct {
	Bars             int
	CostBps          float64
	InitialEquity    float64
	FinalEquity      float64
	CAGR             float64
	AnnualVol        float64
	Sharpe           float64
	MaxDrawdown      float64
	HitRate          float64
	TradeCount       int
	TradeCountApprox int
}

type metricsJSON struct {
	Bars             int      `json:"bars"`
	CostBps          float64  `json:"cost_bps"`
	InitialEquity    float64  `json:"initial_equity"`
	FinalEquity      float64  `json:"final_equity"`
	CAGR             *float64 `json:"cagr"`
	AnnualVol        *float64 `json:"annual_vol"`
	Sharpe           *float64 `json:"sharpe"`
	MaxDrawdown      float64  `json:"max_drawdown"`
	HitRate          float64  `json:"hit_rate"`
	TradeCount       int      `json:"trade_count"`
	TradeCountApprox int      `json:"trade_count_approx"`
}

// MarshalJSON encodes undefined ratios as explicit nulls, since NaN is
// not representable in JSON.
func (m Metrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(metricsJSON{
		Bars:             m.Bars,
		CostBps:          m.CostBps,
		InitialEquity:    m.InitialEquity,
		FinalEquity:      m.FinalEquity,
		CAGR:             nilIfNaN(m.CAGR),
		AnnualVol:        nilIfNaN(m.AnnualVol),
		Sharpe:           nilIfNaN(m.Sharpe),
		MaxDrawdown:      m.MaxDrawdown,
		HitRate:          m.HitRate,
		TradeCount:       m.TradeCount,
		TradeCountApprox: m.TradeCountApprox,
	})
}

// UnmarshalJSON restores nulls back to NaN sentinels.
func (m *Metrics) UnmarshalJSON(data []byte) error {
	var raw metricsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Metrics{
		Bars:             raw.Bars,
		CostBps:          raw.CostBps,
		InitialEquity:    raw.InitialEquity,
		FinalEquity:      raw.FinalEquity,
		CAGR:             nanIfNil(raw.CAGR),
		AnnualVol:        nanIfNil(raw.AnnualVol),
		Sharpe:           nanIfNil(raw.Sharpe),
		MaxDrawdown:      raw.MaxDrawdown,
		HitRate:          raw.HitRate,
		TradeCount:       raw.TradeCount,
		TradeCountApprox: raw.TradeCountApprox,
	}
	return nil
}

func nilIfNaN(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func nanIfNil(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// Result holds the complete per-bar accounting of one backtest.
type Result struct {
	Position       []float64     `json:"position"`
	AssetReturn    []float64     `json:"asset_return"`
	Turnover       []float64     `json:"turnover"`
	Cost           []float64     `json:"cost"`
	StrategyReturn []float64     `json:"strategy_return"`
	Equity         []float64     `json:"equity"`
	Metrics        Metrics       `json:"metrics"`
	Trades         []TradeRecord `json:"trades"`
}
