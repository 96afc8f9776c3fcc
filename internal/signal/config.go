package signal

import (
	"fmt"
	"math"

	"github.com/keelquant/keel/internal/core"
)

// Config holds every threshold of the sizing and risk-exit rules.
// It is an explicit value passed by the caller; there is no global
// default state. Optional thresholds (ATRPctMax, TakeProfitPct) are
// disabled when NaN.
type Config struct {
	// Regime / trend definitions
	UseRegimeFilter bool `mapstructure:"use_regime_filter" json:"use_regime_filter"`

	// Volatility targeting
	UseVolTarget    bool    `mapstructure:"use_vol_target" json:"use_vol_target"`
	VolWindow       int     `mapstructure:"vol_window" json:"vol_window"`
	TargetAnnualVol float64 `mapstructure:"target_annual_vol" json:"target_annual_vol"`
	MaxWeight       float64 `mapstructure:"max_weight" json:"max_weight"`
	MinWeight       float64 `mapstructure:"min_weight" json:"min_weight"`

	// Exposure floor while regime and trend are both confirmed
	RegimeTrendFloor float64 `mapstructure:"regime_trend_floor" json:"regime_trend_floor"`

	// Soft de-risk scales
	WeakTrendScale       float64 `mapstructure:"weak_trend_scale" json:"weak_trend_scale"`
	BearishMomentumScale float64 `mapstructure:"bearish_momentum_scale" json:"bearish_momentum_scale"`

	// RSI overextension tiers
	RSIHot1      float64 `mapstructure:"rsi_hot_1" json:"rsi_hot_1"`
	RSIHot2      float64 `mapstructure:"rsi_hot_2" json:"rsi_hot_2"`
	RSIScaleHot1 float64 `mapstructure:"rsi_scale_hot_1" json:"rsi_scale_hot_1"`
	RSIScaleHot2 float64 `mapstructure:"rsi_scale_hot_2" json:"rsi_scale_hot_2"`

	// Optional ATR%-based de-risking (weight only)
	ATRWindow    int     `mapstructure:"atr_window" json:"atr_window"`
	ATRPctMax    float64 `mapstructure:"atr_pct_max" json:"atr_pct_max"`
	ATRHighScale float64 `mapstructure:"atr_high_scale" json:"atr_high_scale"`

	// Bars to suppress re-entry after an exit
	CooldownBars int `mapstructure:"cooldown_bars" json:"cooldown_bars"`

	// Fixed stop / take profit
	StopLossPct   float64 `mapstructure:"stop_loss_pct" json:"stop_loss_pct"`
	TakeProfitPct float64 `mapstructure:"take_profit_pct" json:"take_profit_pct"`

	// ATR trailing stop
	UseATRTrailingStop     bool    `mapstructure:"use_atr_trailing_stop" json:"use_atr_trailing_stop"`
	ATRTrailMult           float64 `mapstructure:"atr_trail_mult" json:"atr_trail_mult"`
	TrailReplacesFixedStop bool    `mapstructure:"trail_replaces_fixed_stop" json:"trail_replaces_fixed_stop"`
}

// DefaultConfig returns the aggressive no-leverage defaults: full
// exposure floor in a confirmed bull trend, vol targeting between
// floor and 1.0, soft de-risking only, trailing stop instead of the
// fixed stop.
func DefaultConfig() Config {
	return Config{
		UseRegimeFilter: true,

		UseVolTarget:    true,
		VolWindow:       20,
		TargetAnnualVol: 0.35,
		MaxWeight:       1.0,
		MinWeight:       0.0,

		RegimeTrendFloor: 0.60,

		WeakTrendScale:       0.85,
		BearishMomentumScale: 0.75,

		RSIHot1:      80.0,
		RSIHot2:      90.0,
		RSIScaleHot1: 0.90,
		RSIScaleHot2: 0.75,

		ATRWindow:    14,
		ATRPctMax:    math.NaN(),
		ATRHighScale: 0.70,

		CooldownBars: 0,

		StopLossPct:   0.12,
		TakeProfitPct: math.NaN(),

		UseATRTrailingStop:     true,
		ATRTrailMult:           3.5,
		TrailReplacesFixedStop: true,
	}
}

// TakeProfitEnabled reports whether a take-profit level is configured.
func (c Config) TakeProfitEnabled() bool {
	return !math.IsNaN(c.TakeProfitPct)
}

// ATRPctMaxEnabled reports whether ATR%-based de-risking is configured.
func (c Config) ATRPctMaxEnabled() bool {
	return !math.IsNaN(c.ATRPctMax)
}

// usesATR reports whether any ATR-dependent feature is switched on,
// which makes an ATR series (provided or derived from high/low) a
// hard input requirement.
func (c Config) usesATR() bool {
	return c.UseATRTrailingStop || c.ATRPctMaxEnabled()
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.MinWeight < 0 || c.MaxWeight > 1 || c.MinWeight > c.MaxWeight {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("weight bounds must satisfy 0 <= min <= max <= 1, got [%v, %v]", c.MinWeight, c.MaxWeight))
	}
	if c.UseVolTarget {
		if c.VolWindow < 2 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("vol_window must be at least 2, got %d", c.VolWindow))
		}
		if c.TargetAnnualVol <= 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("target_annual_vol must be positive, got %v", c.TargetAnnualVol))
		}
	}
	if c.RegimeTrendFloor < 0 || c.RegimeTrendFloor > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("regime_trend_floor must be within [0, 1], got %v", c.RegimeTrendFloor))
	}
	for name, scale := range map[string]float64{
		"weak_trend_scale":       c.WeakTrendScale,
		"bearish_momentum_scale": c.BearishMomentumScale,
		"rsi_scale_hot_1":        c.RSIScaleHot1,
		"rsi_scale_hot_2":        c.RSIScaleHot2,
		"atr_high_scale":         c.ATRHighScale,
	} {
		if scale < 0 || scale > 1 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("%s must be within [0, 1], got %v", name, scale))
		}
	}
	if c.RSIHot1 >= c.RSIHot2 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("rsi_hot_1 must be below rsi_hot_2, got %v >= %v", c.RSIHot1, c.RSIHot2))
	}
	if c.usesATR() && c.ATRWindow < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("atr_window must be at least 1, got %d", c.ATRWindow))
	}
	if c.CooldownBars < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("cooldown_bars cannot be negative, got %d", c.CooldownBars))
	}
	if c.StopLossPct < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("stop_loss_pct cannot be negative, got %v", c.StopLossPct))
	}
	if c.TakeProfitEnabled() && c.TakeProfitPct <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("take_profit_pct must be positive when set, got %v", c.TakeProfitPct))
	}
	if c.UseATRTrailingStop && c.ATRTrailMult <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("atr_trail_mult must be positive, got %v", c.ATRTrailMult))
	}
	return nil
}
