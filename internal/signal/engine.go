// Package signal computes continuous position weights and risk-exit
// events from an indicator-augmented bar series.
//
// The rules are hierarchical: a regime filter (close vs MA200) decides
// whether any exposure is allowed, trend persistence (MA20 vs MA50)
// enforces a minimum exposure floor, volatility targeting sizes the
// base weight, and MACD/RSI/ATR conditions only reduce the weight
// rather than forcing an exit. A sequential state machine layered on
// top produces hard exits: regime breaks, fixed stop-loss,
// take-profit, and an ATR trailing stop.
package signal

import (
	"fmt"
	"math"

	"github.com/keelquant/keel/internal/core"
	"github.com/keelquant/keel/internal/indicator"
)

// Exit and entry reason labels carried on Row for reporting.
const (
	ReasonRegimeOn     = "regime on"
	ReasonRegimeOff    = "regime off"
	ReasonTrailingStop = "trailing stop hit"
	ReasonStopLoss     = "stop loss hit"
	ReasonTakeProfit   = "take profit hit"
)

// Row is the per-bar engine output.
type Row struct {
	Weight       float64 `json:"weight"`
	Entry        bool    `json:"entry"`
	Exit         bool    `json:"exit"`
	PositionHint int     `json:"position_hint"`
	EntryReason  string  `json:"entry_reason,omitempty"`
	ExitReason   string  `json:"exit_reason,omitempty"`
	ATR          float64 `json:"-"`
	ATRPct       float64 `json:"-"`
}

// tradingDaysPerYear converts the annual volatility target to a daily
// one inside the vol-targeting rule.
const tradingDaysPerYear = 252.0

var requiredFields = []string{
	core.FieldClose,
	core.FieldMA20,
	core.FieldMA50,
	core.FieldMA200,
	core.FieldRSI14,
	core.FieldMACD,
	core.FieldMACDSignal,
}

// Compute runs the full signal pass over bars and returns one Row per
// bar. It is pure and deterministic: the same bars and config always
// produce the same output, and bars are never mutated.
func Compute(bars []core.Bar, cfg Config) ([]Row, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := core.ValidateBars(bars); err != nil {
		return nil, err
	}
	if err := core.RequireFields(bars, requiredFields...); err != nil {
		return nil, err
	}

	atr, atrPct, err := resolveATR(bars, cfg)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, len(bars))
	for i := range rows {
		rows[i].ATR = atr[i]
		rows[i].ATRPct = atrPct[i]
	}

	computeWeights(bars, cfg, atrPct, rows)
	if err := runRiskExits(bars, cfg, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// resolveATR prefers a provider-supplied ATR column and otherwise
// derives one from high/low/close. When an ATR-dependent feature is
// enabled and neither source is available, that is a hard input error.
func resolveATR(bars []core.Bar, cfg Config) (atr, atrPct []float64, err error) {
	if core.HasField(bars, core.FieldATR) {
		atr = make([]float64, len(bars))
		for i, b := range bars {
			atr[i] = b.ATR
		}
	} else {
		atr = indicator.ATR(bars, cfg.ATRWindow)
		if cfg.usesATR() && !anyFinite(atr) {
			// A window that never fills leaves ATR undefined, which is
			// acceptable; columns that are absent outright are not.
			if err := core.RequireFields(bars, core.FieldHigh, core.FieldLow); err != nil {
				return nil, nil, err
			}
		}
	}

	atrPct = make([]float64, len(bars))
	for i, b := range bars {
		if b.Close == 0 {
			atrPct[i] = math.NaN()
			continue
		}
		atrPct[i] = atr[i] / b.Close
	}
	return atr, atrPct, nil
}

// computeWeights is the vectorizable phase: per-bar arithmetic over the
// series plus one rolling-window statistic. Comparisons against NaN are
// false, which is exactly the missing-data behavior the rules rely on
// (an undefined MA200 keeps the regime off, an undefined RSI skips the
// overextension scales).
func computeWeights(bars []core.Bar, cfg Config, atrPct []float64, rows []Row) {
	regimeOK := make([]bool, len(bars))
	for i, b := range bars {
		regimeOK[i] = !cfg.UseRegimeFilter || b.Close > b.MA200
	}

	var vol []float64
	if cfg.UseVolTarget {
		closes := make([]float64, len(bars))
		for i, b := range bars {
			closes[i] = b.Close
		}
		vol = indicator.RollingStd(indicator.Returns(closes), cfg.VolWindow)
	}
	targetDailyVol := cfg.TargetAnnualVol / math.Sqrt(tradingDaysPerYear)

	atrRuleOn := cfg.ATRPctMaxEnabled() && anyFinite(atrPct)

	for i, b := range bars {
		trendOK := b.MA20 > b.MA50
		bullTrend := regimeOK[i] && trendOK

		// Rising edge of the regime gate; the bar before the series
		// starts counts as regime-off.
		prev := i > 0 && regimeOK[i-1]
		rows[i].Entry = regimeOK[i] && !prev
		if rows[i].Entry {
			rows[i].EntryReason = ReasonRegimeOn
		}

		w := cfg.MaxWeight
		if cfg.UseVolTarget {
			v := vol[i]
			if math.IsNaN(v) || v == 0 {
				w = 0
			} else {
				w = clamp(targetDailyVol/v, cfg.MinWeight, cfg.MaxWeight)
			}
		}

		switch {
		case bullTrend:
			w = math.Max(w, cfg.RegimeTrendFloor)
		case regimeOK[i]:
			w *= cfg.WeakTrendScale
		default:
			w = 0
		}

		// Soft de-risk multipliers stack in a fixed order, each against
		// the unscaled indicator value.
		if !(b.MACD >= b.MACDSignal) {
			w *= cfg.BearishMomentumScale
		}
		if b.RSI14 >= cfg.RSIHot1 && b.RSI14 < cfg.RSIHot2 {
			w *= cfg.RSIScaleHot1
		}
		if b.RSI14 >= cfg.RSIHot2 {
			w *= cfg.RSIScaleHot2
		}
		if atrRuleOn && atrPct[i] >= cfg.ATRPctMax {
			w *= cfg.ATRHighScale
		}

		w = clamp(w, 0, 1)
		if math.IsNaN(w) {
			w = 0
		}
		rows[i].Weight = w
	}
}

// runRiskExits is the strictly sequential phase: a flat/long state
// machine carrying entry price, the highest close since entry, and a
// re-entry cooldown from bar to bar.
func runRiskExits(bars []core.Bar, cfg Config, rows []Row) error {
	inPosition := false
	entryPrice := math.NaN()
	highestClose := math.NaN()
	cooldownLeft := 0

	for i, b := range bars {
		c := b.Close
		regimeBreak := cfg.UseRegimeFilter && !(c > b.MA200)

		if cooldownLeft > 0 {
			cooldownLeft--
		}

		if !inPosition {
			if rows[i].Entry && cooldownLeft == 0 {
				inPosition = true
				entryPrice = c
				highestClose = c
			}
			rows[i].PositionHint = positionHint(inPosition)
			continue
		}

		if math.IsNaN(entryPrice) {
			return core.WrapError(core.ErrInvariant,
				fmt.Errorf("in position with undefined entry price at bar %d (%s)",
					i, b.Time.Format("2006-01-02")))
		}
		highestClose = math.Max(highestClose, c)

		stopHit := c/entryPrice-1 <= -cfg.StopLossPct
		tpHit := cfg.TakeProfitEnabled() && c/entryPrice-1 >= cfg.TakeProfitPct

		trailHit := false
		if cfg.UseATRTrailingStop && !math.IsNaN(rows[i].ATR) {
			trailHit = c < highestClose-cfg.ATRTrailMult*rows[i].ATR
		}

		var riskExit bool
		if cfg.UseATRTrailingStop && cfg.TrailReplacesFixedStop {
			riskExit = trailHit || tpHit
		} else {
			riskExit = stopHit || trailHit || tpHit
		}

		if regimeBreak || riskExit {
			rows[i].Exit = true
			rows[i].ExitReason = exitReason(regimeBreak, trailHit, stopHit, tpHit, cfg)
			inPosition = false
			entryPrice = math.NaN()
			highestClose = math.NaN()
			cooldownLeft = cfg.CooldownBars
		}
		rows[i].PositionHint = positionHint(inPosition)
	}
	return nil
}

// exitReason labels the trigger, preferring the structural regime
// break over risk exits, then the effective risk exits in evaluation
// order.
func exitReason(regimeBreak, trailHit, stopHit, tpHit bool, cfg Config) string {
	switch {
	case regimeBreak:
		return ReasonRegimeOff
	case trailHit && cfg.UseATRTrailingStop:
		return ReasonTrailingStop
	case stopHit && !(cfg.UseATRTrailingStop && cfg.TrailReplacesFixedStop):
		return ReasonStopLoss
	case tpHit:
		return ReasonTakeProfit
	}
	return ""
}

func positionHint(inPosition bool) int {
	if inPosition {
		return 1
	}
	return 0
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func anyFinite(xs []float64) bool {
	for _, v := range xs {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
