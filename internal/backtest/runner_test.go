package backtest

import (
	"math"
	"testing"

	"github.com/keelquant/keel/internal/core"
	"github.com/keelquant/keel/internal/signal"
)

// pipelineBars builds a regime-on, trend-confirmed series with neutral
// momentum so the default floor sizing applies throughout.
func pipelineBars(closes ...float64) []core.Bar {
	bars := make([]core.Bar, len(closes))
	for i, c := range closes {
		b := core.EmptyBar(day(i))
		b.Close = c
		b.MA20 = c + 2
		b.MA50 = c + 1
		b.MA200 = c - 20
		b.RSI14 = 55
		b.MACD = 1
		b.MACDSignal = 0
		bars[i] = b
	}
	return bars
}

func pipelineSignalConfig() signal.Config {
	cfg := signal.DefaultConfig()
	cfg.UseVolTarget = false
	cfg.UseATRTrailingStop = false
	cfg.TrailReplacesFixedStop = false
	cfg.StopLossPct = 0.99
	return cfg
}

func TestRunner_EndToEnd(t *testing.T) {
	bars := pipelineBars(100, 102, 101, 99, 105, 108)

	out, err := NewRunner(nil).Run(bars, pipelineSignalConfig(), zeroCostConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	wantPos := []float64{0, 1, 1, 1, 1, 1}
	for i, want := range wantPos {
		if out.Result.Position[i] != want {
			t.Errorf("position[%d] = %v, want %v", i, out.Result.Position[i], want)
		}
	}

	final := out.Result.Equity[len(out.Result.Equity)-1]
	if math.Abs(final-1.0800) > 5e-5 {
		t.Errorf("final equity = %.4f, want 1.0800", final)
	}
	if out.Result.Metrics.TradeCount != 0 {
		t.Errorf("TradeCount = %d, want 0 (trade still open at the last bar)", out.Result.Metrics.TradeCount)
	}
}

func TestRunner_NoLookAhead(t *testing.T) {
	closes := []float64{100, 101, 102, 103, 104, 105, 106, 107}
	bars := pipelineBars(closes...)

	base, err := NewRunner(nil).Run(bars, pipelineSignalConfig(), zeroCostConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Perturb bar 4's indicators hard enough to flip its regime gate.
	perturbed := pipelineBars(closes...)
	perturbed[4].MA200 = 1e9
	perturbed[4].RSI14 = 99
	perturbed[4].MACD = -5

	got, err := NewRunner(nil).Run(perturbed, pipelineSignalConfig(), zeroCostConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for i := 0; i < 4; i++ {
		if got.Result.Position[i] != base.Result.Position[i] {
			t.Errorf("perturbing bar 4 changed position[%d]", i)
		}
	}
	// Bar 4 itself only changes through its weight, which is zeroed by
	// the regime gate; the held/flat state is decided by bar 3.
	if got.Result.Position[5] == base.Result.Position[5] {
		t.Error("perturbation should affect later bars (sanity check on the fixture)")
	}
}

func TestRunner_PropagatesSignalErrors(t *testing.T) {
	bars := []core.Bar{core.EmptyBar(day(0))}
	bars[0].Close = 100

	_, err := NewRunner(nil).Run(bars, pipelineSignalConfig(), DefaultConfig())
	if err == nil {
		t.Fatal("expected a missing-field error from the signal stage")
	}
}

func TestRunner_BinarySizingDegenerateCase(t *testing.T) {
	// With vol targeting off and every de-risk scale at 1, the engine
	// reduces to the classic 0/1 position variant.
	bars := pipelineBars(100, 101, 102, 103)
	cfg := pipelineSignalConfig()
	cfg.WeakTrendScale = 1
	cfg.BearishMomentumScale = 1
	cfg.RSIScaleHot1 = 1
	cfg.RSIScaleHot2 = 1

	out, err := NewRunner(nil).Run(bars, cfg, zeroCostConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for i, p := range out.Result.Position {
		if p != 0 && p != 1 {
			t.Errorf("position[%d] = %v, want binary 0/1", i, p)
		}
	}
}
