// internal/api/handler/api/backtest.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/keelquant/keel/internal/api/job"
	"github.com/keelquant/keel/internal/api/response"
	"github.com/keelquant/keel/internal/backtest"
	"github.com/keelquant/keel/internal/core"
	"github.com/keelquant/keel/internal/metrics"
	"github.com/keelquant/keel/internal/signal"
)

// Bar is the wire form of one input bar. Pointer fields are optional;
// nil means the indicator is absent for that bar.
type Bar struct {
	Date       string   `json:"date"`
	Close      float64  `json:"close"`
	High       *float64 `json:"high,omitempty"`
	Low        *float64 `json:"low,omitempty"`
	MA20       *float64 `json:"ma20,omitempty"`
	MA50       *float64 `json:"ma50,omitempty"`
	MA200      *float64 `json:"ma200,omitempty"`
	RSI14      *float64 `json:"rsi_14,omitempty"`
	MACD       *float64 `json:"macd,omitempty"`
	MACDSignal *float64 `json:"macd_signal,omitempty"`
	ATR        *float64 `json:"atr,omitempty"`
}

// BacktestRequest is the request body for starting a backtest. The
// signal and backtest sections are partial overrides layered on the
// server's configured defaults.
type BacktestRequest struct {
	Bars     []Bar           `json:"bars"`
	Signal   json.RawMessage `json:"signal,omitempty"`
	Backtest json.RawMessage `json:"backtest,omitempty"`
}

// BacktestResult is the job result payload: the accounting series plus
// summary metrics and the closed-trade log. Signal rows are reduced to
// the weight series so every value is JSON-encodable.
type BacktestResult struct {
	Bars     int                    `json:"bars"`
	Weights  []float64              `json:"weights"`
	Position []float64              `json:"position"`
	Equity   []float64              `json:"equity"`
	Metrics  backtest.Metrics       `json:"metrics"`
	Trades   []backtest.TradeRecord `json:"trades"`
}

// BacktestHandler handles backtest API requests.
type BacktestHandler struct {
	jobStore    *job.Store
	runner      *backtest.Runner
	registry    *metrics.Registry
	signalBase  signal.Config
	accountBase backtest.Config
}

// NewBacktestHandler creates a new backtest handler. The base configs
// supply defaults for request fields left unset.
func NewBacktestHandler(
	jobStore *job.Store,
	runner *backtest.Runner,
	registry *metrics.Registry,
	signalBase signal.Config,
	accountBase backtest.Config,
) *BacktestHandler {
	return &BacktestHandler{
		jobStore:    jobStore,
		runner:      runner,
		registry:    registry,
		signalBase:  signalBase,
		accountBase: accountBase,
	}
}

// Create starts a new backtest job.
func (h *BacktestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrBadInput, err))
		return
	}
	if len(req.Bars) == 0 {
		response.Error(w, http.StatusBadRequest, core.ErrEmptyInput)
		return
	}

	bars, err := decodeBars(req.Bars)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	sigCfg, err := h.signalConfig(req.Signal)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}
	btCfg, err := h.accountConfig(req.Backtest)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	j := h.jobStore.Create("backtest")
	jobID := j.ID
	status := j.Status
	h.registry.SetJobsActive(h.jobStore.Active())

	go h.runBacktest(jobID, bars, sigCfg, btCfg)

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": jobID,
		"status": status,
	})
}

// runBacktest executes the pipeline and updates job status.
func (h *BacktestHandler) runBacktest(
	jobID string,
	bars []core.Bar,
	sigCfg signal.Config,
	btCfg backtest.Config,
) {
	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
	})

	start := time.Now()
	out, err := h.runner.Run(bars, sigCfg, btCfg)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		var coreErr *core.Error
		if !errors.As(err, &coreErr) {
			coreErr = core.WrapError(core.ErrBadInput, err)
		}
		h.registry.RecordBacktest("error", elapsed, 0, 0)
		h.jobStore.Update(jobID, func(j *job.Job) {
			j.Status = job.StatusFailed
			j.Error = coreErr
		})
		h.registry.SetJobsActive(h.jobStore.Active())
		return
	}

	result := &BacktestResult{
		Bars:     len(out.Bars),
		Weights:  make([]float64, len(out.Rows)),
		Position: out.Result.Position,
		Equity:   out.Result.Equity,
		Metrics:  out.Result.Metrics,
		Trades:   out.Result.Trades,
	}
	for i, row := range out.Rows {
		result.Weights[i] = row.Weight
	}

	h.registry.RecordBacktest("success", elapsed, len(out.Bars), len(out.Result.Trades))
	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusComplete
		j.Result = result
	})
	h.registry.SetJobsActive(h.jobStore.Active())
}

// GetStatus returns the status of a backtest job.
func (h *BacktestHandler) GetStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	j, err := h.jobStore.Get(jobID)
	if err != nil {
		response.Error(w, http.StatusNotFound, err)
		return
	}

	resp := map[string]any{
		"job_id": j.ID,
		"status": j.Status,
	}

	if j.Status == job.StatusComplete {
		resp["result"] = j.Result
	}
	if j.Status == job.StatusFailed && j.Error != nil {
		resp["error"] = map[string]string{
			"code":    j.Error.Code,
			"message": j.Error.Message,
		}
	}

	response.JSON(w, http.StatusOK, resp)
}

// signalConfig layers request overrides onto the base signal config.
func (h *BacktestHandler) signalConfig(raw json.RawMessage) (signal.Config, error) {
	cfg := h.signalBase
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return cfg, core.WrapError(core.ErrConfigInvalid, err)
		}
	}
	// JSON cannot carry NaN, so zero or negative means disabled for the
	// optional thresholds.
	if cfg.ATRPctMax <= 0 {
		cfg.ATRPctMax = math.NaN()
	}
	if cfg.TakeProfitPct <= 0 {
		cfg.TakeProfitPct = math.NaN()
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// accountConfig layers request overrides onto the base backtest config.
func (h *BacktestHandler) accountConfig(raw json.RawMessage) (backtest.Config, error) {
	cfg := h.accountBase
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return cfg, core.WrapError(core.ErrConfigInvalid, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var barDateLayouts = []string{"2006-01-02", time.RFC3339}

func decodeBars(in []Bar) ([]core.Bar, error) {
	bars := make([]core.Bar, len(in))
	for i, wb := range in {
		ts, err := parseBarDate(wb.Date)
		if err != nil {
			return nil, core.WrapError(core.ErrBadInput,
				fmt.Errorf("bar %d: %w", i, err))
		}
		b := core.EmptyBar(ts)
		b.Close = wb.Close
		setOptional(&b, core.FieldHigh, wb.High)
		setOptional(&b, core.FieldLow, wb.Low)
		setOptional(&b, core.FieldMA20, wb.MA20)
		setOptional(&b, core.FieldMA50, wb.MA50)
		setOptional(&b, core.FieldMA200, wb.MA200)
		setOptional(&b, core.FieldRSI14, wb.RSI14)
		setOptional(&b, core.FieldMACD, wb.MACD)
		setOptional(&b, core.FieldMACDSignal, wb.MACDSignal)
		setOptional(&b, core.FieldATR, wb.ATR)
		bars[i] = b
	}
	return bars, nil
}

func parseBarDate(s string) (time.Time, error) {
	for _, layout := range barDateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func setOptional(b *core.Bar, field string, v *float64) {
	if v != nil {
		b.SetField(field, *v)
	}
}
