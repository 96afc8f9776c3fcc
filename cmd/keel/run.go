package main

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/keelquant/keel/internal/backtest"
	"github.com/keelquant/keel/internal/config"
	"github.com/keelquant/keel/internal/dataset"
	"github.com/keelquant/keel/internal/logger"
)

var (
	runOutDir  string
	runNoWrite bool
)

var runCmd = &cobra.Command{
	Use:   "run [bars.csv]",
	Short: "Run the signal engine and backtest over a bar file",
	Long: `Run computes position weights for an indicator-augmented CSV bar
series, backtests them with transaction costs and writes the augmented
table, the closed-trade log and the summary metrics as artifacts.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runOutDir, "out", "", "artifact output directory (default from config)")
	runCmd.Flags().BoolVar(&runNoWrite, "no-write", false, "print metrics only, write no artifacts")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	bars, err := dataset.LoadFile(args[0])
	if err != nil {
		return err
	}
	log.Info("loaded bar series", zap.String("file", args[0]), zap.Int("bars", len(bars)))

	out, err := backtest.NewRunner(log).Run(bars, cfg.Signal, cfg.Backtest)
	if err != nil {
		return fmt.Errorf("running backtest: %w", err)
	}

	printMetrics(out.Result.Metrics)

	if runNoWrite {
		return nil
	}

	dir := cfg.Output.Dir
	if runOutDir != "" {
		dir = runOutDir
	}
	if err := dataset.WriteOutcomeCSV(filepath.Join(dir, "backtest.csv"), out); err != nil {
		return fmt.Errorf("writing backtest table: %w", err)
	}
	if err := dataset.WriteTradesCSV(filepath.Join(dir, "trades.csv"), out.Result.Trades); err != nil {
		return fmt.Errorf("writing trade log: %w", err)
	}
	if err := dataset.WriteMetricsJSON(filepath.Join(dir, "metrics.json"), out.Result.Metrics); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	log.Info("artifacts written", zap.String("dir", dir))

	return nil
}

func loadConfig(log *zap.Logger) (*config.Config, error) {
	if cfgFile == "" {
		log.Warn("no config file specified, using defaults")
		return config.Defaults(), nil
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func printMetrics(m backtest.Metrics) {
	fmt.Println("=== keel backtest ===")
	fmt.Printf("Bars:          %d\n", m.Bars)
	fmt.Printf("Final equity:  %.4f\n", m.FinalEquity)
	fmt.Printf("CAGR:          %s\n", pct(m.CAGR))
	fmt.Printf("Annual vol:    %s\n", pct(m.AnnualVol))
	fmt.Printf("Sharpe:        %s\n", num(m.Sharpe))
	fmt.Printf("Max drawdown:  %s\n", pct(m.MaxDrawdown))
	fmt.Printf("Hit rate:      %s\n", pct(m.HitRate))
	fmt.Printf("Trades closed: %d\n", m.TradeCount)
}

func pct(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}
