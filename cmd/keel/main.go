package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "keel",
	Short: "keel - risk-aware position sizing and backtesting",
	Long: `keel computes continuous long-only position weights from an
indicator-augmented daily bar series and runs a cost-aware backtest
over them. Signals combine a long-term regime filter, trend
confirmation, volatility targeting and layered risk exits.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
