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
	Use:   "allocate",
	Short: "Mean-variance portfolio allocation",
	Long: `allocate builds a long-only portfolio from historical prices.
Expected returns come from historical averages or the Black-Litterman model;
the optimizer maximises the Sharpe ratio under per-asset weight bounds and
traces the efficient frontier.`,
	SilenceUsage: true,
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
