package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "picks",
	Short: "TradePulse daily stock picks service",
	Long: `TradePulse generates a ranked daily shortlist of US equities.

A rate-limited gateway pulls analyst consensus, fundamentals and news
from the market-data provider; a multi-phase pipeline filters, scores
and persists the picks once per trading day.

Examples:
  picks start
  picks run --force
  picks cleanup --days 7
  picks status`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}
