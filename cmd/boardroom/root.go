package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "boardroom",
	Short: "Autonomous company-launch departments",
	Long: `Boardroom runs autonomous department agents that take a company
idea from a short brief to launch collateral.

Departments:
  marketing    brand identity, color palette, logo, marketing copy
  business     market analysis, revenue model, go-to-market plan, slide deck
  finance      revenue projections, cost structure, funding strategy
  engineering  landing page source files plus a live preview sandbox

Marketing output feeds engineering automatically, so brand colors and
copy flow into the generated landing page. Run departments from the
terminal with 'boardroom run', or expose them over HTTP and SSE with
'boardroom serve'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
