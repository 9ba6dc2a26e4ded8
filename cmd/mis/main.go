package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath   string
	dataPath     string
	remoteURL    string
	outputFormat string
	outputPath   string
)

// rootCmd is the base command for the MIS analytics CLI
var rootCmd = &cobra.Command{
	Use:   "mis",
	Short: "Structured call MIS analytics",
	Long: `mis loads the structured call export, enriches every call and answers
the MIS dashboard queries: flat, timely and call type summaries, per user
summaries and period drill-downs.

Queries run against the local export by default, or against a running
"mis serve" instance with --remote.

Example usage:
  mis summary --start 2025-01-01 --end 2025-03-31
  mis timely --granularity yearly --exchange NSE
  mis detail --period January-2025 --format csv --out jan.csv
  mis serve`,
	SilenceUsage:      true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return initializeSystem() },
	PersistentPostRun: func(cmd *cobra.Command, args []string) { shutdownSystem() },
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "config.yaml", "Path to the yaml configuration")
	flags.StringVar(&dataPath, "data", "", "Call export to load, local path or s3://bucket/key (overrides data.path)")
	flags.StringVar(&remoteURL, "remote", "", "Query a running mis server at this base URL instead of loading the export")
	flags.StringVar(&outputFormat, "format", "table", "Output format: table, csv or json")
	flags.StringVar(&outputPath, "out", "", "Output file (default: stdout)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
