// Package commands implements the CLI commands for slotferry.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/slotferry/slotferry/internal/config"
	"github.com/slotferry/slotferry/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "slotferry",
	Short: "Casino game catalog scraper and API",
	Long: `Slotferry scrapes the upstream casino's mobile site for per-provider
game catalogs and serves them over HTTP with two-tier caching.

Examples:
  # Run the catalog API
  slotferry serve

  # One-shot batch scrape of every provider to stdout
  slotferry scrape

  # Scrape a single provider to a file
  slotferry scrape --provider pragmatic-play -o games.json`,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: environment only)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().Bool("log-json", false, "log as JSON")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("log_json", rootCmd.PersistentFlags().Lookup("log-json"))
}

// setup initializes logging and loads configuration for a command run.
func setup() (*config.Config, error) {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
		JSON:  viper.GetBool("log_json"),
	})

	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
