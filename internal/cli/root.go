// Package cli implements the procsift command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/procsift/procsift/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "procsift",
	Short: "Procurement listing harvester and dispatcher",
	Long: `procsift harvests procurement listings from a configured source,
validates and deduplicates them, and forwards recognized orders to the
reporting API in a canonical format.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(seedCmd)
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}
