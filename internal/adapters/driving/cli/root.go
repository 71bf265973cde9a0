// Package cli provides the bikeindex command-line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/bikeindex-cli/internal/logger"
)

// version is set at build time.
var version = "dev"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "bikeindex",
	Short: "Manage your Bike Index registrations from the terminal",
	Long: `bikeindex signs in to Bike Index with OAuth, lists and registers bikes,
and uploads photos in the background.

Run 'bikeindex login' first. The grant is kept in ~/.bikeindex/keystore and
refreshed automatically.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "write debug logs to stderr")
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
