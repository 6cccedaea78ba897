package root

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the Isotek admin CLI. Subcommands (auth,
// assignment, policy) are attached here.
var rootCmd = &cobra.Command{
	Use:           "isotek",
	Short:         "Isotek admin CLI",
	Long:          "Administrative utilities for the Isotek engagement core (dev tokens, assignment lifecycle, commission policy).",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
