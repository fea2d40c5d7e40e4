// Package cli wires the storefront commands.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFiles []string
}

// NewRootCommand creates the storefront root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "storefront",
		Short:         "Auto-parts storefront cart and checkout service",
		Long:          "Serves browser cart sessions and drives checkout against the order backend.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringSliceVar(&opts.EnvFiles, "env-file", []string{".env"}, "env files loaded before reading the environment")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewCartCommand(opts))

	return cmd
}
