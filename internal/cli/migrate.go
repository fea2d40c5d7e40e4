package cli

import (
	"fmt"

	"github.com/fjod/autoparts-storefront/internal/config"
	"github.com/fjod/autoparts-storefront/internal/storage"
	"github.com/spf13/cobra"
)

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres cart store migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load(rootOpts.EnvFiles...)

			kv, err := storage.NewPostgresKV(&cfg.Store.Postgres)
			if err != nil {
				return err
			}
			defer kv.Close()

			if err := kv.RunMigrations(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
