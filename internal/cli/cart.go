package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fjod/autoparts-storefront/internal/config"
	"github.com/fjod/autoparts-storefront/internal/session"
	"github.com/fjod/autoparts-storefront/internal/storage"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func NewCartCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Inspect persisted carts",
	}
	cmd.AddCommand(newCartShowCommand(rootOpts))
	return cmd
}

func newCartShowCommand(rootOpts *RootOptions) *cobra.Command {
	var sid string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the cart stored for a browser session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := uuid.Parse(sid); err != nil {
				return errors.New("--session must be a session id")
			}
			cfg := config.Load(rootOpts.EnvFiles...)
			if cfg.Store.Driver == storage.DriverMemory {
				return errors.New("the memory store is private to a running server")
			}

			kv, err := storage.Open(cmd.Context(), cfg.Store)
			if err != nil {
				return fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
			}
			defer kv.Close()

			log := slog.Default().With("session_id", sid)
			store := storage.NewStore(storage.Prefixed(kv, storage.SessionPrefix(sid)), log, nil)
			sess, err := session.Open(cmd.Context(), store, session.Options{Logger: log})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(sess.View())
		},
	}

	cmd.Flags().StringVar(&sid, "session", "", "browser session id (the sid cookie)")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}
