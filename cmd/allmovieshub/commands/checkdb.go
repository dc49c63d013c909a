package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/allmovieshub/internal/runtime"
)

func checkDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-db",
		Short: "Open the configured store and ping it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := runtime.OpenStore(cfg.Storage)
			if err != nil {
				return err
			}
			if store == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "storage disabled")
				return nil
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			if err := store.Ping(ctx); err != nil {
				return fmt.Errorf("ping %s store: %w", cfg.Storage.Type, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s store ok\n", cfg.Storage.Type)
			return nil
		},
	}
}
