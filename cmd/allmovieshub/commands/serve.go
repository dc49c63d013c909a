package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/allmovieshub/internal/runtime"
)

func serveCmd() *cobra.Command {
	var shutdownTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web site",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []runtime.Option{runtime.WithLogger(logger)}
			if configPath != "" {
				// Reload from the file so the admin path can be rotated live.
				opts = append(opts, runtime.WithConfigFile(configPath))
			} else {
				opts = append(opts, runtime.WithConfig(cfg))
			}

			site, err := runtime.New(opts...)
			if err != nil {
				logger.Error("failed to create site", slog.String("error", err.Error()))
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := site.Start(ctx); err != nil {
				logger.Error("failed to start site", slog.String("error", err.Error()))
				return err
			}

			<-ctx.Done()
			logger.Info("shutdown signal received, stopping site")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := site.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutdown error", slog.String("error", err.Error()))
				return err
			}
			logger.Info("site shutdown complete")
			return nil
		},
	}

	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "graceful shutdown timeout")
	return cmd
}
