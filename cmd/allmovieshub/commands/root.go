// Package commands implements the allmovieshub command line.
package commands

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/allmovieshub/internal/config"
)

var (
	configPath string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *slog.Logger
)

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "allmovieshub",
		Short:        "AllMoviesHub site server and tools",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				if _, err := os.Stat(config.DefaultFile); err == nil {
					configPath = config.DefaultFile
				}
			}

			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded

			level := cfg.Log.Level
			if logLevel != "" {
				level = logLevel
			}
			format := cfg.Log.Format
			if logFormat != "" {
				format = logFormat
			}
			logger, err = newLogger(level, format)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.yaml if present)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: json or text")

	root.AddCommand(serveCmd(), metadataCmd(), robotsCmd(), checkDBCmd())
	return root
}

func newLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "", "json":
		return slog.New(slog.NewJSONHandler(os.Stdout, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(os.Stdout, opts)), nil
	default:
		return nil, errors.New("log format must be json or text")
	}
}
