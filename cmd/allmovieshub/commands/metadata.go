package commands

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/allmovieshub/internal/api/openai"
	"github.com/tjfontaine/allmovieshub/internal/metadata"
	"github.com/tjfontaine/allmovieshub/internal/runtime"
	"github.com/tjfontaine/allmovieshub/internal/storage"
)

func metadataCmd() *cobra.Command {
	var req metadata.Request

	cmd := &cobra.Command{
		Use:   "metadata <title>",
		Short: "Generate description, cast and tags for a movie",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.OpenAI.APIKey == "" {
				return errors.New("openai.api_key is not set (AMH_OPENAI__API_KEY)")
			}
			req.Title = strings.Join(args, " ")

			store, err := runtime.OpenStore(cfg.Storage)
			if err != nil {
				return err
			}
			var cache storage.MetadataStore
			if store != nil {
				defer store.Close()
				cache = store
			}

			client := openai.NewClient(cfg.OpenAI.APIKey,
				openai.WithBaseURL(cfg.OpenAI.BaseURL),
				openai.WithTimeout(cfg.OpenAI.Timeout),
			)
			gen := metadata.NewGenerator(client, cache, metadata.Config{Model: cfg.OpenAI.Model}, logger)

			md, err := gen.Generate(cmd.Context(), req)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(md)
		},
	}

	cmd.Flags().IntVar(&req.Year, "year", 0, "release year")
	cmd.Flags().StringVar(&req.Genre, "genre", "", "genre hint")
	cmd.Flags().BoolVar(&req.Force, "force", false, "regenerate even if cached")
	return cmd
}
