package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/allmovieshub/internal/site"
)

func robotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "robots",
		Short: "Print the robots.txt the site serves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), site.Robots(cfg.Site.URL))
			return err
		},
	}
}
