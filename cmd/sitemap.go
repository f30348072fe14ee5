package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSitemapCmd() *cobra.Command {
	var maxURLs int

	cmd := &cobra.Command{
		Use:   "sitemap <domain>",
		Short: "List the URLs in a domain's sitemap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := newClientDeps(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := deps.requireLogin(); err != nil {
				return err
			}

			resp, err := deps.API.FetchSitemap(ctx, args[0], maxURLs)
			if err != nil {
				return err
			}
			if resp.Count == 0 {
				msg := resp.Message
				if msg == "" {
					msg = "No URLs found"
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", resp.Domain, msg)
				return nil
			}

			for _, u := range resp.URLs {
				fmt.Fprintln(deps.Out, u)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d URLs from %s\n", resp.Count, resp.Domain)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxURLs, "max", 0, "stop after this many URLs (0 uses the server limit)")
	return cmd
}
