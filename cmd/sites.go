package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/index-checker/internal/models"
)

func newSitesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sites",
		Short: "Manage stored WordPress sites",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newSitesListCmd(), newSitesActivateCmd(), newSitesAddCmd(), newSitesRemoveCmd())
	return cmd
}

func newSitesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored sites",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			deps, err := newClientDeps(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := deps.requireLogin(); err != nil {
				return err
			}

			sites, err := deps.API.Sites(ctx)
			if err != nil {
				return err
			}
			if len(sites) == 0 {
				fmt.Fprintln(deps.Out, "No sites configured")
				return nil
			}

			t := newTable(deps.Out)
			t.AppendHeader(table.Row{"ID", "Name", "URL", "Username", "Active"})
			for _, s := range sites {
				active := ""
				if s.IsActive {
					active = "*"
				}
				t.AppendRow(table.Row{s.ID, s.Name, s.SiteURL, s.Username, active})
			}
			t.Render()
			return nil
		},
	}
}

func newSitesActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate <id>",
		Short: "Make a site the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			deps, err := newClientDeps(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := deps.requireLogin(); err != nil {
				return err
			}

			site, err := deps.API.ActivateSite(ctx, id)
			if err != nil {
				return err
			}
			if err := deps.State.SetActiveSite(ctx, site); err != nil {
				return err
			}
			fmt.Fprintf(deps.Out, "Active site: %s (%s)\n", site.Name, site.SiteURL)
			return nil
		},
	}
}

func newSitesAddCmd() *cobra.Command {
	var name, siteURL, username, appPassword string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Store a WordPress site after testing its credentials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			deps, err := newClientDeps(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := deps.requireLogin(); err != nil {
				return err
			}

			creds := models.Credentials{SiteURL: siteURL, Username: username, AppPassword: appPassword}
			conn, err := deps.API.TestConnection(ctx, creds)
			if err != nil {
				return err
			}

			site, err := deps.API.CreateSite(ctx, &models.WPSiteInput{
				Name: &name, SiteURL: &siteURL, Username: &username, AppPassword: &appPassword,
			})
			if err != nil {
				return err
			}
			if site.IsActive {
				if err := deps.State.SetActiveSite(ctx, site); err != nil {
					return err
				}
			}

			as := username
			if conn.User != nil && conn.User.Name != "" {
				as = conn.User.Name
			}
			fmt.Fprintf(deps.Out, "Stored site %d (%s), connected as %s\n", site.ID, site.SiteURL, as)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&siteURL, "url", "", "site URL, e.g. https://blog.example.com")
	cmd.Flags().StringVar(&username, "username", "", "WordPress username")
	cmd.Flags().StringVar(&appPassword, "app-password", "", "WordPress application password")
	for _, f := range []string{"name", "url", "username", "app-password"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func newSitesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a stored site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			deps, err := newClientDeps(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := deps.requireLogin(); err != nil {
				return err
			}

			if err := deps.API.DeleteSite(ctx, id); err != nil {
				return err
			}
			if _, err := deps.activeSite(ctx); err != nil {
				return err
			}
			fmt.Fprintf(deps.Out, "Deleted site %d\n", id)
			return nil
		},
	}
}
