package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/index-checker/internal/export"
	"github.com/jonesrussell/index-checker/internal/grouping"
	"github.com/jonesrussell/index-checker/internal/logger"
)

const timeLayout = "2006-01-02 15:04"

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse, search and export past index checks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(
		newHistoryListCmd(),
		newHistoryShowCmd(),
		newHistoryExportCmd(),
		newHistorySearchCmd(),
		newHistoryClearCmd(),
	)
	return cmd
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func newHistoryListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent check runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			deps, err := newClientDeps(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := deps.requireLogin(); err != nil {
				return err
			}

			checks, err := deps.API.DomainChecks(ctx, limit)
			if err != nil {
				return err
			}
			if len(checks) == 0 {
				fmt.Fprintln(deps.Out, "No checks recorded")
				return nil
			}

			t := newTable(deps.Out)
			t.AppendHeader(table.Row{"ID", "Domain", "Total", "Indexed", "Not Indexed", "Errors", "Checked"})
			for _, c := range checks {
				t.AppendRow(table.Row{
					c.ID, c.Domain, c.TotalURLs, c.IndexedCount, c.NotIndexedCount, c.ErrorCount,
					c.CreatedAt.Local().Format(timeLayout),
				})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show the URLs of one check run",
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

			check, err := deps.API.DomainCheck(ctx, id)
			if err != nil {
				return err
			}

			fmt.Fprintf(deps.Out, "Check %d of %s on %s\n", check.ID, check.Domain, check.CreatedAt.Local().Format(timeLayout))
			renderCheckResults(deps.Out, check.URLs, grouping.ParseFilter(filter))
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", string(grouping.FilterAll), "show all, indexed, not_indexed or error")
	return cmd
}

func newHistoryExportCmd() *cobra.Command {
	var filter, format, output string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a check run as CSV or Excel",
		Long:  "Export a check run. Without --output the file is written to the current directory under the server-suggested name.",
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

			if output == "-" {
				_, err = deps.API.Export(ctx, id, filter, format, deps.Out)
				return err
			}

			tmp, err := os.CreateTemp(".", ".export-*")
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			defer func() { _ = os.Remove(tmp.Name()) }()

			name, err := deps.API.Export(ctx, id, filter, format, tmp)
			if closeErr := tmp.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				return err
			}

			if output == "" {
				output = name
			}
			if output == "" {
				output = fmt.Sprintf("export-%d.%s", id, export.ParseFormat(format))
			}
			if err := os.Rename(tmp.Name(), output); err != nil {
				return fmt.Errorf("save export: %w", err)
			}

			deps.Logger.Debug("Export saved", logger.String("path", output))
			fmt.Fprintf(deps.Out, "Saved %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", string(grouping.FilterAll), "export all, indexed, not_indexed or error")
	cmd.Flags().StringVar(&format, "format", string(export.FormatCSV), "csv or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (- for stdout)")
	return cmd
}

func newHistorySearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over checked URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := newClientDeps(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := deps.requireLogin(); err != nil {
				return err
			}

			hits, err := deps.API.SearchHistory(ctx, joinArgs(args), limit)
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				fmt.Fprintln(deps.Out, "No matches")
				return nil
			}

			t := newTable(deps.Out)
			t.AppendHeader(table.Row{"Check", "Domain", "URL", "Status", "Score"})
			for _, h := range hits {
				t.AppendRow(table.Row{h.CheckID, h.Domain, h.URL, h.Status, fmt.Sprintf("%.2f", h.Score)})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of hits")
	return cmd
}

func newHistoryClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all check history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to clear history without --yes")
			}

			ctx := cmd.Context()
			deps, err := newClientDeps(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := deps.requireLogin(); err != nil {
				return err
			}

			resp, err := deps.API.ClearHistory(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(deps.Out, "Deleted %d domain checks and %d URLs (%d legacy rows)\n",
				resp.Deleted.Domains, resp.Deleted.URLs, resp.Deleted.Legacy)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}
