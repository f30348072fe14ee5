package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/index-checker/internal/editor"
	"github.com/jonesrussell/index-checker/internal/logger"
	"github.com/jonesrussell/index-checker/internal/models"
)

func newEditorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "editor",
		Short: "Load and edit WordPress posts through an editor session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(
		newEditorLoadCmd(),
		newEditorEditCmd(),
		newEditorSnapshotCmd(),
		newEditorRefreshLinksCmd(),
	)
	return cmd
}

// newReconciler wires the reconciler to the API, the local state and the active site.
func newReconciler(ctx context.Context, cmd *cobra.Command) (*clientDeps, *editor.Reconciler, error) {
	deps, err := newClientDeps(ctx, cmd.OutOrStdout())
	if err != nil {
		return nil, nil, err
	}
	if err := deps.requireLogin(); err != nil {
		return nil, nil, err
	}

	site, err := deps.activeSite(ctx)
	if err != nil {
		return nil, nil, err
	}
	return deps, editor.New(deps.API, deps.State, site), nil
}

func newEditorLoadCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "load [urls...]",
		Short: "Load posts into the editor",
		Long: "Load posts by URL from the active site. Without URLs the cached posts, or the remembered " +
			"server session, are shown again.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, rec, err := newReconciler(ctx, cmd)
			if err != nil {
				return err
			}

			urls := args
			if file != "" {
				fromFile, readErr := readURLs(file, cmd.InOrStdin())
				if readErr != nil {
					return readErr
				}
				urls = append(urls, fromFile...)
			}

			res, err := rec.Load(ctx, urls)
			if err != nil {
				return err
			}

			deps.Logger.Debug("Posts loaded",
				logger.String("source", string(res.Source)),
				logger.String("session_id", res.SessionID),
			)
			if res.SessionErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: showing cached posts without an editor session: %v\n", res.SessionErr)
			}
			renderPosts(deps.Out, res.Posts)
			fmt.Fprintf(deps.Out, "%d posts from %s, %d failed", len(res.Posts)-len(res.Failed), res.Source, len(res.Failed))
			if res.SessionID != "" {
				fmt.Fprintf(deps.Out, ", session %s", res.SessionID)
			}
			fmt.Fprintln(deps.Out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read URLs from a file, one per line (- for stdin)")
	return cmd
}

func newEditorEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <post_id> <field> <value>",
		Short: "Update one field of a loaded post",
		Long: "Update one field on WordPress and in the editor session. Fields: title, content, excerpt, " +
			"status, categories (comma-separated ids), seo_title, seo_description, outgoing_url.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			postID, err := parseID(args[0])
			if err != nil {
				return err
			}
			field := strings.TrimSpace(args[1])
			value, err := parseFieldValue(field, args[2])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			deps, rec, err := newReconciler(ctx, cmd)
			if err != nil {
				return err
			}

			res, err := rec.EditField(ctx, postID, field, value)
			if err != nil {
				return err
			}
			fmt.Fprintf(deps.Out, "Updated %s of post %d (modified %s)\n", field, postID, res.Modified)
			return nil
		},
	}
}

func newEditorSnapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot [name]",
		Short: "Save the current editor session as a named snapshot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, rec, err := newReconciler(ctx, cmd)
			if err != nil {
				return err
			}

			res, err := rec.SaveSnapshot(ctx, joinArgs(args))
			if err != nil {
				return err
			}
			fmt.Fprintf(deps.Out, "%s (%s)\n", res.Message, res.SnapshotID)
			return nil
		},
	}
}

func newEditorRefreshLinksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-links",
		Short: "Re-extract outgoing links for every post in the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			deps, rec, err := newReconciler(ctx, cmd)
			if err != nil {
				return err
			}

			res, err := rec.RefreshLinks(ctx)
			if err != nil {
				return err
			}
			renderPosts(deps.Out, rec.Posts())
			fmt.Fprintf(deps.Out, "Refreshed links for %d of %d posts\n", res.UpdatedCount, res.TotalPosts)
			return nil
		},
	}
}

// parseFieldValue turns a command-line value into what the field expects.
func parseFieldValue(field, raw string) (any, error) {
	if field != "categories" {
		return raw, nil
	}

	ids := []int64{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid category id %q", models.ErrInvalidInput, part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func renderPosts(out io.Writer, posts []models.Post) {
	if len(posts) == 0 {
		return
	}

	t := newTable(out)
	t.AppendHeader(table.Row{"ID", "Title", "Status", "Outgoing URL", "Links", "Modified"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: 50},
		{Number: 4, WidthMax: 40},
	})
	for _, p := range posts {
		if !p.Valid() {
			t.AppendRow(table.Row{"-", text.FgRed.Sprint(p.Error), "", p.URL, "", ""})
			continue
		}
		t.AppendRow(table.Row{p.ID, p.Title, p.Status, p.OutgoingURL, len(p.OutgoingLinks), p.DateModified})
	}
	t.Render()
}
