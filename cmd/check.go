package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonesrussell/index-checker/internal/checker"
	"github.com/jonesrussell/index-checker/internal/grouping"
	"github.com/jonesrussell/index-checker/internal/logger"
	"github.com/jonesrussell/index-checker/internal/models"
)

var errNoURLs = errors.New("no URLs given, pass them as arguments or with --file")

func newCheckCmd() *cobra.Command {
	var (
		file      string
		filter    string
		batchSize int
		quiet     bool
	)

	cmd := &cobra.Command{
		Use:   "check [urls...]",
		Short: "Check whether URLs are indexed by Google",
		Long: "Check URLs in batches against the API and print the results grouped by domain. " +
			"Use --file - to read URLs from stdin. Interrupting the run keeps the results gathered so far.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := newClientDeps(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := deps.requireLogin(); err != nil {
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
			urls = checker.Dedupe(urls)
			if len(urls) == 0 {
				return errNoURLs
			}

			if cmd.Flags().Changed("batch-size") {
				viper.Set("checker.batch_size", batchSize)
			}
			loop := checker.New(checker.Policy{
				BatchSize: viper.GetInt("checker.batch_size"),
				Delay:     viper.GetDuration("checker.delay"),
			})

			summary := runCheck(ctx, deps, loop, urls, quiet)
			renderCheckResults(deps.Out, summary.Results, grouping.ParseFilter(filter))

			if summary.Cancelled {
				fmt.Fprintf(deps.Out, "Cancelled after %d of %d URLs\n", summary.Processed, summary.Total)
			}
			if summary.ChunkErrors > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %d of %d batches failed, %d URLs not checked\n",
					summary.ChunkErrors, summary.Chunks, summary.Total-len(summary.Results))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read URLs from a file, one per line (- for stdin)")
	cmd.Flags().StringVar(&filter, "filter", string(grouping.FilterAll), "show all, indexed, not_indexed or error")
	cmd.Flags().IntVar(&batchSize, "batch-size", checker.DefaultBatchSize, "URLs per request")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide the progress bar")
	return cmd
}

// runCheck drives the checker loop, rendering progress on stderr.
func runCheck(ctx context.Context, deps *clientDeps, loop *checker.Loop, urls []string, quiet bool) checker.Summary {
	var (
		pw      progress.Writer
		tracker *progress.Tracker
	)
	if !quiet {
		pw = progress.NewWriter()
		pw.SetOutputWriter(os.Stderr)
		pw.SetUpdateFrequency(100 * time.Millisecond)
		pw.SetTrackerLength(30)
		tracker = &progress.Tracker{Message: "Checking URLs", Total: int64(len(urls)), Units: progress.UnitsDefault}
		pw.AppendTracker(tracker)
		go pw.Render()
	}

	obs := checker.Callbacks{
		Progress: func(done, _ int) {
			if tracker != nil {
				tracker.SetValue(int64(done))
			}
		},
		ChunkError: func(chunk []string, err error) {
			deps.Logger.Warn("Batch failed", logger.Int("urls", len(chunk)), logger.Error(err))
		},
	}

	summary := loop.Run(ctx, checker.FromAPI(deps.API), urls, obs)

	if pw != nil {
		if summary.Cancelled {
			tracker.MarkAsErrored()
		} else {
			tracker.MarkAsDone()
		}
		pw.Stop()
		for pw.IsRenderInProgress() {
			time.Sleep(10 * time.Millisecond)
		}
	}

	deps.Logger.Debug("Check finished",
		logger.Int("processed", summary.Processed),
		logger.Int("chunks", summary.Chunks),
		logger.Duration("elapsed", summary.Duration),
	)
	return summary
}

// renderCheckResults prints one table per domain and a totals line.
func renderCheckResults(out io.Writer, results []models.CheckedURL, filter grouping.FilterStatus) {
	groups := grouping.Apply(grouping.GroupResults(results), filter)
	if len(groups) == 0 {
		fmt.Fprintln(out, "No results")
		return
	}

	for _, g := range groups {
		t := newTable(out)
		t.SetTitle(fmt.Sprintf("%s (%d indexed, %d not indexed, %d errors)",
			g.Domain, g.Counts.Indexed, g.Counts.NotIndexed, g.Counts.Error))
		t.AppendHeader(table.Row{"URL", "Status", "Details"})
		for _, r := range g.Results {
			t.AppendRow(table.Row{r.URL, r.Status.Label(), r.Details})
		}
		t.Render()
	}

	totals := grouping.Totals(groups)
	fmt.Fprintf(out, "Total: %d  Indexed: %d  Not indexed: %d  Errors: %d\n",
		totals.Total, totals.Indexed, totals.NotIndexed, totals.Error)
}

// readURLs reads one URL per line. Blank lines and # comments are skipped.
func readURLs(path string, stdin io.Reader) ([]string, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open url file: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var urls []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read url file: %w", err)
	}
	return urls, nil
}
