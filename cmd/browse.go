package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	apperrors "github.com/glefebvre/zapper/internal/errors"
	"github.com/glefebvre/zapper/internal/filter"
	"github.com/glefebvre/zapper/internal/session"
	"github.com/glefebvre/zapper/internal/view"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Load a playlist and print its channels",
	Long: `Load a playlist from a URL or a file, then print the category index and the
materialized channel list.

The list is paginated like the interactive views: the first page is printed,
and --pages N prints N pages in total. --category and --search apply the same
filter as the terminal UI.

Examples:
  zapper browse --url http://provider/playlist.m3u
  zapper browse --file ./playlist.m3u --category News --search bbc --pages 3
  zapper browse --offline`,
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().String("file", "", "playlist file to load")
	browseCmd.Flags().String("url", "", "playlist URL to load")
	browseCmd.Flags().String("category", "", "only list channels of this category")
	browseCmd.Flags().String("search", "", "only list channels whose name contains this term")
	browseCmd.Flags().Int("pages", 1, "number of pages to print")
	browseCmd.Flags().Bool("offline", false, "load the newest archived copy instead of retrieving the playlist")
	browseCmd.MarkFlagsMutuallyExclusive("file", "url", "offline")
}

// completionSink hands the first completed parse to done.
type completionSink struct {
	session.NopSink
	done chan session.Completion
}

func (s completionSink) Completed(c session.Completion) {
	select {
	case s.done <- c:
	default:
	}
}

func runBrowse(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	url, _ := cmd.Flags().GetString("url")
	category, _ := cmd.Flags().GetString("category")
	search, _ := cmd.Flags().GetString("search")
	pages, _ := cmd.Flags().GetInt("pages")
	offline, _ := cmd.Flags().GetBool("offline")

	completed := completionSink{done: make(chan session.Completion, 1)}
	a, err := newApp(completed)
	if err != nil {
		return err
	}
	defer a.shutdown.Shutdown()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if offline {
		label, doc, err := a.archived()
		if err != nil {
			return err
		}
		if _, err := a.start(ctx, label, doc); err != nil {
			return err
		}
	} else {
		explicit := url
		if file != "" {
			explicit = file
		}
		source := a.playlistSource(explicit)
		if source == "" {
			return apperrors.ValidationError("no playlist given, use --url or --file or set playlist.url")
		}
		if _, err := a.load(ctx, source); err != nil {
			return err
		}
	}

	var c session.Completion
	select {
	case c = <-completed.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	var (
		categories []string
		snapshot   view.Snapshot
		status     session.Status
	)
	err = a.loop.Call(ctx, func() {
		if category != "" || search != "" {
			a.session.SetFilter(filter.NewState(category, search))
		}
		for i := 1; i < pages; i++ {
			if !a.session.LoadMore() {
				break
			}
		}
		categories = a.session.Categories()
		snapshot = a.session.View()
		status = a.session.Status()
	})
	if err != nil {
		return err
	}

	a.log.WithFields(map[string]interface{}{
		"generation":      c.Generation,
		"orphan_metadata": c.Stats.OrphanMetadata,
		"orphan_urls":     c.Stats.OrphanURLs,
		"skipped_lines":   c.Stats.SkippedLines,
	}).Debug("playlist parsed")

	printListing(cmd.OutOrStdout(), categories, snapshot, status)
	return nil
}

func printListing(out io.Writer, categories []string, snapshot view.Snapshot, status session.Status) {
	fmt.Fprintf(out, "Categories: %s\n\n", strings.Join(categories, ", "))

	if snapshot.NoResults {
		fmt.Fprintln(out, view.NoResultsText)
		fmt.Fprintln(out, view.NoResultsHint)
	} else {
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tGROUP\tSTREAM")
		for _, row := range snapshot.Rows {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", row.ID, row.Name, row.Group, row.StreamURL)
		}
		w.Flush()

		if snapshot.HasMore {
			fmt.Fprintf(out, "\n%s\n", snapshot.ContinuationText)
		}
	}

	fmt.Fprintf(out, "\n%s\n", status.Line())
}
