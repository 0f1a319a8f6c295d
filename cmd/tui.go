package main

import (
	"context"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/glefebvre/zapper/internal/fetcher"
	"github.com/glefebvre/zapper/internal/logger"
	"github.com/glefebvre/zapper/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse channels in a terminal UI",
	Long: `Browse channels interactively.

Keys:
  type          search channel names
  tab/shift+tab cycle categories
  up/down       move, loading more rows near the end of the list
  enter         play the selected channel
  ctrl+r        reload the playlist
  esc/ctrl+c    quit`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().String("url", "", "playlist URL or file to load")
	tuiCmd.Flags().Bool("offline", false, "browse the newest archived copy of the playlist")
	tuiCmd.Flags().String("log-file", "", "write logs to this file instead of discarding them")
}

func runTUI(cmd *cobra.Command, args []string) error {
	logFile, _ := cmd.Flags().GetString("log-file")

	var out io.Writer = io.Discard
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	logger.RedirectOutput(out)

	sink := tui.NewSink()
	a, err := newApp(sink)
	if err != nil {
		return err
	}
	defer a.shutdown.Shutdown()

	explicit, _ := cmd.Flags().GetString("url")
	offline, _ := cmd.Flags().GetBool("offline")
	source := a.playlistSource(explicit)

	loader := loaderFunc(func(ctx context.Context, source string) (string, error) {
		doc, err := a.fetch(ctx, source)
		if err != nil {
			return "", err
		}
		if fetcher.IsRemote(source) {
			a.remember(ctx, source)
		}
		return doc, nil
	})
	if offline {
		label, doc, err := a.archived()
		if err != nil {
			return err
		}
		source = label
		loader = func(context.Context, string) (string, error) { return doc, nil }
	}

	model := tui.NewModel(a.shutdown.Context(), a.loop, a.session, loader, tui.Options{
		Source:       source,
		PrefetchRows: a.cfg.View.PrefetchRows,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	sink.Attach(p.Send)

	_, err = p.Run()
	return err
}

