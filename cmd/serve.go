package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/glefebvre/zapper/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API on api.port. When a playlist URL is configured or was
loaded in an earlier session, it is loaded at startup.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "port to listen on (overrides api.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	port, _ := cmd.Flags().GetInt("port")
	if port == 0 {
		port = a.cfg.API.Port
	}

	server := api.NewServer(api.Options{
		Loop:    a.loop,
		Session: a.session,
		Loader:  loaderFunc(a.retrieve),
		History: a.store,
		Config:  a.cfg.API,
		Logger:  a.log,
	})
	a.shutdown.Register("api", server.Shutdown)

	go func() {
		if err := server.Run(port); err != nil {
			a.log.Error("api server stopped", err)
			a.shutdown.TriggerShutdown()
		}
	}()

	if source := a.playlistSource(""); source != "" {
		go a.loadAtStartup(source)
	}

	return a.shutdown.Wait(context.Background())
}

// loadAtStartup loads source, falling back to the newest archived copy when
// it cannot be retrieved.
func (a *app) loadAtStartup(source string) {
	ctx := a.shutdown.Context()
	_, err := a.load(ctx, source)
	if err == nil {
		return
	}
	a.log.WithFields(map[string]interface{}{
		"source": source,
	}).Error("failed to load startup playlist", err)

	label, doc, aerr := a.archived()
	if aerr != nil {
		return
	}
	a.log.WithFields(map[string]interface{}{
		"archive": label,
	}).Warn("loading archived playlist instead")
	if _, err := a.start(ctx, label, doc); err != nil {
		a.log.Error("failed to load archived playlist", err)
	}
}
