package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/glefebvre/zapper/internal/config"
	"github.com/glefebvre/zapper/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "zapper",
	Short: "Zapper browses the channels of M3U playlists",
	Long: `Zapper loads an M3U playlist from a URL or a file, lists its channels by
category, filters them by name and hands the selected stream to a player.

It runs as a one-shot listing (browse), a terminal UI (tui) or an HTTP API (serve).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// version needs no configuration
		if cmd.Name() == "version" {
			return nil
		}
		return initConfig()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of Zapper",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Zapper %s\n", version)
	},
}

var configFile string

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./config.yml)")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tuiCmd)
}

func initConfig() error {
	if err := config.LoadFile(configFile); err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	cfg := config.Get()
	logger.InitializeLoggersWithFormat(cfg.GetAppLogLevel(), cfg.GetDatabaseLogLevel(), cfg.Logging.Format)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
