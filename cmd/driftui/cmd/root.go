// Package cmd implements the driftui CLI commands.
//
// The root command loads driftui.yaml, configures logging and error
// reporting, and dispatches to the serve, render and version subcommands.
package cmd

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/go-drift/driftui/cmd/driftui/internal/config"
	"github.com/go-drift/driftui/pkg/core"
	"github.com/go-drift/driftui/pkg/errors"
)

// Version information set at build time.
var (
	Version   = "v0.1.0-dev"
	BuildTime = "unknown"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "driftui",
	Short: "driftui - server-side reactive documents",
	Long: `driftui renders component trees on the server and streams them to
clients as JSON documents. State changes, live table updates and client
callbacks trigger new passes; each pass is sent as a revisioned message.

Configuration is read from driftui.yaml in the --config directory.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "directory containing "+config.FileName)
	rootCmd.AddCommand(serveCmd, renderCmd, versionCmd)
}

// Execute runs the CLI with the process arguments.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

// loadConfig resolves the configuration and applies its logging and
// render settings to the process.
func loadConfig(stderr io.Writer) (*config.Resolved, error) {
	cfg, err := config.Resolve(configDir)
	if err != nil {
		return nil, err
	}
	logger := newLogger(stderr, cfg)
	slog.SetDefault(logger)
	errors.SetHandler(&errors.LogHandler{Logger: logger, Verbose: cfg.Log.Level == "debug"})
	core.SetDebugMode(cfg.Render.Debug)
	return cfg, nil
}

func newLogger(w io.Writer, cfg *config.Resolved) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
