package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/go-drift/driftui/cmd/driftui/internal/config"
	"github.com/go-drift/driftui/cmd/driftui/internal/demo"
	"github.com/go-drift/driftui/pkg/core"
	"github.com/go-drift/driftui/pkg/source"
	"github.com/go-drift/driftui/pkg/stream"
	"github.com/go-drift/driftui/pkg/transport"
)

// tickInterval is how often the generated demo table changes.
const tickInterval = time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the demo app over websockets",
	Long: `Serve the demo app over websockets.

Each connection gets its own stream. With server.stream set to "document"
(the default) the stream renders the demo component tree and publishes a
NEW_DOCUMENT message after every pass. With "figure" it publishes a
NEW_FIGURE message whenever the demo table changes.

Clients send {"type":"RETRIEVE"} for a full snapshot and
{"type":"CALL","callable":"cb0","args":[...]} to invoke a callback.

The server also exposes /healthz, /metrics and /debug/sessions.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	table, keepLive, err := demo.Source(cfg.DemoTable, tickInterval)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := transport.NewServer(newFactory(cfg, table),
		transport.WithPath(cfg.Server.Path),
		transport.WithLogger(slog.Default()),
		transport.WithWriteTimeout(cfg.Server.WriteTimeout),
	)

	slog.Info("Serving driftui",
		"addr", cfg.Server.Addr,
		"path", cfg.Server.Path,
		"stream", cfg.Server.Stream,
		"protocol", cfg.ProtocolVersion,
		"table", table.Name(),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Serve(ctx, cfg.Server.Addr) })
	g.Go(func() error { return keepLive(ctx) })
	return g.Wait()
}

// newFactory returns the per-connection stream constructor for the
// configured stream kind.
func newFactory(cfg *config.Resolved, table source.Table) transport.Factory {
	if cfg.Server.Stream == config.StreamFigure {
		return func(sink stream.Sink) (transport.Stream, error) {
			s, err := stream.NewFigureStream(demo.Figure(table), sink)
			if err != nil {
				return nil, err
			}
			if err := s.Publish(context.Background()); err != nil {
				s.Close()
				return nil, err
			}
			return s, nil
		}
	}
	opts := ownerOptions(cfg)
	return func(sink stream.Sink) (transport.Stream, error) {
		return stream.NewDocumentStream(demo.App(core.Props{"table": table}), sink, opts...), nil
	}
}

func ownerOptions(cfg *config.Resolved) []core.OwnerOption {
	if cfg.Render.Debounce <= 0 {
		return nil
	}
	return []core.OwnerOption{core.WithRateLimit(rate.Every(cfg.Render.Debounce), cfg.Render.Burst)}
}
