package cmd

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/go-drift/driftui/cmd/driftui/internal/demo"
	"github.com/go-drift/driftui/pkg/core"
	"github.com/go-drift/driftui/pkg/stream"
	"github.com/go-drift/driftui/pkg/transport"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the demo app once and print the message",
	Long: `Render the demo app once and print the NEW_DOCUMENT frame as JSON.

The message is the first one a websocket client of "driftui serve" would
receive, which makes render useful for inspecting the document encoding.`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	table, _, err := demo.Source(cfg.DemoTable, tickInterval)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	var sendErr error
	sink := stream.SinkFunc(func(_ context.Context, msg stream.Message) error {
		sendErr = enc.Encode(transport.EnvelopeOf(msg))
		return sendErr
	})

	s := stream.NewDocumentStream(demo.App(core.Props{"table": table}), sink)
	defer s.Close()
	if err := s.Flush(cmd.Context()); err != nil {
		return err
	}
	return sendErr
}
