package main

import (
	"context"

	"github.com/aretw0/animgraph/internal/cli"
	"github.com/aretw0/animgraph/pkg/runner"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP debug server",
	Long: `Serves controllers, live animator sessions, a server-sent event stream of
transitions and time events, and Prometheus metrics. Definitions are
hot-reloaded when the backend reports changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := logger(cmd)
		if err != nil {
			return err
		}
		port, _ := cmd.Flags().GetString("port")
		buffer, _ := cmd.Flags().GetInt("event-buffer")

		ctx, stop := runner.SignalContext(context.Background())
		defer stop()

		return cli.Serve(ctx, options(cmd), cli.ServeOptions{
			Addr:        ":" + port,
			EventBuffer: buffer,
		}, log)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().Int("event-buffer", 64, "Queued events per /events subscriber")
}
