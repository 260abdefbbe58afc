package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aretw0/animgraph/internal/cli"
	"github.com/aretw0/animgraph/pkg/adapters/mcp"
	"github.com/aretw0/animgraph/pkg/runner"
	"github.com/aretw0/animgraph/pkg/session"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts animgraph as an MCP server, so AI agents can inspect, validate and
graph controllers and drive animator sessions as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		// Logs go to stderr, stdout carries JSON-RPC.
		eng, log, err := engine(cmd)
		if err != nil {
			return err
		}
		opts := options(cmd)
		store, err := cli.NewSnapshotStore(opts)
		if err != nil {
			return err
		}
		locker, err := cli.NewLocker(opts)
		if err != nil {
			return err
		}
		managerOpts := []session.Option{session.WithLogger(log)}
		if locker != nil {
			managerOpts = append(managerOpts, session.WithLocker(locker))
		}
		sessions := session.NewManager(store, eng.NewAnimator, managerOpts...)

		srv := mcp.NewServer(eng, mcp.WithSessions(sessions), mcp.WithLogger(log))

		switch transport {
		case "stdio":
			log.Info("starting MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			ctx, stop := runner.SignalContext(context.Background())
			defer stop()

			err := srv.ServeSSE(ctx, port)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
