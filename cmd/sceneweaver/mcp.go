package main

import (
	"fmt"

	"github.com/aretw0/sceneweaver/internal/cli"
	"github.com/aretw0/sceneweaver/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes scenario editing sessions as MCP tools, so AI agents can build and
save scenarios.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		return withApp(cmd, func(app *cli.App) error {
			sessions, err := app.Sessions()
			if err != nil {
				return err
			}
			srv := mcp.NewServer(sessions, mcp.WithLogger(app.Logger))

			switch transport {
			case "stdio":
				// Logs go to stderr so they never corrupt JSON-RPC on stdout.
				app.Logger.Info("starting mcp server", "transport", transport)
				return srv.ServeStdio()
			case "sse":
				ctx := cli.NewSignalContext(cmd.Context())
				defer ctx.Cancel()
				if err := srv.ServeSSE(ctx, port); err != nil {
					return err
				}
				app.Logger.Info("mcp server stopped", "signal", ctx.Signal())
				return nil
			default:
				return fmt.Errorf("unknown transport %q (supported: stdio, sse)", transport)
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
