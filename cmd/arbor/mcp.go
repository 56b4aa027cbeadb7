package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/crabritto/arbor/internal/cli"
	"github.com/crabritto/arbor/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the tree editor as MCP tools so agents can build and analyze trees.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")

		srv := mcp.NewServer(rt.Service, mcp.WithLogger(rt.Logger))

		switch transport {
		case "stdio":
			// Logs go to stderr so they never corrupt JSON-RPC on stdout.
			rt.Logger.Info("Starting arbor MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			sc := cli.NewSignalContext(cmd.Context())
			defer sc.Cancel()

			baseURL, _ := cmd.Flags().GetString("base-url")
			if baseURL == "" {
				baseURL = "http://localhost" + addr
			}
			if err := srv.ServeSSE(sc, addr, baseURL); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			rt.Logger.Info("MCP server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", ":8081", "Address to listen on (only for SSE)")
	mcpCmd.Flags().String("base-url", "", "Public base URL of the SSE endpoint (only for SSE)")
}
