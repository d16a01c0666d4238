package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/flowengine/internal/cli"
	"github.com/aretw0/flowengine/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the engine as an MCP Server.
This allows AI agents to create, run and inspect graphs as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		engine, err := cli.NewEngine(cmd.Context(), cfg, logger)
		if err != nil {
			return fmt.Errorf("error initializing engine: %w", err)
		}
		defer engine.Close()

		srv := mcp.NewServer(engine.Service(), mcp.WithLogger(logger))

		switch transport {
		case "stdio":
			// The logger already writes to Stderr; Stdout carries JSON-RPC.
			logger.Info("Starting flowengine MCP Server (Stdio)")
			if err := srv.ServeStdio(); err != nil {
				return fmt.Errorf("MCP Server execution failed: %w", err)
			}
		case "sse":
			logger.Info("Starting flowengine MCP Server (SSE)", "port", port)

			// Create a context that cancels on interrupt signal
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ServeSSE(ctx, port); err != nil {
				return fmt.Errorf("MCP Server execution failed: %w", err)
			}
			logger.Info("MCP Server stopped gracefully")
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
