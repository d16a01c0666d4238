package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/flowengine/internal/cli"
	"github.com/aretw0/flowengine/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "flowengine",
	Short: "flowengine runs declarative workflow graphs",
	Long: `flowengine executes directed graphs of named handlers over a shared state.
Graphs can be run once from a YAML or JSON file, or stored and run through the
HTTP API and the MCP server.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides config)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json (overrides config)")
	rootCmd.PersistentFlags().String("tools", "", "Path to a YAML or JSON file of command handlers (overrides config)")
}

// loadConfig reads the configuration file and applies the logging flags on top.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format, _ = cmd.Flags().GetString("log-format")
	}
	if cmd.Flags().Changed("tools") {
		cfg.Engine.ToolsFile, _ = cmd.Flags().GetString("tools")
	}
	return cfg, cli.NewLogger(cfg.Log), nil
}
