package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/flowengine/internal/cli"
	"github.com/aretw0/flowengine/internal/presentation/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <graph-file|code-review>",
	Short: "Run a graph once and print the result",
	Long: `Loads a graph from a YAML or JSON file (or the builtin "code-review" workflow),
runs it with the given initial state and prints a report. Use --json for the raw
final state and execution log.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		opts := cli.RunOptions{GraphPath: args[0]}
		opts.StatePath, _ = cmd.Flags().GetString("state-file")
		opts.State, _ = cmd.Flags().GetString("state")
		opts.CodePath, _ = cmd.Flags().GetString("code-file")
		opts.MaxIterations, _ = cmd.Flags().GetInt("max-iterations")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		if !opts.JSON && term.IsTerminal(int(os.Stdout.Fd())) {
			opts.Render = tui.NewRenderer()
		}

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		engine, err := cli.NewEngine(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("error initializing engine: %w", err)
		}
		defer engine.Close()

		res, err := cli.Run(ctx, engine, opts, os.Stdout)
		if err != nil {
			return err
		}
		if sig := ctx.Signal(); sig != nil {
			return fmt.Errorf("interrupted by %s", sig)
		}
		if res.Failed() {
			return fmt.Errorf("run failed at node %q", res.Log[len(res.Log)-1].Node)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("state-file", "", "Initial state file (JSON or YAML)")
	runCmd.Flags().StringP("state", "s", "", "Initial state as inline JSON or YAML")
	runCmd.Flags().String("code-file", "", "Source file loaded into the 'code' state key")
	runCmd.Flags().IntP("max-iterations", "m", 0, "Iteration cap (default from config)")
	runCmd.Flags().Bool("json", false, "Print the raw result as JSON")
}
