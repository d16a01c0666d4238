package main

import (
	"fmt"
	"os"

	"github.com/aretw0/flowengine/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <graph-file|code-review>",
	Short: "Check the graph for consistency",
	Long:  `Reports missing entry edges, malformed conditions, dangling targets and nodes unreachable from START.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.Validate(args[0], os.Stdout); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Println("Graph is valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
