package main

import (
	"os"

	"github.com/aretw0/flowengine/internal/cli"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <graph-file|code-review>",
	Short: "Export the flow graph visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the nodes, edges and numbered conditions.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Mermaid(args[0], os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
