package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/flowengine"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of flowengine",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("flowengine version %s\n", strings.TrimSpace(flowengine.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
