package main

import (
	"fmt"
	"strings"

	"github.com/crabritto/arbor"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of arbor",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "arbor version %s\n", strings.TrimSpace(arbor.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
