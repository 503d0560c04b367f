package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/exhibit"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of exhibit",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "exhibit version %s\n", strings.TrimSpace(exhibit.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
