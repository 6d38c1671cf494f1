package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// versionCmd prints the build version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the reconciler version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "reconciler %s\n", getVersionString())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
