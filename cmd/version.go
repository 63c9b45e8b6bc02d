package cmd

import (
	"fmt"

	"github.com/Layr-Labs/delegate-tracker/internal/version"
	"github.com/spf13/cobra"
)

var runVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the delegate-tracker version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\nCommit: %s\n", version.GetVersion(), version.GetCommit())
	},
}
