package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version info set at build time via -ldflags
	Version = "0.1.0-dev"
	Commit  = "none"
	Date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "ei-type %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
		return err
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
