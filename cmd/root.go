package cmd

import (
	"fmt"
	"os"

	"StemShare/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stemshare",
	Short: "StemShare shares multitrack stems through a link with an in-browser mixer.",
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
