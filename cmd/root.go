package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"samplecrate/server"
)

var rootCmd = &cobra.Command{
	Use:   "samplecrate",
	Short: "Samplecrate is an audio sample library with duplicate resolution.",
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
