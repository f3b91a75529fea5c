package cmd

import (
	"github.com/spf13/cobra"

	"samplecrate/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the samplecrate HTTP server",
	Long:  `Start the HTTP server serving the sample library API and the duplicate resolution endpoints.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
