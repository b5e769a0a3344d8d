package main

import (
	"fmt"

	"github.com/funnelworks/funnel"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of funnel",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("funnel version %s\n", funnel.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
