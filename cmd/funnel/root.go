package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "funnel",
	Short: "Funnel is a questionnaire navigation engine for marketing funnels",
	Long:  `Funnel drives a branching questionnaire flow: one question at a time, interstitial screens, backward navigation, and a one-shot completion webhook.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("definition", "f", "funnel.yaml", "Path to the funnel definition file")
}
