package main

import (
	"fmt"
	"os"

	"github.com/funnelworks/funnel/pkg/adapters/yamlcatalog"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the funnel definition for consistency",
	Long:  `Parses the definition file and verifies question IDs, option presence, branch targets, and interstitial binding forward/reverse consistency.`,
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("definition")
		if len(args) > 0 {
			path = args[0]
		}

		f, err := yamlcatalog.New(path).Load(cmd.Context())
		if err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Funnel definition is valid! ✅ (%d questions, %d interstitials)\n",
			f.Catalog.Len(), f.Bindings.Len())
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
