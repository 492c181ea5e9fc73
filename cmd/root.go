package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	profilePath string
	mapPath     string
)

var rootCmd = &cobra.Command{
	Use:   "veil",
	Short: "Veil: reversible identifier masking for tabular datasets",
	Long: `Veil replaces sensitive identifiers in tabular datasets with consistent
surrogate tokens, recording the correspondence in a mapping store so an
authorized holder of that store can exactly reverse the transformation.

The mapping store is the key to every dataset masked with it. Keep it
separate from the masked data it unlocks.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&profilePath, "profile", "p", "", "Path to column assignment profile (JSON)")
	rootCmd.PersistentFlags().StringVarP(&mapPath, "map", "m", "", "Path to mapping store (.json, or .db for SQLite)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
