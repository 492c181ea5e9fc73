package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/veil/api"
	"github.com/agentic-research/veil/internal/dataset"
	"github.com/agentic-research/veil/internal/mask"
	"github.com/agentic-research/veil/internal/store"
)

var keepGoing bool

var unmaskCmd = &cobra.Command{
	Use:   "unmask [input] [output]",
	Short: "Restore original values from a masked dataset",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]
		output := args[1]
		if profilePath == "" {
			return fmt.Errorf("--profile is required")
		}
		if mapPath == "" {
			return fmt.Errorf("--map is required")
		}

		// 1. Load profile and mapping store.
		profile, err := api.LoadProfile(profilePath)
		if err != nil {
			return err
		}
		m, err := store.Open(mapPath)
		if err != nil {
			return err
		}

		// 2. Load masked dataset.
		ds, err := dataset.ReadFile(input)
		if err != nil {
			return err
		}
		fmt.Printf("Loaded %s (%d rows, %d columns)\n", input, len(ds.Rows), len(ds.Columns))

		// 3. Unmask.
		mode := mask.FailFast
		if keepGoing {
			mode = mask.Collect
		}
		start := time.Now()
		restored, report, err := mask.Unmask(ds, profile, m, mode)
		if err != nil {
			return err
		}

		// 4. Write output; in collect mode, print the report after.
		if err := dataset.WriteFile(output, restored); err != nil {
			return err
		}
		fmt.Printf("Unmasked %s -> %s in %v\n", input, output, time.Since(start))

		if len(report.Unknown) > 0 {
			fmt.Printf("%d cells across %d rows could not be restored (tokens left in place):\n",
				len(report.Unknown), report.Rows.GetCardinality())
			for _, cell := range report.Unknown {
				fmt.Printf("  %v\n", cell)
			}
			return fmt.Errorf("%d unknown tokens", len(report.Unknown))
		}
		return nil
	},
}

func init() {
	unmaskCmd.Flags().BoolVar(&keepGoing, "keep-going", false, "Collect unknown tokens instead of aborting on the first one")
	rootCmd.AddCommand(unmaskCmd)
}
