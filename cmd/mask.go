package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/veil/api"
	"github.com/agentic-research/veil/internal/dataset"
	"github.com/agentic-research/veil/internal/mask"
	"github.com/agentic-research/veil/internal/store"
)

var (
	checkpointEvery int
	maskWorkers     int
)

var maskCmd = &cobra.Command{
	Use:   "mask [input] [output]",
	Short: "Mask assigned columns, growing the mapping store",
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

		// 1. Load profile and mapping store (a fresh store if none exists yet).
		profile, err := api.LoadProfile(profilePath)
		if err != nil {
			return err
		}
		m, err := store.Open(mapPath)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return err
			}
			fmt.Printf("No mapping store at %s, starting empty.\n", mapPath)
			m = store.NewMap()
		}
		before := m.Len()

		// 2. Load dataset.
		ds, err := dataset.ReadFile(input)
		if err != nil {
			return err
		}
		fmt.Printf("Loaded %s (%d rows, %d columns)\n", input, len(ds.Rows), len(ds.Columns))

		// 3. Mask.
		opts := mask.Options{Workers: maskWorkers}
		if checkpointEvery > 0 {
			opts.CheckpointEvery = checkpointEvery
			opts.Checkpoint = func(cm *store.Map) error {
				return store.Save(cm, mapPath)
			}
		}
		start := time.Now()
		masked, err := mask.Mask(ds, profile, m, opts)
		if err != nil {
			return err
		}

		// 4. Write output, then persist the grown store.
		if err := dataset.WriteFile(output, masked); err != nil {
			return err
		}
		if err := store.Save(m, mapPath); err != nil {
			return err
		}

		fmt.Printf("Masked %s -> %s in %v (%d new entries, %d total)\n",
			input, output, time.Since(start), m.Len()-before, m.Len())
		fmt.Printf("Mapping store written to %s. Keep it separate from the masked data.\n", mapPath)
		return nil
	},
}

func init() {
	maskCmd.Flags().IntVar(&checkpointEvery, "checkpoint", 0, "Persist the store after every N new entries (0 = only at the end)")
	maskCmd.Flags().IntVar(&maskWorkers, "workers", 0, "Parallelism for the lookup/substitution phases (0 = GOMAXPROCS)")
	rootCmd.AddCommand(maskCmd)
}
