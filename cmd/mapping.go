package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/agentic-research/veil/internal/store"
)

// showLimit caps the per-category entry listing; large stores are better
// inspected with their own tooling.
const showLimit = 100

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Inspect and convert mapping stores",
}

var mappingShowCmd = &cobra.Command{
	Use:   "show [map]",
	Short: "Summarize a mapping store's categories and entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := store.Open(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Mapping store %s: version %d, created %s, %d entries\n",
			args[0], m.Version(), m.CreatedAt().Format("2006-01-02 15:04:05"), m.Len())

		counts := m.Categories()
		cats := make([]string, 0, len(counts))
		for c := range counts {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		for _, c := range cats {
			fmt.Printf("  %s: %d entries\n", c, counts[c])
		}

		shown := 0
		for _, e := range m.Entries() {
			if shown >= showLimit {
				fmt.Printf("  ... %d more\n", m.Len()-shown)
				break
			}
			fmt.Printf("  %-12s %-30q %s\n", e.Category, e.Original, e.Token)
			shown++
		}
		return nil
	},
}

var mappingConvertCmd = &cobra.Command{
	Use:   "convert [src] [dst]",
	Short: "Re-persist a mapping store under another backend (JSON <-> SQLite)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := store.Open(args[0])
		if err != nil {
			return err
		}
		if err := store.Save(m, args[1]); err != nil {
			return err
		}
		fmt.Printf("Converted %s -> %s (%d entries)\n", args[0], args[1], m.Len())
		return nil
	},
}

func init() {
	mappingCmd.AddCommand(mappingShowCmd)
	mappingCmd.AddCommand(mappingConvertCmd)
	rootCmd.AddCommand(mappingCmd)
}
