package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentic-research/veil/internal/dataset"
	"github.com/agentic-research/veil/internal/detect"
)

var (
	emitProfilePath string
	detectSample    int
)

var detectCmd = &cobra.Command{
	Use:   "detect [input]",
	Short: "Suggest columns that likely contain sensitive identifiers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := dataset.ReadFile(args[0])
		if err != nil {
			return err
		}

		cfg := detect.DefaultConfig()
		if detectSample > 0 {
			cfg.SampleSize = detectSample
		}
		findings := detect.Scan(ds, cfg)
		if len(findings) == 0 {
			fmt.Println("No sensitive columns detected.")
			return nil
		}

		fmt.Printf("Found %d potentially sensitive columns:\n", len(findings))
		for _, f := range findings {
			fmt.Printf("  %-20s %-10s %s\n", f.Column, f.Category, strings.Join(f.Reasons, "; "))
		}

		if emitProfilePath == "" {
			return nil
		}
		profile := detect.EmitProfile(findings)
		data, err := json.MarshalIndent(profile, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(emitProfilePath, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("write profile: %w", err)
		}
		fmt.Printf("Starter profile written to %s. Review it before masking.\n", emitProfilePath)
		return nil
	},
}

func init() {
	detectCmd.Flags().StringVar(&emitProfilePath, "emit-profile", "", "Write a starter profile for the findings")
	detectCmd.Flags().IntVar(&detectSample, "sample", 0, "Values per column to sample for content patterns (default 100)")
	rootCmd.AddCommand(detectCmd)
}
