package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"histeq/internal/pipeline"
)

func newAnalyzeCommand() *cobra.Command {
	var (
		originalsDir string
		enhancedDir  string
		csvPath      string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Evaluate a directory of enhanced images against their originals",
		RunE: func(cmd *cobra.Command, args []string) error {
			analyzer := pipeline.NewAnalyzer(logger)
			rows, err := analyzer.Run(originalsDir, enhancedDir)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return fmt.Errorf("no original/enhanced pairs found under %s and %s", originalsDir, enhancedDir)
			}

			if err := pipeline.PrintSummary(rows, os.Stdout); err != nil {
				return err
			}

			if csvPath != "" {
				f, err := os.Create(csvPath)
				if err != nil {
					return fmt.Errorf("creating csv file: %w", err)
				}
				defer f.Close()
				if err := pipeline.WriteCSV(rows, f); err != nil {
					return err
				}
				logger.WithField("path", csvPath).Info("CSV report written")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&originalsDir, "originals", "data/input", "directory of original images")
	cmd.Flags().StringVar(&enhancedDir, "enhanced", "data/output", "directory of enhanced images")
	cmd.Flags().StringVar(&csvPath, "csv", "", "optional path for a CSV report")

	return cmd
}
