package cmd

import (
	"fmt"

	"github.com/brensch/pubparquet/internal/inspector"

	"github.com/spf13/cobra"
)

// inspectCmd summarizes produced partition files.
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect schema and row counts of partition files using DuckDB",
	Long: `Connects to DuckDB and inspects the part_*.parquet files in the output
directory, showing the schema plus total, valid, and invalid row counts per
partition.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := getLogger()
		cfg := getConfig()

		if cfg.OutputDir == "" {
			return fmt.Errorf("--output-dir is required for inspect")
		}

		logger.Info("Starting partition inspection...")
		if err := inspector.InspectPartitions(cfg, logger); err != nil {
			logger.Error("Inspection completed with errors", "error", err)
			return fmt.Errorf("inspection failed: %w", err)
		}

		logger.Info("Partition inspection completed successfully.")
		return nil
	},
}
