package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/brensch/pubparquet/internal/archive"
	"github.com/brensch/pubparquet/internal/db"
	"github.com/brensch/pubparquet/internal/extractor"
	"github.com/brensch/pubparquet/internal/pipeline"
	"github.com/brensch/pubparquet/internal/runner"
	"github.com/brensch/pubparquet/internal/writer"

	"github.com/spf13/cobra"
)

var (
	runFilelist string
	runArchive  string
)

// runCmd drives one archive through the full pipeline.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full extract and process pipeline for one archive",
	Long: `Performs the complete batch pipeline for one baseline archive:
1. Extracts the tar.gz into a working directory (skipped when resuming a
   previously extracted archive) and removes retracted articles.
2. Splits the document list into the configured number of chunks.
3. For each chunk, extracts article metadata in parallel and writes one
   Parquet partition file.
4. Removes the working directory on success. On failure the working
   directory is left in place for inspection and resume.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := getLogger()
		dbConn := getDB()
		cfg := getConfig()
		ctx := context.Background()

		job, err := archive.NewJob(runFilelist, runArchive)
		if err != nil {
			return fmt.Errorf("invalid job inputs: %w", err)
		}

		if job.Extracted() {
			// Resuming: surface the archive's prior lifecycle from the event
			// log before the pipeline skips extraction.
			event, at, msg, found, err := db.GetLatestFileEvent(ctx, dbConn, job.ArchivePath, pipeline.FileTypeArchive)
			if err != nil {
				logger.Warn("Failed to query prior archive history.", "error", err)
			} else if found {
				logger.Info("Working directory already present, resuming.",
					"last_event", event, "at", at.Format(time.RFC3339), "message", msg)
			}
			completed, err := db.HasEventOccurred(ctx, dbConn, job.ArchivePath, pipeline.FileTypeArchive, pipeline.EventCleanup)
			if err != nil {
				logger.Warn("Failed to check prior archive completion.", "error", err)
			} else if completed {
				logger.Warn("Archive completed a previous run; partition files will be rewritten.")
			}
		}

		outputDir := cfg.OutputDir
		if outputDir == "" {
			outputDir = filepath.Join(filepath.Dir(runArchive), "processed.parquet")
		}

		opts := writer.DefaultOptions()
		opts.RowGroupSize = cfg.RowGroupSize
		p := pipeline.New(
			job,
			runner.New(extractor.New(logger), logger),
			writer.New(outputDir, opts, logger),
			db.NewEventLog(dbConn, logger),
			logger,
		)

		logger.Info("Starting pipeline run...")
		if err := p.Run(ctx, cfg.NumWorkers, cfg.ChunkCount); err != nil {
			logger.Error("Pipeline run failed", "state", p.State().String(), "error", err)
			return fmt.Errorf("run pipeline failed: %w", err)
		}

		logger.Info("Pipeline run completed successfully.", "output_dir", outputDir)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runFilelist, "filelist", "", "Path to the sidecar filelist CSV (required)")
	runCmd.Flags().StringVar(&runArchive, "archive", "", "Path to the baseline tar.gz archive (required)")
	runCmd.MarkFlagRequired("filelist")
	runCmd.MarkFlagRequired("archive")
}
