package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/brensch/pubparquet/internal/db"
	"github.com/brensch/pubparquet/internal/pipeline"

	"github.com/spf13/cobra"
)

var stateLimit int
var stateFilterEvent string

// stateCmd views the pipeline event log.
var stateCmd = &cobra.Command{
	Use:   "state [filetype]",
	Short: "View the event log history for processed archives and chunks",
	Long: `Queries the DuckDB event log and displays pipeline history.
Specify 'archives' or 'chunks' as an optional argument to filter by type.
Use flags to filter by event and limit the output.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := getLogger()
		dbConn := getDB()
		fileTypeFilter := ""
		if len(args) > 0 {
			fileType := strings.ToLower(args[0])
			if fileType == "archives" || fileType == "archive" {
				fileTypeFilter = pipeline.FileTypeArchive
			} else if fileType == "chunks" || fileType == "chunk" {
				fileTypeFilter = pipeline.FileTypeChunk
			} else {
				return fmt.Errorf("invalid filetype filter: %s (use 'archives' or 'chunks')", args[0])
			}
		}

		logger.Info("Querying database event log", "type_filter", fileTypeFilter, "event_filter", stateFilterEvent, "limit", stateLimit)

		err := db.DisplayFileHistory(context.Background(), dbConn, fileTypeFilter, stateFilterEvent, stateLimit)
		if err != nil {
			logger.Error("Failed to display state history", "error", err)
			return err
		}

		return nil
	},
}

func init() {
	stateCmd.Flags().IntVarP(&stateLimit, "limit", "n", 50, "Limit the number of log records displayed")
	stateCmd.Flags().StringVarP(&stateFilterEvent, "event", "e", "", "Filter records by event type (e.g., extract_end, chunk_end, error)")
}
