package inspector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/brensch/pubparquet/internal/config"

	_ "github.com/marcboeker/go-duckdb"
)

type partitionSummary struct {
	path        string
	totalRows   int64
	validRows   int64
	invalidRows int64
	statsErr    error
}

// InspectPartitions summarizes the part_*.parquet files in the output
// directory: representative schema, then per-partition row and validity
// counts, all queried through DuckDB's parquet reader.
func InspectPartitions(cfg config.Config, logger *slog.Logger) error {
	logger.Info("--- Starting Partition Inspection ---")

	db, err := sql.Open("duckdb", cfg.DbPath)
	if err != nil {
		return fmt.Errorf("failed to open duckdb (%s): %w", cfg.DbPath, err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `INSTALL parquet; LOAD parquet;`); err != nil {
		logger.Warn("Failed install/load parquet extension.", "error", err)
	}

	globPattern := filepath.Join(cfg.OutputDir, "part_*.parquet")
	partitions, err := filepath.Glob(globPattern)
	if err != nil {
		return fmt.Errorf("failed glob partitions in %s: %w", cfg.OutputDir, err)
	}
	if len(partitions) == 0 {
		logger.Info("No partition files found.", "dir", cfg.OutputDir)
		return nil
	}
	sort.Strings(partitions)
	logger.Info("Found partitions to summarize.", slog.Int("count", len(partitions)), slog.String("dir", cfg.OutputDir))

	schema, err := describeSchema(ctx, conn, partitions[0])
	if err != nil {
		logger.Error("Failed getting representative schema.", "error", err)
	} else {
		fmt.Println("\n  Schema (from first partition):")
		for _, line := range strings.Split(schema, "\n") {
			fmt.Printf("    %s\n", line)
		}
	}

	var finalErr error
	summaries := make([]*partitionSummary, 0, len(partitions))
	for _, path := range partitions {
		s := &partitionSummary{path: path}
		summaries = append(summaries, s)

		statsSQL := fmt.Sprintf(
			`SELECT COUNT(*), COUNT(*) FILTER (valid), COUNT(*) FILTER (NOT valid) FROM read_parquet('%s');`,
			escapePath(path))
		if err := conn.QueryRowContext(ctx, statsSQL).Scan(&s.totalRows, &s.validRows, &s.invalidRows); err != nil {
			s.statsErr = err
			finalErr = errors.Join(finalErr, fmt.Errorf("stats for %s: %w", path, err))
			logger.Error("Failed getting partition statistics.", slog.String("partition", path), "error", err)
		}
	}

	fmt.Println("\n--- Partition Statistics ---")
	fmt.Printf("%-30s | %-12s | %-12s | %-12s | %s\n", "Partition", "Total Rows", "Valid", "Invalid", "Errors")
	fmt.Println(strings.Repeat("-", 90))
	for _, s := range summaries {
		errStr := ""
		if s.statsErr != nil {
			errStr = "Stats Error"
		}
		fmt.Printf("%-30s | %-12d | %-12d | %-12d | %s\n", filepath.Base(s.path), s.totalRows, s.validRows, s.invalidRows, errStr)
	}
	fmt.Println(strings.Repeat("-", 90))

	logger.Info("--- Partition Inspection Finished ---")
	return finalErr
}

func describeSchema(ctx context.Context, conn *sql.Conn, path string) (string, error) {
	describeSQL := fmt.Sprintf("DESCRIBE SELECT * FROM read_parquet('%s');", escapePath(path))
	rows, err := conn.QueryContext(ctx, describeSQL)
	if err != nil {
		return "", fmt.Errorf("query schema for %s: %w", path, err)
	}
	defer rows.Close()

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-20s | %s\n", "Column Name", "Column Type"))
	b.WriteString(strings.Repeat("-", 45) + "\n")
	for rows.Next() {
		var colName, colType, nullVal, keyVal, defaultVal, extraVal sql.NullString
		if err := rows.Scan(&colName, &colType, &nullVal, &keyVal, &defaultVal, &extraVal); err != nil {
			return "", fmt.Errorf("scan schema row for %s: %w", path, err)
		}
		b.WriteString(fmt.Sprintf("%-20s | %s\n", colName.String, colType.String))
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate schema rows for %s: %w", path, err)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// escapePath makes a local path safe inside a DuckDB string literal.
func escapePath(p string) string {
	return strings.ReplaceAll(strings.ReplaceAll(p, `\`, `/`), "'", "''")
}
