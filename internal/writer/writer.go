package writer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	parquetwriter "github.com/xitongsys/parquet-go/writer"

	"github.com/brensch/pubparquet/internal/config"
	"github.com/brensch/pubparquet/internal/record"
)

// Options is the passthrough tuning for the parquet encoder.
type Options struct {
	Compression  parquet.CompressionCodec
	RowGroupSize int64
}

func DefaultOptions() Options {
	return Options{
		Compression:  parquet.CompressionCodec_SNAPPY,
		RowGroupSize: config.DefaultRowGroupSize,
	}
}

// Writer persists record batches as partition files named by zero-based
// chunk index inside a single output directory.
type Writer struct {
	outputDir string
	opts      Options
	logger    *slog.Logger
}

func New(outputDir string, opts Options, logger *slog.Logger) *Writer {
	if opts.RowGroupSize <= 0 {
		opts.RowGroupSize = config.DefaultRowGroupSize
	}
	return &Writer{outputDir: outputDir, opts: opts, logger: logger}
}

// PartitionPath returns the deterministic file name for a chunk index.
func (w *Writer) PartitionPath(index int) string {
	return filepath.Join(w.outputDir, fmt.Sprintf("part_%d.parquet", index))
}

// WritePartition serializes recs to the partition file for index, creating
// the output directory if needed. An existing partition file of the same
// index is overwritten: each run re-derives partitions from current state.
func (w *Writer) WritePartition(index int, recs []record.DocumentRecord) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory %s: %w", w.outputDir, err)
	}

	path := w.PartitionPath(index)
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return "", fmt.Errorf("create parquet file %s: %w", path, err)
	}

	if err := w.writeAll(fw, recs); err != nil {
		fw.Close()
		return "", fmt.Errorf("write partition %d: %w", index, err)
	}
	if err := fw.Close(); err != nil {
		return "", fmt.Errorf("close parquet file %s: %w", path, err)
	}

	w.logger.Info("Partition written.",
		slog.Int("partition", index),
		slog.Int("records", len(recs)),
		slog.String("path", path))
	return path, nil
}

func (w *Writer) writeAll(fw source.ParquetFile, recs []record.DocumentRecord) error {
	pw, err := parquetwriter.NewParquetWriter(fw, new(record.DocumentRecord), 4)
	if err != nil {
		return fmt.Errorf("init writer: %w", err)
	}
	pw.RowGroupSize = w.opts.RowGroupSize
	pw.CompressionType = w.opts.Compression

	for _, rec := range recs {
		if err := pw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("stop writer: %w", err)
	}
	return nil
}
