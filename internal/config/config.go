package config

import "runtime"

const (
	// Default number of output partitions per archive.
	DefaultChunkCount = 10

	// Default parquet row group size in bytes (128 MiB).
	DefaultRowGroupSize = 128 * 1024 * 1024
)

var (
	// Default number of extraction workers, set to CPU count.
	DefaultNumWorkers = runtime.NumCPU()
)

// Config holds application settings
type Config struct {
	FilelistPath string
	ArchivePath  string
	OutputDir    string
	DbPath       string
	NumWorkers   int
	ChunkCount   int
	// Parquet writer tuning, passed through to the partition writer.
	RowGroupSize int64
}
