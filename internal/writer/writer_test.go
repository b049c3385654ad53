package writer

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/brensch/pubparquet/internal/record"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleRecords(n int) []record.DocumentRecord {
	recs := make([]record.DocumentRecord, 0, n)
	for i := 0; i < n; i++ {
		recs = append(recs, record.New(
			fmt.Sprintf("Title %d", i),
			fmt.Sprintf("Abstract %d", i),
			[]string{"123", "456"},
			fmt.Sprintf("%d", 1000+i),
			fmt.Sprintf("PMC%d", i),
			fmt.Sprintf("10.1000/doc.%d", i),
			"Test Journal",
			time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		))
	}
	return recs
}

func readPartition(t *testing.T, path string) []record.DocumentRecord {
	t.Helper()
	fr, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(record.DocumentRecord), 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	recs := make([]record.DocumentRecord, pr.GetNumRows())
	require.NoError(t, pr.Read(&recs))
	return recs
}

func TestWritePartitionRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "processed.parquet")
	w := New(dir, DefaultOptions(), discardLogger())

	want := sampleRecords(8)
	path, err := w.WritePartition(0, want)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "part_0.parquet"), path, "output directory parents created on demand")

	got := readPartition(t, path)
	require.Len(t, got, len(want))
	assert.Equal(t, want, got, "records survive the round trip in order")
}

func TestWritePartitionOverwrites(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, DefaultOptions(), discardLogger())

	_, err := w.WritePartition(3, sampleRecords(5))
	require.NoError(t, err)

	path, err := w.WritePartition(3, sampleRecords(2))
	require.NoError(t, err)

	got := readPartition(t, path)
	assert.Len(t, got, 2, "rewrite truncates, never appends")
}

func TestWritePartitionEmptyChunk(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, DefaultOptions(), discardLogger())

	path, err := w.WritePartition(0, nil)
	require.NoError(t, err)

	got := readPartition(t, path)
	assert.Empty(t, got, "empty trailing chunks still produce a partition file")
}

func TestWritePartitionInvalidSentinelRows(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, DefaultOptions(), discardLogger())

	recs := []record.DocumentRecord{record.Invalid(), sampleRecords(1)[0], record.Invalid()}
	path, err := w.WritePartition(0, recs)
	require.NoError(t, err)

	got := readPartition(t, path)
	require.Len(t, got, 3)
	assert.False(t, got[0].Valid)
	assert.True(t, got[1].Valid)
	assert.Equal(t, record.Invalid(), got[2])
}
