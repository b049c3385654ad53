package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brensch/pubparquet/internal/record"
)

// jitterExtractor sleeps a random few milliseconds per document so workers
// finish out of submission order.
type jitterExtractor struct{}

func (jitterExtractor) Extract(path string) record.DocumentRecord {
	time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
	return record.DocumentRecord{Valid: true, Title: path}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunPreservesInputOrder(t *testing.T) {
	docs := make([]string, 50)
	for i := range docs {
		docs[i] = fmt.Sprintf("doc_%03d.xml", i)
	}

	for _, workers := range []int{-1, 1, 2, len(docs)} {
		t.Run(fmt.Sprintf("workers_%d", workers), func(t *testing.T) {
			r := New(jitterExtractor{}, discardLogger())
			records := r.Run(context.Background(), docs, workers)

			require.Len(t, records, len(docs))
			for i, rec := range records {
				assert.Equal(t, docs[i], rec.Title, "output index %d must match input order", i)
			}
		})
	}
}

func TestRunEmptyInput(t *testing.T) {
	r := New(jitterExtractor{}, discardLogger())
	records := r.Run(context.Background(), nil, 4)
	assert.Empty(t, records)
}

func TestRunCancelledContextLeavesSentinels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	docs := []string{"a.xml", "b.xml", "c.xml"}
	r := New(jitterExtractor{}, discardLogger())
	records := r.Run(ctx, docs, 2)

	require.Len(t, records, len(docs), "result length always matches input length")
	for _, rec := range records {
		assert.False(t, rec.Valid, "unprocessed slots hold the invalid sentinel")
	}
}
