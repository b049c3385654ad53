package runner

import (
	"context"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/brensch/pubparquet/internal/record"
)

// DocumentExtractor is the per-document extraction capability. It must be a
// total function; the runner never observes a worker failure.
type DocumentExtractor interface {
	Extract(path string) record.DocumentRecord
}

// Runner fans document extraction out across a bounded number of workers
// and collects results in input order. Workers share no mutable state: each
// receives one path and writes only its own result slot.
type Runner struct {
	extractor DocumentExtractor
	logger    *slog.Logger
}

func New(extractor DocumentExtractor, logger *slog.Logger) *Runner {
	return &Runner{extractor: extractor, logger: logger}
}

// Run extracts every document in docs. Output index i always holds the
// record for docs[i], regardless of worker completion order. A non-positive
// workers value means one worker per CPU.
func (r *Runner) Run(ctx context.Context, docs []string, workers int) []record.DocumentRecord {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	records := make([]record.DocumentRecord, len(docs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range docs {
		if ctx.Err() != nil {
			// Remaining slots stay as the zero value, which is the invalid
			// sentinel.
			r.logger.Warn("Extraction cancelled.", slog.Int("remaining", len(docs)-i))
			break
		}
		i, path := i, path
		g.Go(func() error {
			records[i] = r.extractor.Extract(path)
			return nil
		})
	}
	g.Wait()
	return records
}
