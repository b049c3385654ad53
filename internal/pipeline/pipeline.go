package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brensch/pubparquet/internal/archive"
	"github.com/brensch/pubparquet/internal/chunker"
	"github.com/brensch/pubparquet/internal/record"
)

// State is the orchestrator's position in the batch lifecycle.
type State int

const (
	StateIdle State = iota
	StateExtracting
	StateProcessing
	StateCleaningUp
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExtracting:
		return "extracting"
	case StateProcessing:
		return "processing"
	case StateCleaningUp:
		return "cleaning_up"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event vocabulary for the audit log.
const (
	EventExtractStart = "extract_start"
	EventExtractEnd   = "extract_end"
	EventSkipExtract  = "skip_extract"
	EventChunkStart   = "chunk_start"
	EventChunkEnd     = "chunk_end"
	EventCleanup      = "cleanup"
	EventError        = "error"
)

const (
	FileTypeArchive = "archive"
	FileTypeChunk   = "chunk"
)

// EventSink receives lifecycle events. Production wires the DuckDB event
// log; tests use NopSink or a capturing fake.
type EventSink interface {
	Record(ctx context.Context, filename, filetype, event, outputPath, message string, duration *time.Duration)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Record(context.Context, string, string, string, string, string, *time.Duration) {}

// Runner is the order-preserving parallel extraction capability.
type Runner interface {
	Run(ctx context.Context, docs []string, workers int) []record.DocumentRecord
}

// PartitionWriter persists one chunk's records as a partition file.
type PartitionWriter interface {
	WritePartition(index int, recs []record.DocumentRecord) (string, error)
}

// Pipeline sequences one archive job: ensure-extracted, plan chunks, per
// chunk extract and write, then cleanup. Chunks run strictly sequentially so
// peak memory stays bounded to one chunk of records.
type Pipeline struct {
	job    *archive.Job
	runner Runner
	out    PartitionWriter
	sink   EventSink
	logger *slog.Logger

	state State
}

func New(job *archive.Job, runner Runner, out PartitionWriter, sink EventSink, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		job:    job,
		runner: runner,
		out:    out,
		sink:   sink,
		logger: logger.With(slog.String("archive", job.ArchivePath)),
		state:  StateIdle,
	}
}

// State returns the pipeline's current lifecycle state.
func (p *Pipeline) State() State { return p.state }

// Run drives the job to completion. On success the working directory is
// always removed, even when some documents were invalid. On any extraction
// or write error the pipeline stops in the failed state and deliberately
// leaves the working directory in place so an operator can inspect or
// resume without re-extracting.
func (p *Pipeline) Run(ctx context.Context, workers, chunks int) error {
	// Configuration errors fail fast, before any filesystem mutation.
	if chunks < 1 {
		return p.fail(ctx, fmt.Errorf("%w: got %d", chunker.ErrInvalidChunkCount, chunks))
	}

	if p.job.Extracted() {
		// Resume path: extraction from a prior run is reused as-is.
		// Exclusions are applied only during Extract, never re-applied on
		// resume; this mirrors the fixed behavior of the batch contract.
		p.logger.Info("Working directory already present, skipping extraction.")
		p.sink.Record(ctx, p.job.ArchivePath, FileTypeArchive, EventSkipExtract, "", "already extracted", nil)
	} else {
		p.state = StateExtracting
		p.sink.Record(ctx, p.job.ArchivePath, FileTypeArchive, EventExtractStart, "", "", nil)
		start := time.Now()
		if err := p.job.Extract(ctx, p.logger); err != nil {
			return p.fail(ctx, fmt.Errorf("extract archive: %w", err))
		}
		dur := time.Since(start)
		p.sink.Record(ctx, p.job.ArchivePath, FileTypeArchive, EventExtractEnd, p.job.WorkDir(), "", &dur)
	}

	docs, err := p.job.Documents()
	if err != nil {
		return p.fail(ctx, fmt.Errorf("list documents: %w", err))
	}
	spans, err := chunker.Plan(len(docs), chunks)
	if err != nil {
		return p.fail(ctx, err)
	}
	p.logger.Info("Processing documents.",
		slog.Int("documents", len(docs)),
		slog.Int("chunks", chunks),
		slog.Int("workers", workers))

	p.state = StateProcessing
	for i, span := range spans {
		l := p.logger.With(slog.Int("chunk", i), slog.Int("total_chunks", len(spans)))
		chunkName := fmt.Sprintf("%s#part_%d", p.job.ArchivePath, i)
		p.sink.Record(ctx, chunkName, FileTypeChunk, EventChunkStart, "", fmt.Sprintf("%d documents", span.Len()), nil)

		start := time.Now()
		records := p.runner.Run(ctx, docs[span.Start:span.End], workers)
		if err := ctx.Err(); err != nil {
			return p.fail(ctx, fmt.Errorf("chunk %d cancelled: %w", i, err))
		}

		path, err := p.out.WritePartition(i, records)
		if err != nil {
			return p.fail(ctx, fmt.Errorf("write partition %d: %w", i, err))
		}
		dur := time.Since(start)
		p.sink.Record(ctx, chunkName, FileTypeChunk, EventChunkEnd, path, "", &dur)
		l.Info("Chunk complete.", slog.Int("records", span.Len()), slog.Duration("duration", dur.Round(time.Millisecond)))
	}

	p.state = StateCleaningUp
	if err := p.job.Cleanup(); err != nil {
		return p.fail(ctx, fmt.Errorf("cleanup: %w", err))
	}
	p.sink.Record(ctx, p.job.ArchivePath, FileTypeArchive, EventCleanup, "", "", nil)

	p.state = StateDone
	p.logger.Info("Pipeline complete.")
	return nil
}

func (p *Pipeline) fail(ctx context.Context, err error) error {
	p.state = StateFailed
	p.sink.Record(ctx, p.job.ArchivePath, FileTypeArchive, EventError, "", err.Error(), nil)
	p.logger.Error("Pipeline failed.", "error", err)
	return err
}
