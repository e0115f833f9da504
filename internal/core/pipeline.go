package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AriZeto/data-engineering-test-ArielZeto/internal/logging"
)

// RunObserver is notified once per finished run, successful or not.
type RunObserver interface {
	ObserveRun(r Report)
}

// Pipeline cleans a dataset: load, deduplicate, normalize cells, combine
// columns, write. Stages run strictly in that order and each consumes the
// previous stage's output.
type Pipeline struct {
	loader   *Loader
	writer   *Writer
	merge    ColumnMerge
	recorder RunRecorder
	observer RunObserver
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDelimiter sets the field delimiter for text sources and outputs.
func WithDelimiter(comma rune) Option {
	return func(p *Pipeline) {
		if comma != 0 {
			p.loader.Comma = comma
			p.writer.Comma = comma
		}
	}
}

// WithMaxFileSize sets the source size limit in bytes.
func WithMaxFileSize(n int64) Option {
	return func(p *Pipeline) { p.loader.MaxFileSize = n }
}

// WithRecorder stores every run report through r.
func WithRecorder(r RunRecorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithObserver reports every finished run to o.
func WithObserver(o RunObserver) Option {
	return func(p *Pipeline) { p.observer = o }
}

// NewPipeline creates a pipeline with comma-delimited I/O, the default size
// limit and the DateWhenSold merge.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		loader: NewLoader(',', DefaultMaxFileSize),
		writer: NewWriter(','),
		merge:  DateWhenSold,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run reads in, cleans it and writes the result to out.
//
// The returned report is filled as far as the run got. On failure out is left
// as it was: the writer only replaces it once the whole table is written.
// Load and write failures are *StageError values of kind ErrIO or ErrFormat.
func (p *Pipeline) Run(ctx context.Context, in, out string) (Report, error) {
	report := Report{
		RunID:     uuid.New().String(),
		Input:     in,
		Output:    out,
		StartedAt: time.Now(),
	}
	if name := SourceNameFromContext(ctx); name != "" {
		report.Input = name
	}
	ctx = logging.WithRunID(ctx, report.RunID)
	logger := logging.FromContext(ctx)

	logger.Info("run started", "input", report.Input, "output", out)

	err := p.run(ctx, in, out, &report)

	report.Duration = time.Since(report.StartedAt)
	if err != nil {
		report.Error = err.Error()
		logger.Error("run failed",
			"stage", FailedStage(err),
			"error", err,
			"duration_ms", report.Duration.Milliseconds(),
		)
	} else {
		logger.Info("run complete",
			"rows_read", report.RowsRead,
			"duplicates_removed", report.DuplicatesRemoved,
			"rows_written", report.RowsWritten,
			"duration_ms", report.Duration.Milliseconds(),
		)
	}

	p.finish(ctx, report)
	return report, err
}

func (p *Pipeline) run(ctx context.Context, in, out string, report *Report) error {
	logger := logging.FromContext(ctx)

	start := time.Now()
	t, err := p.loader.LoadFile(in)
	if err != nil {
		return err
	}
	report.RowsRead = t.Len()
	logger.Debug("stage complete", "stage", StageLoad, "rows", t.Len(),
		"columns", len(t.Columns), "duration_ms", time.Since(start).Milliseconds())

	t, err = p.Clean(ctx, t, report)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", StageWrite, err)
	}
	start = time.Now()
	if err := p.writer.WriteFile(out, t); err != nil {
		return err
	}
	report.RowsWritten = t.Len()
	logger.Debug("stage complete", "stage", StageWrite, "rows", t.Len(),
		"duration_ms", time.Since(start).Milliseconds())

	return nil
}

// Clean runs the in-memory stages on a loaded table and fills the matching
// report fields. The input table must not be used after the call.
func (p *Pipeline) Clean(ctx context.Context, t *Table, report *Report) (*Table, error) {
	logger := logging.FromContext(ctx)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", StageDeduplicate, err)
	}
	before := t.Len()
	t = Deduplicate(t)
	report.DuplicatesRemoved = before - t.Len()
	logger.Debug("stage complete", "stage", StageDeduplicate,
		"rows", t.Len(), "removed", report.DuplicatesRemoved)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", StageNormalize, err)
	}
	t, stats := NormalizeCells(t)
	report.CellsFilled = stats.Filled
	report.ZerosStripped = stats.ZerosStripped
	report.WhitespaceStripped = stats.WhitespaceStripped
	logger.Debug("stage complete", "stage", StageNormalize,
		"filled", stats.Filled,
		"zeros_stripped", stats.ZerosStripped,
		"whitespace_stripped", stats.WhitespaceStripped,
	)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", StageCombine, err)
	}
	t, combined := CombineColumns(t, p.merge)
	report.ColumnsCombined = combined
	if !combined {
		logger.Warn("source columns missing, nothing combined",
			"first", p.merge.First, "second", p.merge.Second)
	}

	report.Columns = t.Columns
	return t, nil
}

// finish hands the report to the recorder and observer. Recording uses a
// context detached from cancellation so cancelled runs are still stored.
func (p *Pipeline) finish(ctx context.Context, report Report) {
	if p.observer != nil {
		p.observer.ObserveRun(report)
	}
	if p.recorder == nil {
		return
	}

	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.recorder.Record(recCtx, report); err != nil {
		logging.FromContext(ctx).Warn("failed to record run", "error", err)
	}
}
