// Package engine runs the chunk-oriented read/validate/commit loop.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/orderbatch/internal/domain"
	"github.com/timmy/orderbatch/internal/logger"
	"github.com/timmy/orderbatch/internal/processor"
	"github.com/timmy/orderbatch/internal/sink"
	"github.com/timmy/orderbatch/internal/source"
	"golang.org/x/sync/errgroup"
)

// Processor turns a raw record into an order. A *processor.Rejection error
// skips the record; any other error fails the run.
type Processor interface {
	Process(rec source.RawRecord) (domain.Order, error)
}

// Committer commits a chunk to every sink. *sink.Set implements it.
type Committer interface {
	Commit(ctx context.Context, chunk sink.Chunk) error
}

// ExecutionLog stores one entry per committed chunk.
type ExecutionLog interface {
	Append(ctx context.Context, exec *domain.ChunkExecution) error
}

// Listener observes a run. Listener methods run on the engine goroutine.
type Listener interface {
	OnRunStart(ctx context.Context, runID string, start time.Time)
	OnStepBoundary(ctx context.Context, p Progress)
	OnRunEnd(ctx context.Context, result *Result)
}

// Option configures an Engine.
type Option func(*Engine)

// WithListener registers a run listener.
func WithListener(l Listener) Option {
	return func(e *Engine) {
		e.listeners = append(e.listeners, l)
	}
}

// WithExecutionLog enables the per-chunk execution log used for resume.
func WithExecutionLog(log ExecutionLog) Option {
	return func(e *Engine) {
		e.execLog = log
	}
}

// WithClock replaces the clock used for run and commit timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Engine executes runs. It keeps no per-run state, so one Engine can serve
// any number of sequential or independent runs.
type Engine struct {
	proc      Processor
	committer Committer
	cfg       Config
	execLog   ExecutionLog
	listeners []Listener
	now       func() time.Time
}

// New creates an Engine.
// Parameters:
//   - proc: record validator/transformer.
//   - committer: destination for committed chunks.
//   - cfg: chunk size, skip limit and validation parallelism.
//   - opts: listeners, execution log, clock.
// Returns:
//   - *Engine: engine ready to Run.
func New(proc Processor, committer Committer, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		proc:      proc,
		committer: committer,
		cfg:       cfg.normalized(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run pulls records from src until it is exhausted or the run fails.
// Parameters:
//   - ctx: cancelling ctx fails the run between records.
//   - rc: per-run context, fresh or restored from a checkpoint.
//   - src: record source positioned at the start of the input.
// Returns:
//   - *Result: final status and counters, never nil.
//   - error: the fatal error for FAILED runs, nil otherwise.
func (e *Engine) Run(ctx context.Context, rc *RunContext, src source.Source) (*Result, error) {
	if rc.StartTime.IsZero() {
		rc.StartTime = e.now()
	}
	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldRunID:     rc.RunID,
		logger.FieldComponent: "engine",
		logger.FieldSource:    src.GetSourceID(),
	})

	for _, l := range e.listeners {
		l.OnRunStart(ctx, rc.RunID, rc.StartTime)
	}
	logger.CtxInfo(ctx, "Run started: chunk_size=%d skip_limit=%d workers=%d resumed=%v",
		e.cfg.ChunkSize, rc.Skips.Limit, e.cfg.ValidateWorkers, rc.Resumed())

	r := &run{engine: e, rc: rc, src: src}
	err := r.execute(ctx)

	result := e.finish(rc, err)
	e.logResult(ctx, result)
	for _, l := range e.listeners {
		l.OnRunEnd(ctx, result)
	}
	return result, err
}

func (e *Engine) finish(rc *RunContext, err error) *Result {
	counters := rc.Counters()
	result := &Result{
		RunID:             rc.RunID,
		Counters:          counters,
		FailedUnaccounted: counters.Read - counters.Written - counters.Skipped,
		LastSkipReason:    rc.Skips.LastReason,
		Resumed:           rc.Resumed(),
		StartTime:         rc.StartTime,
		EndTime:           e.now(),
	}
	switch {
	case err != nil:
		result.Status = domain.RunStatusFailed
		result.Err = err
		result.Reason = err.Error()
	case counters.Skipped > 0:
		result.Status = domain.RunStatusCompletedWithSkips
	default:
		result.Status = domain.RunStatusCompleted
	}
	return result
}

func (e *Engine) logResult(ctx context.Context, result *Result) {
	entry := logger.With(logger.Fields{
		logger.FieldDurationMs: result.Duration().Milliseconds(),
		"commits":              result.Commits,
		"failed":               result.FailedUnaccounted,
	}).WithCounters(result.Read, result.Written, result.Skipped).WithStatus(string(result.Status))

	if result.Err != nil {
		entry.Error(ctx, "Run failed: %s", result.Reason)
		return
	}
	entry.Info(ctx, "Run finished: read=%d write=%d skip=%d commit=%d failed=%d",
		result.Read, result.Written, result.Skipped, result.Commits, result.FailedUnaccounted)
}

// item is one record pulled from the source together with its validation outcome.
type item struct {
	rec     source.RawRecord
	readErr *source.RecordError
	order   domain.Order
	procErr error
}

// run is the mutable state of a single Run call.
type run struct {
	engine *Engine
	rc     *RunContext
	src    source.Source
	buf    []domain.Order
	state  State
}

func (r *run) setState(ctx context.Context, s State) {
	if r.state == s || r.state.Terminal() {
		return
	}
	logger.CtxDebug(ctx, "State %s -> %s", r.state, s)
	r.state = s
}

func (r *run) execute(ctx context.Context) error {
	if r.rc.Read > 0 {
		if err := r.fastForward(ctx); err != nil {
			r.setState(ctx, StateAborted)
			return err
		}
	}

	cfg := r.engine.cfg
	r.buf = make([]domain.Order, 0, cfg.ChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			r.setState(ctx, StateAborted)
			return fmt.Errorf("run cancelled: %w", err)
		}

		r.setState(ctx, StateReading)
		window := 1
		if cfg.ValidateWorkers > 1 {
			window = cfg.ChunkSize - len(r.buf)
		}
		items, exhausted, readErr := r.readWindow(ctx, window)
		r.validate(items)

		for i := range items {
			if err := r.classify(ctx, &items[i]); err != nil {
				r.setState(ctx, StateAborted)
				return err
			}
			if len(r.buf) == cfg.ChunkSize {
				if err := r.commit(ctx); err != nil {
					return err
				}
			}
		}

		if readErr != nil {
			r.setState(ctx, StateAborted)
			return readErr
		}
		if exhausted {
			if len(r.buf) > 0 {
				if err := r.commit(ctx); err != nil {
					return err
				}
			}
			r.setState(ctx, StateDone)
			return nil
		}
	}
}

// fastForward discards the records a restored run has already accounted for.
func (r *run) fastForward(ctx context.Context) error {
	logger.CtxInfo(ctx, "Resuming after chunk %d: skipping %d records", r.rc.Seq, r.rc.Read)
	for i := 0; i < r.rc.Read; i++ {
		_, ok, err := r.src.Next(ctx)
		var recErr *source.RecordError
		if err != nil && !errors.As(err, &recErr) {
			return fmt.Errorf("failed to skip to checkpoint: %w", err)
		}
		if err == nil && !ok {
			return fmt.Errorf("%w: read %d of %d", ErrCheckpointBeyondInput, i, r.rc.Read)
		}
	}
	return nil
}

// readWindow pulls up to n records. A fatal read error ends the window and
// is returned after the records read before it.
func (r *run) readWindow(ctx context.Context, n int) ([]item, bool, error) {
	items := make([]item, 0, n)
	for len(items) < n {
		rec, ok, err := r.src.Next(ctx)
		if err != nil {
			var recErr *source.RecordError
			if errors.As(err, &recErr) {
				items = append(items, item{readErr: recErr})
				continue
			}
			return items, false, fmt.Errorf("failed to read record: %w", err)
		}
		if !ok {
			return items, true, nil
		}
		items = append(items, item{rec: rec})
	}
	return items, false, nil
}

// validate runs the processor over the window, in parallel when configured.
// Outcomes are stored on the items and classified later in input order.
func (r *run) validate(items []item) {
	workers := r.engine.cfg.ValidateWorkers
	if workers <= 1 || len(items) <= 1 {
		for i := range items {
			if items[i].readErr == nil {
				items[i].order, items[i].procErr = r.engine.proc.Process(items[i].rec)
			}
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range items {
		if items[i].readErr != nil {
			continue
		}
		it := &items[i]
		g.Go(func() error {
			it.order, it.procErr = r.engine.proc.Process(it.rec)
			return nil
		})
	}
	_ = g.Wait()
}

// classify accounts for one record in input order: buffer it, skip it or fail.
func (r *run) classify(ctx context.Context, it *item) error {
	r.rc.Read++

	var reason string
	switch {
	case it.readErr != nil:
		reason = it.readErr.Error()
	case it.procErr != nil:
		var rej *processor.Rejection
		if !errors.As(it.procErr, &rej) {
			return fmt.Errorf("failed to process record at line %d: %w", it.rec.Line(), it.procErr)
		}
		reason = rej.Reason
	default:
		r.setState(ctx, StateValid)
		r.buf = append(r.buf, it.order)
		return nil
	}

	r.setState(ctx, StateSkipped)
	skips := &r.rc.Skips
	exceeded := skips.record(reason)
	logger.With(logger.Fields{logger.FieldCount: skips.Count}).
		Warn(ctx, "Record skipped (%d/%d): %s", skips.Count, skips.Limit, reason)
	if exceeded {
		return &SkipLimitExceededError{
			Limit:      skips.Limit,
			Count:      skips.Count,
			LastReason: skips.LastReason,
		}
	}
	return nil
}

// commit hands the buffered orders to the committer as the next chunk and
// records the commit in the execution log.
func (r *run) commit(ctx context.Context) error {
	r.setState(ctx, StateCommitting)
	seq := r.rc.Seq + 1
	chunkCtx := logger.SetChunkSeq(ctx, seq)
	start := time.Now()

	orders := make([]domain.Order, len(r.buf))
	copy(orders, r.buf)
	chunk := sink.Chunk{RunID: r.rc.RunID, Seq: seq, Orders: orders}

	if err := r.engine.committer.Commit(chunkCtx, chunk); err != nil {
		r.setState(chunkCtx, StateChunkFailed)
		r.setState(chunkCtx, StateAborted)
		return err
	}

	r.rc.Seq = seq
	r.rc.Written += len(orders)
	r.buf = r.buf[:0]
	r.setState(chunkCtx, StateCommitted)

	if log := r.engine.execLog; log != nil {
		exec := &domain.ChunkExecution{
			RunID:          r.rc.RunID,
			Seq:            seq,
			Size:           len(orders),
			ReadCount:      r.rc.Read,
			WriteCount:     r.rc.Written,
			SkipCount:      r.rc.Skips.Count,
			LastSkipReason: r.rc.Skips.LastReason,
			CommittedAt:    r.engine.now(),
		}
		if err := log.Append(chunkCtx, exec); err != nil {
			r.setState(chunkCtx, StateAborted)
			return fmt.Errorf("%w: chunk %d: %v", ErrExecutionLog, seq, err)
		}
	}

	counters := r.rc.Counters()
	logger.With(logger.Fields{logger.FieldCount: len(orders)}).
		WithDuration(time.Since(start).Milliseconds()).
		WithCounters(counters.Read, counters.Written, counters.Skipped).
		Info(chunkCtx, "Chunk %d committed", seq)

	progress := Progress{
		RunID:     r.rc.RunID,
		Seq:       seq,
		ChunkSize: len(orders),
		Counters:  counters,
	}
	for _, l := range r.engine.listeners {
		l.OnStepBoundary(chunkCtx, progress)
	}
	return nil
}
