package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/orderbatch/internal/domain"
	"github.com/timmy/orderbatch/internal/engine"
	"github.com/timmy/orderbatch/internal/logger"
	"github.com/timmy/orderbatch/internal/processor"
	"github.com/timmy/orderbatch/internal/report"
	"github.com/timmy/orderbatch/internal/repository"
	"github.com/timmy/orderbatch/internal/source"
	"github.com/timmy/orderbatch/internal/source/csvfile"
)

// ErrRunFinished is returned when resuming a run that already completed.
var ErrRunFinished = errors.New("run already completed")

// BatchService runs the order pipeline and records each run.
type BatchService struct {
	runRepo   *repository.RunRepository
	chunkLog  *repository.ChunkLogRepository
	committer engine.Committer
	processor engine.Processor
	reporter  *report.Reporter
	logger    *logger.Logger
	cfg       engine.Config
	now       func() time.Time
}

// NewBatchService creates a new batch service.
func NewBatchService(
	runRepo *repository.RunRepository,
	chunkLog *repository.ChunkLogRepository,
	committer engine.Committer,
	proc engine.Processor,
	reporter *report.Reporter,
	log *logger.Logger,
	cfg engine.Config,
) *BatchService {
	return &BatchService{
		runRepo:   runRepo,
		chunkLog:  chunkLog,
		committer: committer,
		processor: proc,
		reporter:  reporter,
		logger:    log,
		cfg:       cfg,
		now:       time.Now,
	}
}

// log returns a logger from context if available, otherwise returns the default logger
func (s *BatchService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// RunOutcome is what a finished run hands back to its caller.
type RunOutcome struct {
	Result  *engine.Result
	Summary *domain.RunSummary
}

// Run starts a new run over the file at inputPath.
// Parameters:
//   - ctx: cancelling ctx fails the run between records.
//   - inputPath: CSV file with the order header.
// Returns:
//   - *RunOutcome: result and summary; nil only when the run never started.
//   - error: configuration error before start, or the run's fatal error.
func (s *BatchService) Run(ctx context.Context, inputPath string) (*RunOutcome, error) {
	src, err := openInput(inputPath)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	s.log(ctx).WithField(logger.FieldSource, src.GetSourceID()).
		Debugf("Input columns: %s", strings.Join(src.Header(), ","))

	run := &domain.BatchRun{
		ID:        uuid.NewString(),
		SourceID:  src.GetSourceID(),
		InputPath: inputPath,
		ChunkSize: s.cfg.ChunkSize,
		SkipLimit: s.cfg.SkipLimit,
		Status:    domain.RunStatusStarted,
		StartedAt: s.now(),
	}
	if err := s.runRepo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run record: %w", err)
	}

	rc := engine.NewRunContext(run.ID, run.SkipLimit)
	rc.StartTime = run.StartedAt
	return s.execute(ctx, run, rc, src, s.cfg)
}

// Resume continues a failed or interrupted run after its last committed chunk.
// A run without any committed chunk starts again from the first record.
func (s *BatchService) Resume(ctx context.Context, runID string) (*RunOutcome, error) {
	run, err := s.runRepo.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	if run.Status.IsSuccess() {
		return nil, fmt.Errorf("%w: %s is %s", ErrRunFinished, runID, run.Status)
	}

	src, err := openInput(run.InputPath)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var rc *engine.RunContext
	last, err := s.chunkLog.Last(ctx, runID)
	switch {
	case err == nil:
		rc = engine.RestoreRunContext(*last, run.SkipLimit, run.StartedAt)
	case errors.Is(err, repository.ErrNotFound):
		rc = engine.NewRunContext(runID, run.SkipLimit)
		rc.StartTime = run.StartedAt
	default:
		return nil, fmt.Errorf("failed to load checkpoint of %s: %w", runID, err)
	}

	if err := s.runRepo.MarkRestarted(ctx, runID); err != nil {
		return nil, fmt.Errorf("failed to reopen run %s: %w", runID, err)
	}

	cfg := s.cfg
	cfg.ChunkSize = run.ChunkSize
	cfg.SkipLimit = run.SkipLimit
	return s.execute(ctx, run, rc, src, cfg)
}

func (s *BatchService) execute(ctx context.Context, run *domain.BatchRun, rc *engine.RunContext, src source.Source, cfg engine.Config) (*RunOutcome, error) {
	ctx = logger.SetRunID(ctx, run.ID)
	s.log(ctx).WithFields(logger.Fields{
		"input":      run.InputPath,
		"chunk_size": cfg.ChunkSize,
		"skip_limit": cfg.SkipLimit,
	}).Info("Starting batch run")

	opts := []engine.Option{
		engine.WithExecutionLog(s.chunkLog),
		engine.WithListener(newRunRecorder(s.runRepo, run)),
	}
	if s.reporter != nil {
		opts = append(opts, engine.WithListener(s.reporter))
	}
	eng := engine.New(s.processor, s.committer, cfg, opts...)

	result, runErr := eng.Run(ctx, rc, src)
	outcome := &RunOutcome{Result: result}
	if s.reporter != nil {
		outcome.Summary, _ = s.reporter.Summary(run.ID)
	}
	return outcome, runErr
}

func openInput(path string) (*csvfile.Adapter, error) {
	src, err := csvfile.Open(path, csvfile.WithRequiredColumns(processor.Columns...))
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	return src, nil
}
