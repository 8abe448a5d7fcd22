package service

import (
	"context"
	"errors"

	"github.com/timmy/orderbatch/internal/domain"
	"github.com/timmy/orderbatch/internal/report"
	"github.com/timmy/orderbatch/internal/repository"
)

// ErrArchiveDisabled is returned when archived reports are requested but no
// archive is configured.
var ErrArchiveDisabled = errors.New("report archive is not configured")

// RunQueryService answers read-only questions about past runs.
type RunQueryService struct {
	runRepo  *repository.RunRepository
	chunkLog *repository.ChunkLogRepository
	stats    report.StatsQuerier
	archive  *report.ArchivePublisher
}

// NewRunQueryService creates a new RunQueryService. archive may be nil.
func NewRunQueryService(
	runRepo *repository.RunRepository,
	chunkLog *repository.ChunkLogRepository,
	stats report.StatsQuerier,
	archive *report.ArchivePublisher,
) *RunQueryService {
	return &RunQueryService{
		runRepo:  runRepo,
		chunkLog: chunkLog,
		stats:    stats,
		archive:  archive,
	}
}

// ListRuns returns runs newest first.
func (s *RunQueryService) ListRuns(ctx context.Context, status domain.RunStatus, limit, offset int) ([]domain.BatchRun, error) {
	return s.runRepo.List(ctx, status, limit, offset)
}

// GetRun returns a single run.
func (s *RunQueryService) GetRun(ctx context.Context, id string) (*domain.BatchRun, error) {
	return s.runRepo.GetByID(ctx, id)
}

// ListChunks returns the execution log of a run.
func (s *RunQueryService) ListChunks(ctx context.Context, id string) ([]domain.ChunkExecution, error) {
	if _, err := s.runRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.chunkLog.ListByRun(ctx, id)
}

// Summary rebuilds a run's report from its record and the sinks.
func (s *RunQueryService) Summary(ctx context.Context, id string) (*domain.RunSummary, error) {
	run, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	summary := &domain.RunSummary{
		RunID:             run.ID,
		Status:            run.Status,
		Reason:            run.Reason,
		StartTime:         run.StartedAt,
		Read:              run.ReadCount,
		Written:           run.WriteCount,
		Skipped:           run.SkipCount,
		FailedUnaccounted: run.ReadCount - run.WriteCount - run.SkipCount,
		Commits:           run.CommitCount,
	}
	if run.CompletedAt != nil {
		summary.EndTime = *run.CompletedAt
		summary.DurationMs = run.CompletedAt.Sub(run.StartedAt).Milliseconds()
	}
	report.FillAggregates(ctx, s.stats, summary)
	return summary, nil
}

// ArchivedReport downloads the summary archived when the run finished.
func (s *RunQueryService) ArchivedReport(ctx context.Context, id string) (*domain.RunSummary, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	return s.archive.Fetch(ctx, id)
}
