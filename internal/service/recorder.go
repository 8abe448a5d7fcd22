package service

import (
	"context"
	"time"

	"github.com/timmy/orderbatch/internal/domain"
	"github.com/timmy/orderbatch/internal/engine"
	"github.com/timmy/orderbatch/internal/logger"
	"github.com/timmy/orderbatch/internal/repository"
)

// runRecorder mirrors engine progress into the batch_runs table.
type runRecorder struct {
	repo *repository.RunRepository
	run  *domain.BatchRun
}

func newRunRecorder(repo *repository.RunRepository, run *domain.BatchRun) *runRecorder {
	return &runRecorder{repo: repo, run: run}
}

func (r *runRecorder) OnRunStart(context.Context, string, time.Time) {}

func (r *runRecorder) OnStepBoundary(ctx context.Context, p engine.Progress) {
	if err := r.repo.UpdateProgress(ctx, r.run.ID, p.Read, p.Written, p.Skipped, p.Commits); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to record run progress")
	}
}

// OnRunEnd stores the final status even when the run's context was cancelled.
func (r *runRecorder) OnRunEnd(ctx context.Context, result *engine.Result) {
	r.run.Status = result.Status
	r.run.Reason = result.Reason
	r.run.ReadCount = result.Read
	r.run.WriteCount = result.Written
	r.run.SkipCount = result.Skipped
	r.run.CommitCount = result.Commits
	end := result.EndTime
	r.run.CompletedAt = &end

	if err := r.repo.Complete(context.WithoutCancel(ctx), r.run, result.EndTime); err != nil {
		logger.FromContext(ctx).WithError(err).Error("Failed to record run result")
	}
}

var _ engine.Listener = (*runRecorder)(nil)
