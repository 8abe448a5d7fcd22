package repository

import (
	"context"
	"errors"
	"time"

	"github.com/timmy/orderbatch/internal/domain"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// RunRepository handles batch run records.
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new RunRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *RunRepository: repository instance bound to db.
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run record.
func (r *RunRepository) Create(ctx context.Context, run *domain.BatchRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// GetByID retrieves a run by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: run ID.
// Returns:
//   - *domain.BatchRun: run record if found.
//   - error: ErrNotFound if no run has the ID.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*domain.BatchRun, error) {
	var run domain.BatchRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &run, nil
}

// UpdateProgress stores the counters reached at a chunk boundary.
func (r *RunRepository) UpdateProgress(ctx context.Context, id string, read, written, skipped, commits int) error {
	return r.db.WithContext(ctx).
		Model(&domain.BatchRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"read_count":   read,
			"write_count":  written,
			"skip_count":   skipped,
			"commit_count": commits,
		}).Error
}

// MarkRestarted sets a run back to STARTED before it is resumed.
func (r *RunRepository) MarkRestarted(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&domain.BatchRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       domain.RunStatusStarted,
			"reason":       "",
			"completed_at": nil,
		}).Error
}

// Complete stores the terminal status and final counters of a run.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - run: run record carrying ID, status, counters and reason.
//   - completedAt: end time of the run.
// Returns:
//   - error: non-nil if the update fails.
func (r *RunRepository) Complete(ctx context.Context, run *domain.BatchRun, completedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.BatchRun{}).
		Where("id = ?", run.ID).
		Updates(map[string]interface{}{
			"status":       run.Status,
			"read_count":   run.ReadCount,
			"write_count":  run.WriteCount,
			"skip_count":   run.SkipCount,
			"commit_count": run.CommitCount,
			"reason":       run.Reason,
			"completed_at": completedAt,
		}).Error
}

// List retrieves runs newest first, optionally filtered by status.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - status: status to filter by; empty means all.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
// Returns:
//   - []domain.BatchRun: matching runs.
//   - error: non-nil if the query fails.
func (r *RunRepository) List(ctx context.Context, status domain.RunStatus, limit, offset int) ([]domain.BatchRun, error) {
	var runs []domain.BatchRun
	query := r.db.WithContext(ctx)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.
		Order("started_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
