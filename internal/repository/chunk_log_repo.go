package repository

import (
	"context"
	"errors"

	"github.com/timmy/orderbatch/internal/domain"
	"gorm.io/gorm"
)

// ChunkLogRepository is the append-only chunk execution log.
type ChunkLogRepository struct {
	db *gorm.DB
}

// NewChunkLogRepository creates a new ChunkLogRepository.
func NewChunkLogRepository(db *gorm.DB) *ChunkLogRepository {
	return &ChunkLogRepository{db: db}
}

// Append inserts one execution entry. Entries are never updated.
func (r *ChunkLogRepository) Append(ctx context.Context, exec *domain.ChunkExecution) error {
	return r.db.WithContext(ctx).Create(exec).Error
}

// Last returns the most recent entry of a run.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - runID: run ID.
// Returns:
//   - *domain.ChunkExecution: entry with the highest sequence number.
//   - error: ErrNotFound if the run has no committed chunk.
func (r *ChunkLogRepository) Last(ctx context.Context, runID string) (*domain.ChunkExecution, error) {
	var exec domain.ChunkExecution
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("seq DESC").
		First(&exec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &exec, nil
}

// ListByRun returns a run's entries in commit order.
func (r *ChunkLogRepository) ListByRun(ctx context.Context, runID string) ([]domain.ChunkExecution, error) {
	var execs []domain.ChunkExecution
	if err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("seq ASC").
		Find(&execs).Error; err != nil {
		return nil, err
	}
	return execs, nil
}
