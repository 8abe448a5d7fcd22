package sink

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/timmy/orderbatch/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultInsertBatchSize = 100

// OrdersSink writes chunks to the orders table.
type OrdersSink struct {
	db        *gorm.DB
	batchSize int
}

// NewOrdersSink creates a new OrdersSink.
// Parameters:
//   - db: GORM database handle.
// Returns:
//   - *OrdersSink: sink bound to db.
func NewOrdersSink(db *gorm.DB) *OrdersSink {
	return &OrdersSink{db: db, batchSize: defaultInsertBatchSize}
}

// Commit inserts the chunk in a single transaction. Rows already present for
// the same run, chunk and position are left untouched.
func (s *OrdersSink) Commit(ctx context.Context, chunk Chunk) error {
	if chunk.Len() == 0 {
		return nil
	}
	rows := make([]domain.OrderRecord, 0, chunk.Len())
	for i, o := range chunk.Orders {
		rows = append(rows, domain.OrderRecord{
			ID:           uuid.NewString(),
			RunID:        chunk.RunID,
			ChunkSeq:     chunk.Seq,
			ChunkPos:     i,
			OrderID:      o.OrderID,
			CustomerName: o.CustomerName,
			ProductName:  o.ProductName,
			Quantity:     o.Quantity,
			Price:        o.Price,
			TotalAmount:  o.TotalAmount,
			OrderDate:    o.OrderDate,
			ProcessedAt:  o.ProcessedAt,
			Status:       o.Status,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, s.batchSize).Error
	})
	if err != nil {
		return fmt.Errorf("failed to insert orders: %w", err)
	}
	return nil
}

// ProcessedOrdersSink writes chunks to the processed_orders table.
type ProcessedOrdersSink struct {
	db        *gorm.DB
	batchSize int
}

// NewProcessedOrdersSink creates a new ProcessedOrdersSink.
func NewProcessedOrdersSink(db *gorm.DB) *ProcessedOrdersSink {
	return &ProcessedOrdersSink{db: db, batchSize: defaultInsertBatchSize}
}

// Commit inserts one SUCCESS row per order in a single transaction.
func (s *ProcessedOrdersSink) Commit(ctx context.Context, chunk Chunk) error {
	if chunk.Len() == 0 {
		return nil
	}
	rows := make([]domain.ProcessedOrder, 0, chunk.Len())
	for i, o := range chunk.Orders {
		rows = append(rows, newProcessedOrder(chunk, i, o))
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, s.batchSize).Error
	})
	if err != nil {
		return fmt.Errorf("failed to insert processed orders: %w", err)
	}
	return nil
}

func newProcessedOrder(chunk Chunk, pos int, o domain.Order) domain.ProcessedOrder {
	return domain.ProcessedOrder{
		ID:               uuid.NewString(),
		RunID:            chunk.RunID,
		ChunkSeq:         chunk.Seq,
		ChunkPos:         pos,
		OriginalOrderID:  o.OrderID,
		CustomerName:     o.CustomerName,
		ProductName:      o.ProductName,
		Quantity:         o.Quantity,
		TotalAmount:      o.TotalAmount,
		ProcessingResult: domain.ProcessingResultSuccess,
		ProcessedAt:      o.ProcessedAt,
	}
}

var (
	_ Sink = (*OrdersSink)(nil)
	_ Sink = (*ProcessedOrdersSink)(nil)
)
