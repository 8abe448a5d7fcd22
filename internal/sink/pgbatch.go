package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/timmy/orderbatch/internal/domain"
)

// PoolConfig configures the pgx pool used by PGBatchSink.
type PoolConfig struct {
	URL      string
	MaxConns int32
}

// OpenPool creates a pgx pool for the given config.
func OpenPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgx config: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	return pool, nil
}

const createProcessedOrdersSQL = `
CREATE TABLE IF NOT EXISTS processed_orders (
	id                text PRIMARY KEY,
	run_id            text NOT NULL,
	chunk_seq         bigint NOT NULL,
	chunk_pos         bigint NOT NULL,
	original_order_id text NOT NULL,
	customer_name     text NOT NULL,
	product_name      text NOT NULL,
	quantity          bigint NOT NULL,
	total_amount      decimal(15,2) NOT NULL,
	processing_result text NOT NULL,
	processed_at      timestamptz NOT NULL,
	created_at        timestamptz
)`

const createProcessedOrdersIndexSQL = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_processed_orders_run_chunk_pos
	ON processed_orders (run_id, chunk_seq, chunk_pos)`

const insertProcessedOrderSQL = `
INSERT INTO processed_orders (
	id, run_id, chunk_seq, chunk_pos, original_order_id, customer_name,
	product_name, quantity, total_amount, processing_result, processed_at, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (run_id, chunk_seq, chunk_pos) DO NOTHING`

// PGBatchSink writes processed_orders rows through pgx, sending each chunk
// as a single batch inside one transaction.
type PGBatchSink struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPGBatchSink creates a new PGBatchSink.
func NewPGBatchSink(pool *pgxpool.Pool) *PGBatchSink {
	return &PGBatchSink{pool: pool, now: time.Now}
}

// EnsureSchema creates the processed_orders table and its chunk position
// index when missing.
func (s *PGBatchSink) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createProcessedOrdersSQL); err != nil {
		return fmt.Errorf("failed to create processed_orders: %w", err)
	}
	if _, err := s.pool.Exec(ctx, createProcessedOrdersIndexSQL); err != nil {
		return fmt.Errorf("failed to create processed_orders index: %w", err)
	}
	return nil
}

// Commit inserts the chunk as one pgx batch and commits the transaction.
func (s *PGBatchSink) Commit(ctx context.Context, chunk Chunk) error {
	if chunk.Len() == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	createdAt := s.now()
	batch := &pgx.Batch{}
	for i, o := range chunk.Orders {
		row := newProcessedOrder(chunk, i, o)
		batch.Queue(insertProcessedOrderSQL,
			row.ID, row.RunID, row.ChunkSeq, row.ChunkPos, row.OriginalOrderID,
			row.CustomerName, row.ProductName, row.Quantity, row.TotalAmount,
			string(row.ProcessingResult), row.ProcessedAt, createdAt,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to insert processed order %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit processed orders: %w", err)
	}
	return nil
}

const countConfirmedSQL = `
SELECT count(*) FROM processed_orders
WHERE run_id = $1 AND processing_result = $2`

// CountConfirmedWrites counts the SUCCESS rows written for runID.
func (s *PGBatchSink) CountConfirmedWrites(ctx context.Context, runID string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, countConfirmedSQL, runID, string(domain.ProcessingResultSuccess)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count processed orders: %w", err)
	}
	return n, nil
}

var _ Sink = (*PGBatchSink)(nil)
