package sink

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/orderbatch/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testChunk(seq int, ids ...string) Chunk {
	orders := make([]domain.Order, len(ids))
	for i, id := range ids {
		price := decimal.NewFromInt(1000)
		orders[i] = domain.Order{
			OrderID:      id,
			CustomerName: "Kim",
			ProductName:  "Pen",
			Quantity:     2,
			Price:        price,
			TotalAmount:  price.Mul(decimal.NewFromInt(2)),
			OrderDate:    time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
			ProcessedAt:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			Status:       domain.OrderStatusProcessed,
		}
	}
	return Chunk{RunID: "run-1", Seq: seq, Orders: orders}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "sink.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.OrderRecord{}, &domain.ProcessedOrder{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestSetCommitsInOrder(t *testing.T) {
	var calls []string
	record := func(name string) Sink {
		return Func(func(_ context.Context, c Chunk) error {
			calls = append(calls, name)
			assert.Equal(t, 2, c.Len())
			return nil
		})
	}
	set := NewSet().Add(NameOrders, record("a")).Add(NameProcessedOrders, record("b"))

	require.NoError(t, set.Commit(context.Background(), testChunk(1, "ORD1", "ORD2")))
	assert.Equal(t, []string{"a", "b"}, calls)
	assert.Equal(t, []string{NameOrders, NameProcessedOrders}, set.Names())
}

func TestSetPartialCommit(t *testing.T) {
	boom := errors.New("disk full")
	var secondCalled bool
	set := NewSet().
		Add(NameOrders, Func(func(context.Context, Chunk) error { return nil })).
		Add(NameProcessedOrders, Func(func(context.Context, Chunk) error {
			secondCalled = true
			return boom
		}))

	err := set.Commit(context.Background(), testChunk(3, "ORD1"))

	var commitErr *CommitError
	require.ErrorAs(t, err, &commitErr)
	assert.True(t, secondCalled)
	assert.True(t, commitErr.Partial())
	assert.Equal(t, 3, commitErr.Seq)
	assert.Equal(t, NameProcessedOrders, commitErr.Sink)
	assert.Equal(t, []string{NameOrders}, commitErr.Committed)
	assert.ErrorIs(t, err, boom)
}

func TestSetFirstSinkFailureIsNotPartial(t *testing.T) {
	var secondCalled bool
	set := NewSet().
		Add(NameOrders, Func(func(context.Context, Chunk) error { return errors.New("down") })).
		Add(NameProcessedOrders, Func(func(context.Context, Chunk) error {
			secondCalled = true
			return nil
		}))

	err := set.Commit(context.Background(), testChunk(1, "ORD1"))

	var commitErr *CommitError
	require.ErrorAs(t, err, &commitErr)
	assert.False(t, commitErr.Partial())
	assert.False(t, secondCalled, "later sinks must not run after a failure")
}

func TestSetEmptyChunkIsNoop(t *testing.T) {
	set := NewSet().Add(NameOrders, Func(func(context.Context, Chunk) error {
		t.Fatal("sink called for empty chunk")
		return nil
	}))
	require.NoError(t, set.Commit(context.Background(), Chunk{RunID: "run-1", Seq: 1}))
}

func TestGormSinksWriteRows(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	chunk := testChunk(1, "ORD1", "ORD2", "ORD3")

	require.NoError(t, NewOrdersSink(db).Commit(ctx, chunk))
	require.NoError(t, NewProcessedOrdersSink(db).Commit(ctx, chunk))

	var orders []domain.OrderRecord
	require.NoError(t, db.Order("chunk_pos").Find(&orders).Error)
	require.Len(t, orders, 3)
	assert.Equal(t, "ORD1", orders[0].OrderID)
	assert.Equal(t, 2, orders[2].ChunkPos)
	assert.Equal(t, domain.OrderStatusProcessed, orders[0].Status)
	assert.True(t, orders[0].TotalAmount.Equal(decimal.NewFromInt(2000)))

	var processed []domain.ProcessedOrder
	require.NoError(t, db.Order("chunk_pos").Find(&processed).Error)
	require.Len(t, processed, 3)
	assert.Equal(t, "ORD2", processed[1].OriginalOrderID)
	assert.Equal(t, domain.ProcessingResultSuccess, processed[1].ProcessingResult)
}

func TestGormSinksReplayIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	chunk := testChunk(2, "ORD1", "ORD2")
	orders := NewOrdersSink(db)
	processed := NewProcessedOrdersSink(db)

	for i := 0; i < 2; i++ {
		require.NoError(t, orders.Commit(ctx, chunk))
		require.NoError(t, processed.Commit(ctx, chunk))
	}

	var n int64
	require.NoError(t, db.Model(&domain.OrderRecord{}).Count(&n).Error)
	assert.EqualValues(t, 2, n)
	require.NoError(t, db.Model(&domain.ProcessedOrder{}).Count(&n).Error)
	assert.EqualValues(t, 2, n)
}

func TestGormSinkFailureRollsBack(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Migrator().DropTable(&domain.ProcessedOrder{}))

	err := NewProcessedOrdersSink(db).Commit(context.Background(), testChunk(1, "ORD1"))
	require.Error(t, err)
}
