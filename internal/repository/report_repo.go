package repository

import (
	"context"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/timmy/orderbatch/internal/domain"
	"gorm.io/gorm"
)

// ReportRepository runs the read-only aggregate queries behind run reports.
// Every query is scoped to one run; an empty runID aggregates all runs.
type ReportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) scoped(ctx context.Context, model interface{}, runID string) *gorm.DB {
	query := r.db.WithContext(ctx).Model(model)
	if runID != "" {
		query = query.Where("run_id = ?", runID)
	}
	return query
}

// CountProcessedOrders counts orders rows with status PROCESSED.
func (r *ReportRepository) CountProcessedOrders(ctx context.Context, runID string) (int64, error) {
	var count int64
	err := r.scoped(ctx, &domain.OrderRecord{}, runID).
		Where("status = ?", domain.OrderStatusProcessed).
		Count(&count).Error
	return count, err
}

// CountConfirmedWrites counts processed_orders rows with result SUCCESS.
func (r *ReportRepository) CountConfirmedWrites(ctx context.Context, runID string) (int64, error) {
	var count int64
	err := r.scoped(ctx, &domain.ProcessedOrder{}, runID).
		Where("processing_result = ?", domain.ProcessingResultSuccess).
		Count(&count).Error
	return count, err
}

// amountScale is the scale of the total_amount columns.
const amountScale = 2

// processedAmount is one PROCESSED order as read back for aggregation.
type processedAmount struct {
	ProductName string
	Quantity    int64
	TotalAmount decimal.Decimal
}

// eachProcessedAmount streams the PROCESSED orders of a run. Amounts are
// summed in Go: SQLite stores decimal columns as REAL and SUM() would add
// them as floats.
func (r *ReportRepository) eachProcessedAmount(ctx context.Context, runID string, fn func(processedAmount)) error {
	rows, err := r.scoped(ctx, &domain.OrderRecord{}, runID).
		Where("status = ?", domain.OrderStatusProcessed).
		Select("product_name, quantity, total_amount").
		Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var row processedAmount
		if err := rows.Scan(&row.ProductName, &row.Quantity, &row.TotalAmount); err != nil {
			return err
		}
		row.TotalAmount = row.TotalAmount.Round(amountScale)
		fn(row)
	}
	return rows.Err()
}

// TotalRevenue sums total_amount of PROCESSED orders. No rows sum to zero.
func (r *ReportRepository) TotalRevenue(ctx context.Context, runID string) (decimal.Decimal, error) {
	total := decimal.Zero
	err := r.eachProcessedAmount(ctx, runID, func(row processedAmount) {
		total = total.Add(row.TotalAmount)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// ProductAggregates returns quantity and revenue per product, highest revenue
// first and product name as tie-breaker.
func (r *ReportRepository) ProductAggregates(ctx context.Context, runID string) ([]domain.ProductAggregate, error) {
	byName := make(map[string]*domain.ProductAggregate)
	err := r.eachProcessedAmount(ctx, runID, func(row processedAmount) {
		agg, ok := byName[row.ProductName]
		if !ok {
			agg = &domain.ProductAggregate{ProductName: row.ProductName, TotalRevenue: decimal.Zero}
			byName[row.ProductName] = agg
		}
		agg.TotalQuantity += row.Quantity
		agg.TotalRevenue = agg.TotalRevenue.Add(row.TotalAmount)
	})
	if err != nil {
		return nil, err
	}

	products := make([]domain.ProductAggregate, 0, len(byName))
	for _, agg := range byName {
		products = append(products, *agg)
	}
	slices.SortFunc(products, func(a, b domain.ProductAggregate) int {
		if c := b.TotalRevenue.Cmp(a.TotalRevenue); c != 0 {
			return c
		}
		return strings.Compare(a.ProductName, b.ProductName)
	})
	return products, nil
}
