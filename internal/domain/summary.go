package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductAggregate is the per-product sales line of a run report.
type ProductAggregate struct {
	ProductName   string          `json:"product_name"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
}

// RunSummary is the end-of-run report. Counters come from the engine;
// the aggregates are read back from the sinks.
type RunSummary struct {
	RunID             string             `json:"run_id"`
	Status            RunStatus          `json:"status"`
	Reason            string             `json:"reason,omitempty"`
	StartTime         time.Time          `json:"start_time"`
	EndTime           time.Time          `json:"end_time"`
	DurationMs        int64              `json:"duration_ms"`
	Read              int                `json:"read"`
	Written           int                `json:"written"`
	Skipped           int                `json:"skipped"`
	FailedUnaccounted int                `json:"failed_unaccounted"`
	Commits           int                `json:"commits"`
	ProcessedOrders   int64              `json:"processed_orders"`
	ConfirmedWrites   int64              `json:"confirmed_writes"`
	TotalRevenue      decimal.Decimal    `json:"total_revenue"`
	Products          []ProductAggregate `json:"products"`
}
