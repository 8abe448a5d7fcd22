package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle status written to the orders sink.
type OrderStatus string

const (
	OrderStatusProcessed OrderStatus = "PROCESSED"
)

// ProcessingResult is the outcome recorded in the processed_orders sink.
type ProcessingResult string

const (
	ProcessingResultSuccess ProcessingResult = "SUCCESS"
)

// Order is a validated, canonical order produced from one input record.
type Order struct {
	OrderID      string          `json:"order_id"`
	CustomerName string          `json:"customer_name"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	OrderDate    time.Time       `json:"order_date"`
	ProcessedAt  time.Time       `json:"processed_at"`
	Status       OrderStatus     `json:"status"`
}

// OrderRecord is a row of the orders sink. RunID, ChunkSeq and ChunkPos
// identify the record's position in a run so a replayed chunk is a no-op.
type OrderRecord struct {
	ID           string          `gorm:"type:text;primaryKey" json:"id"`
	RunID        string          `gorm:"type:text;not null;uniqueIndex:idx_orders_run_chunk_pos,priority:1" json:"run_id"`
	ChunkSeq     int             `gorm:"not null;uniqueIndex:idx_orders_run_chunk_pos,priority:2" json:"chunk_seq"`
	ChunkPos     int             `gorm:"not null;uniqueIndex:idx_orders_run_chunk_pos,priority:3" json:"chunk_pos"`
	OrderID      string          `gorm:"type:text;not null;index" json:"order_id"`
	CustomerName string          `gorm:"type:text;not null" json:"customer_name"`
	ProductName  string          `gorm:"type:text;not null;index" json:"product_name"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	Price        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"price"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total_amount"`
	OrderDate    time.Time       `gorm:"not null" json:"order_date"`
	ProcessedAt  time.Time       `gorm:"not null" json:"processed_at"`
	Status       OrderStatus     `gorm:"type:text;not null;index" json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TableName returns the database table name for OrderRecord.
func (OrderRecord) TableName() string {
	return "orders"
}

// ProcessedOrder is a row of the processed_orders sink.
type ProcessedOrder struct {
	ID               string           `gorm:"type:text;primaryKey" json:"id"`
	RunID            string           `gorm:"type:text;not null;uniqueIndex:idx_processed_orders_run_chunk_pos,priority:1" json:"run_id"`
	ChunkSeq         int              `gorm:"not null;uniqueIndex:idx_processed_orders_run_chunk_pos,priority:2" json:"chunk_seq"`
	ChunkPos         int              `gorm:"not null;uniqueIndex:idx_processed_orders_run_chunk_pos,priority:3" json:"chunk_pos"`
	OriginalOrderID  string           `gorm:"type:text;not null;index" json:"original_order_id"`
	CustomerName     string           `gorm:"type:text;not null" json:"customer_name"`
	ProductName      string           `gorm:"type:text;not null" json:"product_name"`
	Quantity         int              `gorm:"not null" json:"quantity"`
	TotalAmount      decimal.Decimal  `gorm:"type:decimal(15,2);not null" json:"total_amount"`
	ProcessingResult ProcessingResult `gorm:"type:text;not null;index" json:"processing_result"`
	ProcessedAt      time.Time        `gorm:"not null" json:"processed_at"`
	CreatedAt        time.Time        `json:"created_at"`
}

// TableName returns the database table name for ProcessedOrder.
func (ProcessedOrder) TableName() string {
	return "processed_orders"
}
