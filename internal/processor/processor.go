// Package processor validates raw order records and turns them into
// canonical orders.
package processor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/timmy/orderbatch/internal/domain"
	"github.com/timmy/orderbatch/internal/source"
)

// Input column names.
const (
	ColumnOrderID      = "order_id"
	ColumnCustomerName = "customer_name"
	ColumnProductName  = "product_name"
	ColumnQuantity     = "quantity"
	ColumnPrice        = "price"
	ColumnOrderDate    = "order_date"
)

// Columns lists the input columns in file order.
var Columns = []string{
	ColumnOrderID,
	ColumnCustomerName,
	ColumnProductName,
	ColumnQuantity,
	ColumnPrice,
	ColumnOrderDate,
}

// DateLayout is the accepted order_date layout (yyyy-MM-dd HH:mm:ss).
const DateLayout = "2006-01-02 15:04:05"

const (
	MaxQuantity = 1000
)

// MaxPrice is the largest accepted unit price.
var MaxPrice = decimal.NewFromInt(1_000_000)

// Rejection explains why a record was not turned into an Order.
// Reason is the human-readable message recorded in skip accounting.
type Rejection struct {
	Field  string
	Reason string
}

func (r *Rejection) Error() string {
	return r.Reason
}

func reject(field, format string, args ...interface{}) *Rejection {
	return &Rejection{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// identity holds the text fields checked first, in rule order.
type identity struct {
	OrderID      string `validate:"required"`
	CustomerName string `validate:"required"`
	ProductName  string `validate:"required"`
}

var identityMessages = map[string]struct {
	column string
	reason string
}{
	"OrderID":      {ColumnOrderID, "Order ID is required"},
	"CustomerName": {ColumnCustomerName, "Customer name is required"},
	"ProductName":  {ColumnProductName, "Product name is required"},
}

// Option configures a Processor.
type Option func(*Processor)

// WithClock replaces the wall clock used for processed_at and the
// future-date check.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		p.now = now
	}
}

// WithLocation sets the time zone order dates are interpreted in.
// Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(p *Processor) {
		p.loc = loc
	}
}

// Processor validates and transforms records. It holds no per-record state
// and is safe for concurrent use.
type Processor struct {
	validate *validator.Validate
	now      func() time.Time
	loc      *time.Location
}

// New creates a Processor.
func New(opts ...Option) *Processor {
	p := &Processor{
		validate: validator.New(),
		now:      time.Now,
		loc:      time.Local,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process applies the validation rules in order and returns the first
// failure as a *Rejection, or the canonical Order.
// Parameters:
//   - rec: raw input record.
// Returns:
//   - domain.Order: transformed order with total, status and processed_at set.
//   - error: *Rejection when the record is invalid.
func (p *Processor) Process(rec source.RawRecord) (domain.Order, error) {
	id := identity{
		OrderID:      strings.TrimSpace(rec.Get(ColumnOrderID)),
		CustomerName: strings.TrimSpace(rec.Get(ColumnCustomerName)),
		ProductName:  strings.TrimSpace(rec.Get(ColumnProductName)),
	}
	if rej := p.checkIdentity(id); rej != nil {
		return domain.Order{}, rej
	}

	quantity, rej := p.parseQuantity(rec.Get(ColumnQuantity))
	if rej != nil {
		return domain.Order{}, rej
	}

	price, rej := p.parsePrice(rec.Get(ColumnPrice))
	if rej != nil {
		return domain.Order{}, rej
	}

	now := p.now()
	orderDate, rej := p.parseOrderDate(rec.Get(ColumnOrderDate), now)
	if rej != nil {
		return domain.Order{}, rej
	}

	return domain.Order{
		OrderID:      id.OrderID,
		CustomerName: id.CustomerName,
		ProductName:  id.ProductName,
		Quantity:     quantity,
		Price:        price,
		TotalAmount:  price.Mul(decimal.NewFromInt(int64(quantity))),
		OrderDate:    orderDate,
		ProcessedAt:  now,
		Status:       domain.OrderStatusProcessed,
	}, nil
}

func (p *Processor) checkIdentity(id identity) *Rejection {
	err := p.validate.Struct(id)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return reject(ColumnOrderID, "Invalid record: %v", err)
	}
	// Errors are reported in struct field order, which is the rule order.
	msg := identityMessages[errs[0].StructField()]
	return &Rejection{Field: msg.column, Reason: msg.reason}
}

func (p *Processor) parseQuantity(raw string) (int, *Rejection) {
	quantity, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, reject(ColumnQuantity, "Invalid quantity format: %s", raw)
	}
	if p.validate.Var(quantity, "gt=0") != nil {
		return 0, reject(ColumnQuantity, "Quantity must be greater than 0")
	}
	if p.validate.Var(quantity, "lte="+strconv.Itoa(MaxQuantity)) != nil {
		return 0, reject(ColumnQuantity, "Quantity cannot exceed 1000")
	}
	return quantity, nil
}

func (p *Processor) parsePrice(raw string) (decimal.Decimal, *Rejection) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, reject(ColumnPrice, "Invalid price format: %s", raw)
	}
	if !price.IsPositive() {
		return decimal.Decimal{}, reject(ColumnPrice, "Price must be greater than 0")
	}
	if price.GreaterThan(MaxPrice) {
		return decimal.Decimal{}, reject(ColumnPrice, "Price cannot exceed 1,000,000")
	}
	return price, nil
}

func (p *Processor) parseOrderDate(raw string, now time.Time) (time.Time, *Rejection) {
	trimmed := strings.TrimSpace(raw)
	if p.validate.Var(trimmed, "required") != nil {
		return time.Time{}, reject(ColumnOrderDate, "Order date is required")
	}
	if p.validate.Var(trimmed, "datetime="+DateLayout) != nil {
		return time.Time{}, reject(ColumnOrderDate,
			"Invalid date format. Expected: yyyy-MM-dd HH:mm:ss, Actual: %s", raw)
	}
	orderDate, err := time.ParseInLocation(DateLayout, trimmed, p.loc)
	if err != nil {
		return time.Time{}, reject(ColumnOrderDate,
			"Invalid date format. Expected: yyyy-MM-dd HH:mm:ss, Actual: %s", raw)
	}
	if orderDate.After(now) {
		return time.Time{}, reject(ColumnOrderDate, "Order date cannot be in the future")
	}
	return orderDate, nil
}
