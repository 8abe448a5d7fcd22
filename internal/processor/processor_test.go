package processor

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/timmy/orderbatch/internal/domain"
	"github.com/timmy/orderbatch/internal/source"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestProcessor() *Processor {
	return New(
		WithClock(func() time.Time { return fixedNow }),
		WithLocation(time.UTC),
	)
}

func record(values ...string) source.RawRecord {
	return source.NewRawRecord(2, Columns, values)
}

func valid() []string {
	return []string{"ORD001", "홍길동", "노트북", "2", "1500", "2024-01-15 10:30:00"}
}

func with(idx int, value string) []string {
	v := valid()
	v[idx] = value
	return v
}

func TestProcessValidRecord(t *testing.T) {
	p := newTestProcessor()

	order, err := p.Process(record("ORD001", " 홍길동", "노트북", "2", "1500.50", "2024-01-15 10:30:00"))
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if order.OrderID != "ORD001" || order.CustomerName != "홍길동" || order.ProductName != "노트북" {
		t.Errorf("identity fields = %+v", order)
	}
	if order.Quantity != 2 {
		t.Errorf("Quantity = %d, want 2", order.Quantity)
	}
	if !order.TotalAmount.Equal(decimal.RequireFromString("3001")) {
		t.Errorf("TotalAmount = %s, want 3001", order.TotalAmount)
	}
	if order.Status != domain.OrderStatusProcessed {
		t.Errorf("Status = %q", order.Status)
	}
	if !order.ProcessedAt.Equal(fixedNow) {
		t.Errorf("ProcessedAt = %v, want %v", order.ProcessedAt, fixedNow)
	}
	wantDate := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	if !order.OrderDate.Equal(wantDate) {
		t.Errorf("OrderDate = %v, want %v", order.OrderDate, wantDate)
	}
}

func TestProcessTotalAmount(t *testing.T) {
	tests := []struct {
		quantity, price, want string
	}{
		{"500", "1000", "500000"},
		{"2", "1500000", "3000000"},
		{"3", "19.99", "59.97"},
		{"1000", "1000000", "1000000000"},
	}

	p := newTestProcessor()
	for _, tt := range tests {
		order, err := p.Process(record("ORD001", "Kim", "Pen", tt.quantity, tt.price, "2024-01-15 10:30:00"))
		if err != nil {
			t.Fatalf("Process(%s x %s) returned error: %v", tt.quantity, tt.price, err)
		}
		if !order.TotalAmount.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("TotalAmount(%s x %s) = %s, want %s", tt.quantity, tt.price, order.TotalAmount, tt.want)
		}
	}
}

func TestProcessRejections(t *testing.T) {
	tests := []struct {
		name       string
		values     []string
		wantField  string
		wantReason string
	}{
		{"missing order id", with(0, ""), ColumnOrderID, "Order ID is required"},
		{"blank customer", with(1, "   "), ColumnCustomerName, "Customer name is required"},
		{"missing product", with(2, ""), ColumnProductName, "Product name is required"},
		{"quantity not a number", with(3, "abc"), ColumnQuantity, "Invalid quantity format: abc"},
		{"quantity decimal", with(3, "1.5"), ColumnQuantity, "Invalid quantity format: 1.5"},
		{"quantity zero", with(3, "0"), ColumnQuantity, "Quantity must be greater than 0"},
		{"quantity negative", with(3, "-4"), ColumnQuantity, "Quantity must be greater than 0"},
		{"quantity too large", with(3, "1001"), ColumnQuantity, "Quantity cannot exceed 1000"},
		{"price not a number", with(4, "12a"), ColumnPrice, "Invalid price format: 12a"},
		{"price zero", with(4, "0"), ColumnPrice, "Price must be greater than 0"},
		{"price too large", with(4, "1000000.01"), ColumnPrice, "Price cannot exceed 1,000,000"},
		{"date missing", with(5, ""), ColumnOrderDate, "Order date is required"},
		{"date wrong layout", with(5, "2024/01/15"), ColumnOrderDate, "Invalid date format. Expected: yyyy-MM-dd HH:mm:ss, Actual: 2024/01/15"},
		{"date in future", with(5, "2024-06-01 12:00:01"), ColumnOrderDate, "Order date cannot be in the future"},
	}

	p := newTestProcessor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Process(record(tt.values...))
			var rej *Rejection
			if !errors.As(err, &rej) {
				t.Fatalf("error = %v, want *Rejection", err)
			}
			if rej.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", rej.Field, tt.wantField)
			}
			if rej.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", rej.Reason, tt.wantReason)
			}
		})
	}
}

func TestProcessFirstFailureWins(t *testing.T) {
	p := newTestProcessor()

	_, err := p.Process(record("", "", "", "x", "y", "z"))
	var rej *Rejection
	if !errors.As(err, &rej) || rej.Reason != "Order ID is required" {
		t.Fatalf("error = %v, want order id rejection", err)
	}

	_, err = p.Process(record("ORD1", "Kim", "Pen", "0", "-1", ""))
	if !errors.As(err, &rej) || rej.Reason != "Quantity must be greater than 0" {
		t.Fatalf("error = %v, want quantity rejection", err)
	}
}

func TestProcessBoundaries(t *testing.T) {
	p := newTestProcessor()

	if _, err := p.Process(record(with(3, "1000")...)); err != nil {
		t.Errorf("quantity 1000 rejected: %v", err)
	}
	if _, err := p.Process(record(with(4, "1000000")...)); err != nil {
		t.Errorf("price 1,000,000 rejected: %v", err)
	}
	if _, err := p.Process(record(with(5, "2024-06-01 12:00:00")...)); err != nil {
		t.Errorf("order date equal to now rejected: %v", err)
	}
}

func TestProcessConcurrentUse(t *testing.T) {
	p := newTestProcessor()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Process(record(valid()...)); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Process error: %v", err)
	}
}
