package csvfile

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// SampleHeader is the header of the sample order file.
var SampleHeader = []string{"order_id", "customer_name", "product_name", "quantity", "price", "order_date"}

// SampleRows are the records written by WriteSample.
var SampleRows = [][]string{
	{"ORD001", "홍길동", "노트북", "2", "1500000", "2024-01-15 10:30:00"},
	{"ORD002", "김철수", "스마트폰", "1", "1200000", "2024-01-16 14:20:00"},
	{"ORD003", "이영희", "태블릿", "3", "800000", "2024-01-17 09:15:00"},
	{"ORD004", "박지성", "헤드폰", "5", "200000", "2024-01-18 16:45:00"},
	{"ORD005", "손흥민", "키보드", "5", "150000", "2024-01-19 11:10:00"},
	{"ORD006", "김민재", "마우스", "2", "50000", "2024-01-20 13:25:00"},
	{"ORD007", "김연아", "모니터", "1", "300000", "2024-01-21 15:30:00"},
	{"ORD008", "류현진", "의자", "10", "300000", "2023-01-22 10:00:00"},
}

// WriteSample writes the sample order file to path, creating parent
// directories as needed.
func WriteSample(path string) error {
	return WriteFile(path, SampleHeader, SampleRows)
}

// WriteFile writes header and rows as CSV to path.
func WriteFile(path string, header []string, rows [][]string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create input directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return f.Close()
}
