package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/timmy/orderbatch/internal/domain"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const rule = "========================================"

var printer = message.NewPrinter(language.English)

// Render formats a summary as the text report written to the log.
func Render(s *domain.RunSummary) []string {
	lines := []string{
		rule,
		"        Batch Run Report",
		rule,
		"Run ID:   " + s.RunID,
		"Start:    " + s.StartTime.Format(time.DateTime),
		"End:      " + s.EndTime.Format(time.DateTime),
		fmt.Sprintf("Duration: %.3fs", float64(s.DurationMs)/1000),
		strings.Repeat("-", len(rule)),
		"Results:",
		printer.Sprintf("  - Processed orders (orders): %d", s.ProcessedOrders),
		printer.Sprintf("  - Confirmed writes (processed_orders): %d", s.ConfirmedWrites),
		"  - Total revenue: " + FormatAmount(s.TotalRevenue),
		fmt.Sprintf("  - Read/Written/Skipped/Failed: %d/%d/%d/%d", s.Read, s.Written, s.Skipped, s.FailedUnaccounted),
		fmt.Sprintf("  - Commits: %d", s.Commits),
		"  - Status: " + string(s.Status),
	}
	if s.Reason != "" {
		lines = append(lines, "  - Reason: "+s.Reason)
	}
	lines = append(lines, strings.Repeat("-", len(rule)))

	if len(s.Products) > 0 {
		lines = append(lines, "Sales by product:")
		for _, p := range s.Products {
			lines = append(lines, printer.Sprintf("  - %s: %d units, %s", p.ProductName, p.TotalQuantity, FormatAmount(p.TotalRevenue)))
		}
	}
	return append(lines, rule)
}

// FormatAmount rounds to whole units and groups thousands, e.g. 11,750,000.
func FormatAmount(d decimal.Decimal) string {
	return printer.Sprintf("%d", d.Round(0).IntPart())
}

// statusLabel reports whether a summary describes a successful run.
func statusLabel(s domain.RunStatus) string {
	if s.IsSuccess() {
		return "success"
	}
	return "failure"
}
