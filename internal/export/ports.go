// Package export defines the summary-export boundary: a computed year
// summary and the port an exporter implements.
package export

import (
	"context"

	"fliptrack/internal/report"
)

// YearSummary is one user's aggregated ledger for one year, ready to push
// to an external destination.
type YearSummary struct {
	UserID       int64                    `json:"user_id"`
	Year         int                      `json:"year"`
	BySupplyType []report.SupplyTypeTotal `json:"expenses_by_supply_type"`
	ByMonth      []report.MonthTotal      `json:"expenses_by_month"`
	SoldByMonth  []report.MonthCount      `json:"sold_items_by_month"`
}

// SummaryExporter pushes a year summary somewhere durable.
type SummaryExporter interface {
	ExportYearSummary(ctx context.Context, s YearSummary) error
}
