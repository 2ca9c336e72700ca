package google

import (
	"context"
	"testing"

	"fliptrack/internal/core"
	"fliptrack/internal/export"
	"fliptrack/internal/report"
)

func TestNewRejectsIncompleteConfig(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name string
		cfg  Config
	}{
		{"missing spreadsheet", Config{SheetName: "Summary", CredentialsJSON: "{}"}},
		{"missing sheet name", Config{SpreadsheetID: "abc", CredentialsJSON: "{}"}},
		{"missing credentials", Config{SpreadsheetID: "abc", SheetName: "Summary"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(ctx, tc.cfg); err == nil {
				t.Fatal("expected config error")
			}
		})
	}
}

func TestSummaryRows(t *testing.T) {
	s := export.YearSummary{
		UserID: 1,
		Year:   2023,
		BySupplyType: []report.SupplyTypeTotal{
			{SupplyTypeID: 1, TotalExpense: core.Money{Cents: 1500}},
			{SupplyTypeID: 2, TotalExpense: core.Money{Cents: 300}},
		},
		ByMonth: []report.MonthTotal{
			{Month: 1, TotalExpense: core.Money{Cents: 1300}},
		},
		SoldByMonth: []report.MonthCount{
			{Month: 3, TotalItems: 2},
		},
	}

	rows := summaryRows(s)

	// 4 header rows + 2 supply groups, then 3 section rows + 1 group for
	// months, then 3 section rows + 1 group for sold items.
	if len(rows) != 14 {
		t.Fatalf("expected 14 rows, got %d: %v", len(rows), rows)
	}
	if rows[4][0] != "1" || rows[4][1] != "15.00" {
		t.Fatalf("first supply row = %v", rows[4])
	}
	if rows[len(rows)-1][0] != "3" || rows[len(rows)-1][1] != "2" {
		t.Fatalf("last sold row = %v", rows[len(rows)-1])
	}
}
