// Package google exports year summaries to a Google Sheets spreadsheet.
package google

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"fliptrack/internal/export"
)

// Client writes year summaries into one sheet of one spreadsheet.
type Client struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
}

// Config carries the spreadsheet target and service-account credentials.
// Exactly one of CredentialsFile and CredentialsJSON must be set.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string
}

// New builds a sheets client from service-account credentials.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet ID is required")
	}
	if cfg.SheetName == "" {
		return nil, fmt.Errorf("sheet name is required")
	}

	var opts []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	default:
		return nil, fmt.Errorf("credentials file or JSON is required")
	}
	opts = append(opts, option.WithScopes(sheets.SpreadsheetsScope))

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
	}, nil
}

// ExportYearSummary overwrites the summary block for one user and year.
// Each export rewrites the full block, so repeated exports converge on the
// current ledger state.
func (c *Client) ExportYearSummary(ctx context.Context, s export.YearSummary) (err error) {
	rows := summaryRows(s)
	rangeRef := c.sheetName + "!A1"

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rangeRef, &sheets.ValueRange{
		Values: rows,
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update sheet values: %w", err)
	}

	slog.InfoContext(ctx, "Year summary exported to Google Sheets",
		"user_id", s.UserID,
		"year", s.Year,
		"spreadsheet_id", c.spreadsheetID,
		"rows", len(rows))

	return nil
}

// summaryRows flattens a year summary into spreadsheet rows: a header per
// section, then one row per group.
func summaryRows(s export.YearSummary) [][]interface{} {
	rows := [][]interface{}{
		{"Year summary", strconv.FormatInt(s.UserID, 10), strconv.Itoa(s.Year)},
		{},
		{"Expenses by supply type"},
		{"supply_type_id", "total_expense"},
	}
	for _, g := range s.BySupplyType {
		rows = append(rows, []interface{}{strconv.FormatInt(g.SupplyTypeID, 10), g.TotalExpense.String()})
	}

	rows = append(rows, []interface{}{}, []interface{}{"Expenses by month"}, []interface{}{"month", "total_expense"})
	for _, g := range s.ByMonth {
		rows = append(rows, []interface{}{strconv.Itoa(g.Month), g.TotalExpense.String()})
	}

	rows = append(rows, []interface{}{}, []interface{}{"Sold items by month"}, []interface{}{"month", "total_items"})
	for _, g := range s.SoldByMonth {
		rows = append(rows, []interface{}{strconv.Itoa(g.Month), strconv.FormatInt(g.TotalItems, 10)})
	}

	return rows
}
