// Package report computes the pre-aggregated ledger summaries served by the
// dashboard: expense totals grouped by supply type, expense totals grouped by
// calendar month, and sold-item counts grouped by calendar month.
//
// The functions are pure and stateless. They operate on an in-memory snapshot
// of ledger records, filter by owner and target year, and build each grouping
// in a single linear pass. Group order follows first observation in the input,
// so stable input order yields stable output order. Groups never appear with a
// zero total: a supply type or month with no qualifying records is simply
// absent from the result.
package report

import (
	"fmt"

	"fliptrack/internal/core"
)

// SupplyTypeTotal is the total spent on one supply category.
type SupplyTypeTotal struct {
	SupplyTypeID int64      `json:"supply_type_id"`
	TotalExpense core.Money `json:"total_expense"`
}

// MonthTotal is the total spent in one calendar month (1 = January).
type MonthTotal struct {
	Month        int        `json:"month"`
	TotalExpense core.Money `json:"total_expense"`
}

// MonthCount is the number of items sold in one calendar month.
type MonthCount struct {
	Month      int   `json:"month"`
	TotalItems int64 `json:"total_items"`
}

// ExpensesBySupplyType sums expense cost per supply type for one user and year.
//
// A record qualifies when it belongs to userID and its purchase date falls in
// the target year. A record with a zero purchase date or a negative cost is a
// ledger integrity violation and aborts the aggregation with an error rather
// than producing a partial result.
func ExpensesBySupplyType(expenses []core.Expense, userID int64, year int) ([]SupplyTypeTotal, error) {
	totals := []SupplyTypeTotal{}
	index := make(map[int64]int)
	for i, e := range expenses {
		if err := checkExpense(e, i); err != nil {
			return nil, err
		}
		if e.UserID != userID || e.DatePurchased.Year() != year {
			continue
		}
		pos, seen := index[e.SupplyTypeID]
		if !seen {
			pos = len(totals)
			index[e.SupplyTypeID] = pos
			totals = append(totals, SupplyTypeTotal{SupplyTypeID: e.SupplyTypeID})
		}
		totals[pos].TotalExpense.Cents += e.Cost.Cents
	}
	return totals, nil
}

// ExpensesByMonth sums expense cost per calendar month for one user and year.
// The month is taken from each record's own purchase date, never from the
// clock. Months without qualifying expenses are omitted.
func ExpensesByMonth(expenses []core.Expense, userID int64, year int) ([]MonthTotal, error) {
	totals := []MonthTotal{}
	index := make(map[int]int)
	for i, e := range expenses {
		if err := checkExpense(e, i); err != nil {
			return nil, err
		}
		if e.UserID != userID || e.DatePurchased.Year() != year {
			continue
		}
		month := e.DatePurchased.Month()
		pos, seen := index[month]
		if !seen {
			pos = len(totals)
			index[month] = pos
			totals = append(totals, MonthTotal{Month: month})
		}
		totals[pos].TotalExpense.Cents += e.Cost.Cents
	}
	return totals, nil
}

// SoldItemsByMonth counts sold items per calendar month for one user and year.
//
// Only items with a sold date qualify; unsold items (zero sold date) are
// skipped, not an error. This is a row count, not a monetary sum. A reversed
// sale (Returned true) still counts: the sale happened in that month.
func SoldItemsByMonth(items []core.Item, userID int64, year int) ([]MonthCount, error) {
	counts := []MonthCount{}
	index := make(map[int]int)
	for _, it := range items {
		if !it.Sold() {
			continue
		}
		if it.UserID != userID || it.SoldDate.Year() != year {
			continue
		}
		month := it.SoldDate.Month()
		pos, seen := index[month]
		if !seen {
			pos = len(counts)
			index[month] = pos
			counts = append(counts, MonthCount{Month: month})
		}
		counts[pos].TotalItems++
	}
	return counts, nil
}

// checkExpense guards the engine's input preconditions: the surrounding CRUD
// layer validates records on write, so a bad record here means the store fed
// us corrupt data and the whole aggregate is untrustworthy.
func checkExpense(e core.Expense, i int) error {
	if e.DatePurchased.IsZero() {
		return fmt.Errorf("expense %d (record %d): %w: missing purchase date", e.ID, i, core.ErrInvalidDate)
	}
	if e.Cost.Cents < 0 {
		return fmt.Errorf("expense %d (record %d): %w: negative cost", e.ID, i, core.ErrInvalidAmount)
	}
	return nil
}
