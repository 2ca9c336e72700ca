package report

import (
	"reflect"
	"testing"

	"fliptrack/internal/core"
)

func expense(user, supplyType int64, cents int64, y, m, d int) core.Expense {
	return core.Expense{
		UserID:        user,
		SupplyTypeID:  supplyType,
		Cost:          core.Money{Cents: cents},
		DatePurchased: core.NewDate(y, m, d),
	}
}

func soldItem(user int64, y, m, d int) core.Item {
	return core.Item{UserID: user, SoldDate: core.NewDate(y, m, d)}
}

func TestExpensesBySupplyType(t *testing.T) {
	expenses := []core.Expense{
		expense(1, 1, 1000, 2023, 1, 15),
		expense(1, 1, 500, 2023, 2, 1),
		expense(1, 2, 300, 2023, 1, 20),
	}

	got, err := ExpensesBySupplyType(expenses, 1, 2023)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []SupplyTypeTotal{
		{SupplyTypeID: 1, TotalExpense: core.Money{Cents: 1500}},
		{SupplyTypeID: 2, TotalExpense: core.Money{Cents: 300}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestExpensesByMonth(t *testing.T) {
	expenses := []core.Expense{
		expense(1, 1, 1000, 2023, 1, 15),
		expense(1, 1, 500, 2023, 2, 1),
		expense(1, 2, 300, 2023, 1, 20),
	}

	got, err := ExpensesByMonth(expenses, 1, 2023)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []MonthTotal{
		{Month: 1, TotalExpense: core.Money{Cents: 1300}},
		{Month: 2, TotalExpense: core.Money{Cents: 500}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestSoldItemsByMonth(t *testing.T) {
	items := []core.Item{
		soldItem(1, 2023, 3, 5),
		soldItem(1, 2023, 3, 20),
		{UserID: 1}, // never sold
		soldItem(1, 2022, 3, 5),
	}

	got, err := SoldItemsByMonth(items, 1, 2023)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []MonthCount{{Month: 3, TotalItems: 2}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestUserAndYearFiltering(t *testing.T) {
	expenses := []core.Expense{
		expense(1, 1, 1000, 2023, 6, 10),
		expense(2, 1, 999, 2023, 6, 10), // other user
		expense(1, 1, 777, 2022, 6, 10), // other year
		expense(1, 1, 555, 2024, 1, 1),  // other year
	}

	byType, err := ExpensesBySupplyType(expenses, 1, 2023)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byType) != 1 || byType[0].TotalExpense.Cents != 1000 {
		t.Fatalf("expected single group of 1000 cents, got %+v", byType)
	}

	byMonth, err := ExpensesByMonth(expenses, 1, 2023)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byMonth) != 1 || byMonth[0].TotalExpense.Cents != 1000 {
		t.Fatalf("expected single month of 1000 cents, got %+v", byMonth)
	}
}

func TestYearBoundary(t *testing.T) {
	// December 31 of year Y must never leak into Y+1 or Y-1.
	expenses := []core.Expense{expense(1, 1, 100, 2023, 12, 31)}

	for _, year := range []int{2022, 2024} {
		got, err := ExpensesByMonth(expenses, 1, year)
		if err != nil {
			t.Fatalf("year %d: unexpected error: %v", year, err)
		}
		if len(got) != 0 {
			t.Fatalf("year %d: expected empty result, got %+v", year, got)
		}
	}

	got, err := ExpensesByMonth(expenses, 1, 2023)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Month != 12 || got[0].TotalExpense.Cents != 100 {
		t.Fatalf("expected december total of 100 cents, got %+v", got)
	}
}

func TestEmptyInput(t *testing.T) {
	if got, err := ExpensesBySupplyType(nil, 1, 2023); err != nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %+v err %v", got, err)
	}
	if got, err := ExpensesByMonth([]core.Expense{}, 1, 2023); err != nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %+v err %v", got, err)
	}
	if got, err := SoldItemsByMonth(nil, 1, 2023); err != nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %+v err %v", got, err)
	}
}

func TestTotalsReconcile(t *testing.T) {
	// Per-category totals, per-month totals and the straight sum of cost over
	// the qualifying records are three groupings of the same money.
	expenses := []core.Expense{
		expense(1, 1, 1250, 2023, 1, 3),
		expense(1, 2, 75, 2023, 1, 18),
		expense(1, 3, 4099, 2023, 4, 2),
		expense(1, 1, 901, 2023, 4, 30),
		expense(1, 2, 333, 2023, 11, 11),
		expense(2, 2, 5000, 2023, 11, 11), // excluded: other user
		expense(1, 2, 5000, 2021, 11, 11), // excluded: other year
	}

	var straight int64
	for _, e := range expenses {
		if e.UserID == 1 && e.DatePurchased.Year() == 2023 {
			straight += e.Cost.Cents
		}
	}

	byType, err := ExpensesBySupplyType(expenses, 1, 2023)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var typeSum int64
	for _, g := range byType {
		typeSum += g.TotalExpense.Cents
	}

	byMonth, err := ExpensesByMonth(expenses, 1, 2023)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var monthSum int64
	for _, g := range byMonth {
		monthSum += g.TotalExpense.Cents
	}

	if typeSum != straight || monthSum != straight {
		t.Fatalf("totals diverge: straight=%d byType=%d byMonth=%d", straight, typeSum, monthSum)
	}
}

func TestSoldCountsReconcile(t *testing.T) {
	items := []core.Item{
		soldItem(1, 2023, 1, 5),
		soldItem(1, 2023, 1, 9),
		soldItem(1, 2023, 7, 14),
		soldItem(1, 2023, 12, 31),
		{UserID: 1},              // unsold
		soldItem(2, 2023, 7, 14), // other user
		soldItem(1, 2020, 7, 14), // other year
	}

	var included int64
	for _, it := range items {
		if it.Sold() && it.UserID == 1 && it.SoldDate.Year() == 2023 {
			included++
		}
	}

	counts, err := SoldItemsByMonth(items, 1, 2023)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sum int64
	for _, c := range counts {
		sum += c.TotalItems
	}
	if sum != included {
		t.Fatalf("count sum %d != included rows %d", sum, included)
	}
}

func TestNoZeroGroups(t *testing.T) {
	expenses := []core.Expense{expense(1, 4, 100, 2023, 5, 5)}

	byMonth, err := ExpensesByMonth(expenses, 1, 2023)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byMonth) != 1 {
		t.Fatalf("months must not be zero-filled, got %+v", byMonth)
	}
	for _, g := range byMonth {
		if g.TotalExpense.Cents == 0 {
			t.Fatalf("zero-total group present: %+v", g)
		}
	}

	byType, err := ExpensesBySupplyType(expenses, 1, 2023)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byType) != 1 || byType[0].SupplyTypeID != 4 {
		t.Fatalf("only observed supply types may appear, got %+v", byType)
	}
}

func TestIdempotence(t *testing.T) {
	expenses := []core.Expense{
		expense(1, 1, 1000, 2023, 1, 15),
		expense(1, 2, 300, 2023, 1, 20),
	}
	first, err := ExpensesBySupplyType(expenses, 1, 2023)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := ExpensesBySupplyType(expenses, 1, 2023)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same snapshot produced different output: %+v vs %+v", first, second)
	}
}

func TestStableGroupOrder(t *testing.T) {
	// Groups surface in first-observed order.
	expenses := []core.Expense{
		expense(1, 9, 100, 2023, 3, 1),
		expense(1, 2, 100, 2023, 1, 1),
		expense(1, 9, 100, 2023, 1, 2),
	}
	byType, err := ExpensesBySupplyType(expenses, 1, 2023)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if byType[0].SupplyTypeID != 9 || byType[1].SupplyTypeID != 2 {
		t.Fatalf("expected first-observed order [9 2], got %+v", byType)
	}

	byMonth, err := ExpensesByMonth(expenses, 1, 2023)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if byMonth[0].Month != 3 || byMonth[1].Month != 1 {
		t.Fatalf("expected first-observed order [3 1], got %+v", byMonth)
	}
}

func TestSingleRecordCategoryKeepsCost(t *testing.T) {
	expenses := []core.Expense{expense(1, 7, 12345, 2023, 8, 8)}
	got, err := ExpensesBySupplyType(expenses, 1, 2023)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].TotalExpense.Cents != 12345 {
		t.Fatalf("single record must return its cost unchanged, got %+v", got)
	}
}

func TestMalformedRecordFailsLoudly(t *testing.T) {
	missingDate := []core.Expense{{UserID: 1, SupplyTypeID: 1, Cost: core.Money{Cents: 100}}}
	if _, err := ExpensesBySupplyType(missingDate, 1, 2023); err == nil {
		t.Fatal("expected error for missing purchase date")
	}
	if _, err := ExpensesByMonth(missingDate, 1, 2023); err == nil {
		t.Fatal("expected error for missing purchase date")
	}

	negativeCost := []core.Expense{
		{UserID: 1, SupplyTypeID: 1, Cost: core.Money{Cents: -5}, DatePurchased: core.NewDate(2023, 1, 1)},
	}
	if _, err := ExpensesByMonth(negativeCost, 1, 2023); err == nil {
		t.Fatal("expected error for negative cost")
	}
}

func TestReturnedItemStillCounts(t *testing.T) {
	items := []core.Item{
		{UserID: 1, SoldDate: core.NewDate(2023, 6, 1), Returned: true},
	}
	got, err := SoldItemsByMonth(items, 1, 2023)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].TotalItems != 1 {
		t.Fatalf("returned sale must still count in its month, got %+v", got)
	}
}
