package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fliptrack/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestUser(t *testing.T, repo *SQLiteRepository) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), "flipper", "not-a-real-hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestMigrationsSeedLookups(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	supplies, err := repo.ListSupplyTypes(ctx)
	if err != nil {
		t.Fatalf("list supply types: %v", err)
	}
	if len(supplies) == 0 {
		t.Fatal("expected seeded supply types")
	}

	weights, err := repo.ListWeightTypes(ctx)
	if err != nil {
		t.Fatalf("list weight types: %v", err)
	}
	if len(weights) == 0 || weights[0].Percentage != 1 {
		t.Fatalf("expected N/A weight type with percentage 1, got %+v", weights)
	}

	if _, err := repo.ListCategories(ctx); err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if _, err := repo.ListListingTypes(ctx); err != nil {
		t.Fatalf("list listing types: %v", err)
	}
}

func TestUserAndTokenLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo)

	got, err := repo.GetUserByUsername(ctx, "flipper")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("user id = %d, want %d", got.ID, u.ID)
	}

	if err := repo.CreateToken(ctx, u.ID, "tok-live", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("create token: %v", err)
	}
	byToken, err := repo.GetUserByToken(ctx, "tok-live")
	if err != nil {
		t.Fatalf("get user by token: %v", err)
	}
	if byToken.ID != u.ID {
		t.Fatalf("token resolved to user %d, want %d", byToken.ID, u.ID)
	}

	if err := repo.CreateToken(ctx, u.ID, "tok-expired", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("create expired token: %v", err)
	}
	if _, err := repo.GetUserByToken(ctx, "tok-expired"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired token must not resolve, got %v", err)
	}

	if _, err := repo.GetUserByToken(ctx, "tok-unknown"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown token must not resolve, got %v", err)
	}
}

func TestExpenseLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo)

	created, err := repo.CreateExpense(ctx, core.Expense{
		UserID:        u.ID,
		Cost:          core.Money{Cents: 1234},
		DatePurchased: core.NewDate(2023, 1, 15),
		SupplyTypeID:  1,
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected assigned id")
	}

	got, err := repo.GetExpense(ctx, created.ID, u.ID)
	if err != nil {
		t.Fatalf("get expense: %v", err)
	}
	if got.Cost.Cents != 1234 || got.DatePurchased.Month() != 1 || got.SupplyTypeID != 1 {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	got.Cost = core.Money{Cents: 2000}
	got.SupplyTypeID = 2
	if err := repo.UpdateExpense(ctx, got); err != nil {
		t.Fatalf("update expense: %v", err)
	}
	updated, err := repo.GetExpense(ctx, created.ID, u.ID)
	if err != nil {
		t.Fatalf("get updated expense: %v", err)
	}
	if updated.Cost.Cents != 2000 || updated.SupplyTypeID != 2 {
		t.Fatalf("update not applied: %+v", updated)
	}

	// Another user must not see or touch it.
	if _, err := repo.GetExpense(ctx, created.ID, u.ID+1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign get must be ErrNotFound, got %v", err)
	}
	if err := repo.DeleteExpense(ctx, created.ID, u.ID+1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign delete must be ErrNotFound, got %v", err)
	}

	if err := repo.DeleteExpense(ctx, created.ID, u.ID); err != nil {
		t.Fatalf("delete expense: %v", err)
	}
	if _, err := repo.GetExpense(ctx, created.ID, u.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted expense must be gone, got %v", err)
	}
}

func TestListExpensesByUserOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo)

	dates := []core.Date{
		core.NewDate(2023, 3, 1),
		core.NewDate(2023, 1, 10),
		core.NewDate(2023, 2, 20),
	}
	for _, d := range dates {
		if _, err := repo.CreateExpense(ctx, core.Expense{
			UserID: u.ID, Cost: core.Money{Cents: 100}, DatePurchased: d, SupplyTypeID: 1,
		}); err != nil {
			t.Fatalf("create expense: %v", err)
		}
	}

	out, err := repo.ListExpensesByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("list expenses: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 expenses, got %d", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i].DatePurchased.Before(out[i-1].DatePurchased.Time) {
			t.Fatalf("expenses not ordered by date: %+v", out)
		}
	}
}

func TestItemLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo)

	listed, err := repo.CreateItem(ctx, core.Item{
		UserID:        u.ID,
		Title:         "12 inch plush",
		UniqueItemID:  264954766269,
		CategoryID:    1,
		ListingTypeID: 2,
		WeightTypeID:  1,
		ItemWeight:    165,
		ItemCost:      core.Money{Cents: 200},
		DateListed:    core.NewDate(2023, 2, 9),
		ListingFee:    core.Money{Cents: 30},
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	// Unsold items never show up in the sold listing.
	sold, err := repo.ListSoldItemsByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("list sold: %v", err)
	}
	if len(sold) != 0 {
		t.Fatalf("expected no sold items, got %+v", sold)
	}

	listed.Notes = "great sell"
	listed.ShippingCost = core.Money{Cents: 850}
	listed.ShippingPaid = core.Money{Cents: 1200}
	listed.ItemPaid = core.Money{Cents: 1500}
	listed.FinalValueFee = core.Money{Cents: 100}
	listed.SoldDate = core.NewDate(2023, 2, 12)
	listed.ProfitPerItem = listed.Profit()
	listed.ProfitPercentage = listed.ProfitPct()
	if err := repo.UpdateSoldItem(ctx, listed); err != nil {
		t.Fatalf("update sold item: %v", err)
	}

	sold, err = repo.ListSoldItemsByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("list sold: %v", err)
	}
	if len(sold) != 1 {
		t.Fatalf("expected 1 sold item, got %d", len(sold))
	}
	got := sold[0]
	if !got.Sold() || got.SoldDate.Month() != 2 {
		t.Fatalf("sold date lost: %+v", got)
	}
	if got.ProfitPerItem.Cents != 1520 {
		t.Fatalf("profit = %d cents, want 1520", got.ProfitPerItem.Cents)
	}
	if got.Notes != "great sell" {
		t.Fatalf("notes lost: %q", got.Notes)
	}

	all, err := repo.ListItemsByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 item, got %d", len(all))
	}

	if err := repo.DeleteItem(ctx, listed.ID, u.ID); err != nil {
		t.Fatalf("delete item: %v", err)
	}
	if _, err := repo.GetItem(ctx, listed.ID, u.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted item must be gone, got %v", err)
	}
}
