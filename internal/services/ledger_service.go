// Package services orchestrates ledger operations: validation, persistence,
// derived profit fields, aggregation, and summary-export publishing.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"fliptrack/internal/auth"
	"fliptrack/internal/core"
	"fliptrack/internal/export"
	"fliptrack/internal/report"
)

// Store is the ledger persistence boundary the service drives.
type Store interface {
	CreateUser(ctx context.Context, username, passwordHash string) (core.User, error)
	GetUserByUsername(ctx context.Context, username string) (core.User, error)
	CreateToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error
	GetUserByToken(ctx context.Context, token string) (core.User, error)

	ListSupplyTypes(ctx context.Context) ([]core.SupplyType, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
	ListListingTypes(ctx context.Context) ([]core.ListingType, error)
	ListWeightTypes(ctx context.Context) ([]core.WeightType, error)

	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	GetExpense(ctx context.Context, id, userID int64) (core.Expense, error)
	UpdateExpense(ctx context.Context, e core.Expense) error
	DeleteExpense(ctx context.Context, id, userID int64) error
	ListExpensesByUser(ctx context.Context, userID int64) ([]core.Expense, error)

	CreateItem(ctx context.Context, it core.Item) (core.Item, error)
	GetItem(ctx context.Context, id, userID int64) (core.Item, error)
	UpdateSoldItem(ctx context.Context, it core.Item) error
	DeleteItem(ctx context.Context, id, userID int64) error
	ListItemsByUser(ctx context.Context, userID int64) ([]core.Item, error)
	ListSoldItemsByUser(ctx context.Context, userID int64) ([]core.Item, error)
}

// ExportPublisher enqueues summary-export requests. A nil publisher disables
// export without failing ledger writes.
type ExportPublisher interface {
	PublishSummaryExport(ctx context.Context, userID int64, year int) error
}

// LedgerService is the application core behind the HTTP boundary.
type LedgerService struct {
	store      Store
	publisher  ExportPublisher
	bcryptCost int
	tokenTTL   time.Duration
}

func NewLedgerService(store Store, publisher ExportPublisher, bcryptCost int, tokenTTL time.Duration) *LedgerService {
	return &LedgerService{
		store:      store,
		publisher:  publisher,
		bcryptCost: bcryptCost,
		tokenTTL:   tokenTTL,
	}
}

// ---- identity ----

// Register creates a user with a bcrypt password hash.
func (s *LedgerService) Register(ctx context.Context, username, password string) (core.User, error) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return core.User{}, err
	}
	u, err := s.store.CreateUser(ctx, username, hash)
	if err != nil {
		return core.User{}, fmt.Errorf("register user: %w", err)
	}
	return u, nil
}

// Login verifies credentials and mints a token valid for the configured TTL.
func (s *LedgerService) Login(ctx context.Context, username, password string) (core.User, string, error) {
	u, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		// Same failure for unknown user and wrong password.
		return core.User{}, "", auth.ErrBadCredentials
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		return core.User{}, "", auth.ErrBadCredentials
	}
	token, err := auth.NewToken()
	if err != nil {
		return core.User{}, "", err
	}
	if err := s.store.CreateToken(ctx, u.ID, token, time.Now().Add(s.tokenTTL)); err != nil {
		return core.User{}, "", fmt.Errorf("store token: %w", err)
	}
	return u, token, nil
}

// Authenticate resolves a bearer token to a user.
func (s *LedgerService) Authenticate(ctx context.Context, token string) (core.User, error) {
	return s.store.GetUserByToken(ctx, token)
}

// ---- lookups ----

func (s *LedgerService) SupplyTypes(ctx context.Context) ([]core.SupplyType, error) {
	return s.store.ListSupplyTypes(ctx)
}

func (s *LedgerService) Categories(ctx context.Context) ([]core.Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *LedgerService) ListingTypes(ctx context.Context) ([]core.ListingType, error) {
	return s.store.ListListingTypes(ctx)
}

func (s *LedgerService) WeightTypes(ctx context.Context) ([]core.WeightType, error) {
	return s.store.ListWeightTypes(ctx)
}

// ---- expenses ----

func (s *LedgerService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	created, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.publishExport(ctx, created.UserID, created.DatePurchased.Year())
	return created, nil
}

func (s *LedgerService) GetExpense(ctx context.Context, id, userID int64) (core.Expense, error) {
	return s.store.GetExpense(ctx, id, userID)
}

func (s *LedgerService) UpdateExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateExpense(ctx, e); err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	s.publishExport(ctx, e.UserID, e.DatePurchased.Year())
	return nil
}

func (s *LedgerService) DeleteExpense(ctx context.Context, id, userID int64) error {
	// Fetch first so the export message can carry the affected year.
	e, err := s.store.GetExpense(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteExpense(ctx, id, userID); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.publishExport(ctx, userID, e.DatePurchased.Year())
	return nil
}

// ListExpenses returns the user's expenses dated within the given year.
func (s *LedgerService) ListExpenses(ctx context.Context, userID int64, year int) ([]core.Expense, error) {
	all, err := s.store.ListExpensesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.Expense, 0, len(all))
	for _, e := range all {
		if e.DatePurchased.Year() == year {
			out = append(out, e)
		}
	}
	return out, nil
}

// ---- items ----

// CreateItem records a new listing. Derived profit fields are zero until
// the sale completes.
func (s *LedgerService) CreateItem(ctx context.Context, it core.Item) (core.Item, error) {
	if err := it.Validate(); err != nil {
		return core.Item{}, err
	}
	if it.Sold() {
		it.ProfitPerItem = it.Profit()
		it.ProfitPercentage = it.ProfitPct()
	}
	created, err := s.store.CreateItem(ctx, it)
	if err != nil {
		return core.Item{}, fmt.Errorf("save item: %w", err)
	}
	if created.Sold() {
		s.publishExport(ctx, created.UserID, created.SoldDate.Year())
	}
	return created, nil
}

// SaleUpdate carries the only fields editable on a sold item.
type SaleUpdate struct {
	Notes         string     `json:"notes"`
	ShippingCost  core.Money `json:"shipping_cost"`
	ShippingPaid  core.Money `json:"shipping_paid"`
	ItemPaid      core.Money `json:"item_paid"`
	FinalValueFee core.Money `json:"final_value_fee"`
	SoldDate      core.Date  `json:"sold_date"`
	Returned      bool       `json:"returned"`
}

var ErrMissingSoldDate = errors.New("sold_date is required")

// CompleteSale applies sale-completion fields to an item and recomputes the
// derived profit columns.
func (s *LedgerService) CompleteSale(ctx context.Context, id, userID int64, upd SaleUpdate) (core.Item, error) {
	if upd.SoldDate.IsZero() {
		return core.Item{}, ErrMissingSoldDate
	}

	it, err := s.store.GetItem(ctx, id, userID)
	if err != nil {
		return core.Item{}, err
	}

	it.Notes = upd.Notes
	it.ShippingCost = upd.ShippingCost
	it.ShippingPaid = upd.ShippingPaid
	it.ItemPaid = upd.ItemPaid
	it.FinalValueFee = upd.FinalValueFee
	it.SoldDate = upd.SoldDate
	it.Returned = upd.Returned
	if err := it.Validate(); err != nil {
		return core.Item{}, err
	}
	it.ProfitPerItem = it.Profit()
	it.ProfitPercentage = it.ProfitPct()

	if err := s.store.UpdateSoldItem(ctx, it); err != nil {
		return core.Item{}, fmt.Errorf("complete sale: %w", err)
	}
	s.publishExport(ctx, userID, it.SoldDate.Year())
	return it, nil
}

// GetSoldItem fetches one item and insists it has actually sold.
func (s *LedgerService) GetSoldItem(ctx context.Context, id, userID int64) (core.Item, error) {
	it, err := s.store.GetItem(ctx, id, userID)
	if err != nil {
		return core.Item{}, err
	}
	if !it.Sold() {
		return core.Item{}, core.ErrNotSold
	}
	return it, nil
}

func (s *LedgerService) ListSoldItems(ctx context.Context, userID int64) ([]core.Item, error) {
	return s.store.ListSoldItemsByUser(ctx, userID)
}

func (s *LedgerService) ListItems(ctx context.Context, userID int64) ([]core.Item, error) {
	return s.store.ListItemsByUser(ctx, userID)
}

func (s *LedgerService) DeleteItem(ctx context.Context, id, userID int64) error {
	it, err := s.store.GetItem(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteItem(ctx, id, userID); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if it.Sold() {
		s.publishExport(ctx, userID, it.SoldDate.Year())
	}
	return nil
}

// ---- aggregation ----

// SupplyTypeTotals groups the user's expenses for a year by supply type.
func (s *LedgerService) SupplyTypeTotals(ctx context.Context, userID int64, year int) ([]report.SupplyTypeTotal, error) {
	expenses, err := s.store.ListExpensesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch expenses: %w", err)
	}
	return report.ExpensesBySupplyType(expenses, userID, year)
}

// MonthlyExpenseTotals groups the user's expenses for a year by month.
func (s *LedgerService) MonthlyExpenseTotals(ctx context.Context, userID int64, year int) ([]report.MonthTotal, error) {
	expenses, err := s.store.ListExpensesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch expenses: %w", err)
	}
	return report.ExpensesByMonth(expenses, userID, year)
}

// MonthlySoldCounts counts the user's sold items for a year by month.
func (s *LedgerService) MonthlySoldCounts(ctx context.Context, userID int64, year int) ([]report.MonthCount, error) {
	items, err := s.store.ListSoldItemsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch sold items: %w", err)
	}
	return report.SoldItemsByMonth(items, userID, year)
}

// YearSummary computes all three aggregates concurrently.
func (s *LedgerService) YearSummary(ctx context.Context, userID int64, year int) (export.YearSummary, error) {
	summary := export.YearSummary{UserID: userID, Year: year}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary.BySupplyType, err = s.SupplyTypeTotals(gctx, userID, year)
		return err
	})
	g.Go(func() error {
		var err error
		summary.ByMonth, err = s.MonthlyExpenseTotals(gctx, userID, year)
		return err
	})
	g.Go(func() error {
		var err error
		summary.SoldByMonth, err = s.MonthlySoldCounts(gctx, userID, year)
		return err
	})
	if err := g.Wait(); err != nil {
		return export.YearSummary{}, fmt.Errorf("year summary (user=%d, year=%d): %w", userID, year, err)
	}

	return summary, nil
}

// publishExport enqueues a summary rebuild. Publishing is best effort: the
// ledger write already succeeded and must not be rolled back over a broker
// hiccup.
func (s *LedgerService) publishExport(ctx context.Context, userID int64, year int) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishSummaryExport(ctx, userID, year); err != nil {
		slog.ErrorContext(ctx, "Failed to publish summary export",
			"user_id", userID,
			"year", year,
			"error", err)
	}
}
