// Package storage persists the ledger in SQLite: users and tokens, lookup
// tables, purchase expenses and marketplace items.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fliptrack/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record does not exist or belongs to
// another user.
var ErrNotFound = errors.New("record not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ---- users and tokens ----

func (r *SQLiteRepository) CreateUser(ctx context.Context, username, passwordHash string) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash) VALUES (?, ?)`,
		username, passwordHash)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("user insert id: %w", err)
	}

	slog.InfoContext(ctx, "User created", "user_id", id, "username", username)
	return core.User{ID: id, Username: username, PasswordHash: passwordHash}, nil
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash FROM users WHERE username = ?`,
		username).Scan(&u.ID, &u.Username, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) CreateToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_tokens (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token, userID, expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("create token: %w", err)
	}
	return nil
}

// GetUserByToken resolves a bearer token to its owner. Expired tokens do
// not resolve.
func (r *SQLiteRepository) GetUserByToken(ctx context.Context, token string) (core.User, error) {
	var u core.User
	var expiresAt time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT u.id, u.username, u.password_hash, t.expires_at
		 FROM auth_tokens t JOIN users u ON u.id = t.user_id
		 WHERE t.token = ?`,
		token).Scan(&u.ID, &u.Username, &u.PasswordHash, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by token: %w", err)
	}
	if time.Now().After(expiresAt) {
		return core.User{}, ErrNotFound
	}
	return u, nil
}

// ---- lookup tables ----

func (r *SQLiteRepository) ListSupplyTypes(ctx context.Context) ([]core.SupplyType, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM supply_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list supply types: %w", err)
	}
	defer rows.Close()

	var out []core.SupplyType
	for rows.Next() {
		var st core.SupplyType
		if err := rows.Scan(&st.ID, &st.Name); err != nil {
			return nil, fmt.Errorf("scan supply type: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListListingTypes(ctx context.Context) ([]core.ListingType, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM listing_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list listing types: %w", err)
	}
	defer rows.Close()

	var out []core.ListingType
	for rows.Next() {
		var lt core.ListingType
		if err := rows.Scan(&lt.ID, &lt.Name); err != nil {
			return nil, fmt.Errorf("scan listing type: %w", err)
		}
		out = append(out, lt)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListWeightTypes(ctx context.Context) ([]core.WeightType, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, type, percentage FROM weight_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list weight types: %w", err)
	}
	defer rows.Close()

	var out []core.WeightType
	for rows.Next() {
		var wt core.WeightType
		if err := rows.Scan(&wt.ID, &wt.Type, &wt.Percentage); err != nil {
			return nil, fmt.Errorf("scan weight type: %w", err)
		}
		out = append(out, wt)
	}
	return out, rows.Err()
}

// ---- expenses ----

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, cost_cents, date_purchased, supply_type_id, image_ref)
		 VALUES (?, ?, ?, ?, ?)`,
		e.UserID, e.Cost.Cents, e.DatePurchased.String(), e.SupplyTypeID, nullString(e.ImageRef))
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense insert id: %w", err)
	}
	e.ID = id

	slog.InfoContext(ctx, "Expense saved",
		"expense_id", e.ID,
		"user_id", e.UserID,
		"cost_cents", e.Cost.Cents,
		"supply_type_id", e.SupplyTypeID,
		"date_purchased", e.DatePurchased.String())

	return e, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id, userID int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, cost_cents, date_purchased, supply_type_id, image_ref
		 FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET cost_cents = ?, date_purchased = ?, supply_type_id = ?, image_ref = ?
		 WHERE id = ? AND user_id = ?`,
		e.Cost.Cents, e.DatePurchased.String(), e.SupplyTypeID, nullString(e.ImageRef), e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return requireRow(res, "update expense")
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return requireRow(res, "delete expense")
}

// ListExpensesByUser returns every expense owned by the user, oldest first.
// Year scoping is the aggregation layer's job, not a query concern.
func (r *SQLiteRepository) ListExpensesByUser(ctx context.Context, userID int64) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, cost_cents, date_purchased, supply_type_id, image_ref
		 FROM expenses WHERE user_id = ? ORDER BY date_purchased, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ---- items ----

func (r *SQLiteRepository) CreateItem(ctx context.Context, it core.Item) (core.Item, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO items (user_id, title, unique_item_id, category_id, listing_type_id,
		   weight_type_id, item_weight, notes, item_cost_cents, date_listed, listing_fee_cents,
		   shipping_cost_cents, shipping_paid_cents, item_paid_cents, final_value_fee_cents,
		   sold_date, returned, profit_cents, profit_pct)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.UserID, it.Title, it.UniqueItemID, it.CategoryID, it.ListingTypeID,
		it.WeightTypeID, it.ItemWeight, nullString(it.Notes), it.ItemCost.Cents,
		it.DateListed.String(), it.ListingFee.Cents, it.ShippingCost.Cents,
		it.ShippingPaid.Cents, it.ItemPaid.Cents, it.FinalValueFee.Cents,
		nullDate(it.SoldDate), it.Returned, it.ProfitPerItem.Cents, it.ProfitPercentage)
	if err != nil {
		return core.Item{}, fmt.Errorf("create item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Item{}, fmt.Errorf("item insert id: %w", err)
	}
	it.ID = id

	slog.InfoContext(ctx, "Item saved",
		"item_id", it.ID,
		"user_id", it.UserID,
		"title", it.Title,
		"sold", it.Sold())

	return it, nil
}

func (r *SQLiteRepository) GetItem(ctx context.Context, id, userID int64) (core.Item, error) {
	row := r.db.QueryRowContext(ctx, itemColumns+` WHERE id = ? AND user_id = ?`, id, userID)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Item{}, ErrNotFound
	}
	if err != nil {
		return core.Item{}, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

// UpdateSoldItem writes the sale-completion fields plus the derived profit
// columns. Listing-time fields are immutable after creation.
func (r *SQLiteRepository) UpdateSoldItem(ctx context.Context, it core.Item) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE items SET notes = ?, shipping_cost_cents = ?, shipping_paid_cents = ?,
		   item_paid_cents = ?, final_value_fee_cents = ?, sold_date = ?, returned = ?,
		   profit_cents = ?, profit_pct = ?
		 WHERE id = ? AND user_id = ?`,
		nullString(it.Notes), it.ShippingCost.Cents, it.ShippingPaid.Cents,
		it.ItemPaid.Cents, it.FinalValueFee.Cents, nullDate(it.SoldDate), it.Returned,
		it.ProfitPerItem.Cents, it.ProfitPercentage, it.ID, it.UserID)
	if err != nil {
		return fmt.Errorf("update sold item: %w", err)
	}
	return requireRow(res, "update sold item")
}

func (r *SQLiteRepository) DeleteItem(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM items WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return requireRow(res, "delete item")
}

// ListItemsByUser returns every item owned by the user, listed or sold.
func (r *SQLiteRepository) ListItemsByUser(ctx context.Context, userID int64) ([]core.Item, error) {
	return r.listItems(ctx, itemColumns+` WHERE user_id = ? ORDER BY date_listed, id`, userID)
}

// ListSoldItemsByUser returns only items whose sale is recorded.
func (r *SQLiteRepository) ListSoldItemsByUser(ctx context.Context, userID int64) ([]core.Item, error) {
	return r.listItems(ctx, itemColumns+` WHERE user_id = ? AND sold_date IS NOT NULL ORDER BY sold_date, id`, userID)
}

func (r *SQLiteRepository) listItems(ctx context.Context, query string, args ...any) ([]core.Item, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var out []core.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ---- scanning helpers ----

const itemColumns = `SELECT id, user_id, title, unique_item_id, category_id, listing_type_id,
	weight_type_id, item_weight, notes, item_cost_cents, date_listed, listing_fee_cents,
	shipping_cost_cents, shipping_paid_cents, item_paid_cents, final_value_fee_cents,
	sold_date, returned, profit_cents, profit_pct FROM items`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e        core.Expense
		dateStr  string
		imageRef sql.NullString
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.Cost.Cents, &dateStr, &e.SupplyTypeID, &imageRef); err != nil {
		return core.Expense{}, err
	}
	d, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d has malformed date %q: %w", e.ID, dateStr, err)
	}
	e.DatePurchased = d
	e.ImageRef = imageRef.String
	return e, nil
}

func scanItem(row rowScanner) (core.Item, error) {
	var (
		it       core.Item
		listed   string
		sold     sql.NullString
		notes    sql.NullString
		returned int64
	)
	err := row.Scan(&it.ID, &it.UserID, &it.Title, &it.UniqueItemID, &it.CategoryID,
		&it.ListingTypeID, &it.WeightTypeID, &it.ItemWeight, &notes, &it.ItemCost.Cents,
		&listed, &it.ListingFee.Cents, &it.ShippingCost.Cents, &it.ShippingPaid.Cents,
		&it.ItemPaid.Cents, &it.FinalValueFee.Cents, &sold, &returned,
		&it.ProfitPerItem.Cents, &it.ProfitPercentage)
	if err != nil {
		return core.Item{}, err
	}
	d, err := core.ParseDate(listed)
	if err != nil {
		return core.Item{}, fmt.Errorf("item %d has malformed listing date %q: %w", it.ID, listed, err)
	}
	it.DateListed = d
	if sold.Valid && sold.String != "" {
		sd, err := core.ParseDate(sold.String)
		if err != nil {
			return core.Item{}, fmt.Errorf("item %d has malformed sold date %q: %w", it.ID, sold.String, err)
		}
		it.SoldDate = sd
	}
	it.Notes = notes.String
	it.Returned = returned != 0
	return it, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullDate(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
