package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// Date is a calendar date with day precision. The zero value means
	// "no date", which is how an unsold item carries its sold date.
	Date struct {
		time.Time
	}

	// Money is a fixed-point monetary amount in cents.
	Money struct {
		Cents int64
	}

	// User is the owning identity for ledger records.
	User struct {
		ID           int64  `json:"id"`
		Username     string `json:"username"`
		PasswordHash string `json:"-"`
	}

	// SupplyType is a category label attached to an expense.
	SupplyType struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	// Category classifies a listed item (Toys, Electronics, ...).
	Category struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	// ListingType names the marketplace listing kind (auction, buy-it-now, ...).
	ListingType struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	// WeightType maps a weight class to the percentage used when an item's
	// cost is derived from the weight of a bulk purchase.
	WeightType struct {
		ID         int64   `json:"id"`
		Type       string  `json:"type"`
		Percentage float64 `json:"percentage"`
	}

	// Expense is a purchase of reselling supplies.
	Expense struct {
		ID            int64  `json:"id"`
		UserID        int64  `json:"user_id"`
		Cost          Money  `json:"cost"`
		DatePurchased Date   `json:"date_purchased"`
		SupplyTypeID  int64  `json:"supply_type_id"`
		ImageRef      string `json:"image,omitempty"`
	}

	// Item is a marketplace listing. It is "sold" once SoldDate is set.
	Item struct {
		ID               int64   `json:"id"`
		UserID           int64   `json:"user_id"`
		Title            string  `json:"title"`
		UniqueItemID     int64   `json:"unique_item_id"`
		CategoryID       int64   `json:"category_id"`
		ListingTypeID    int64   `json:"listing_type_id"`
		WeightTypeID     int64   `json:"weight_type_id"`
		ItemWeight       float64 `json:"item_weight"`
		Notes            string  `json:"notes,omitempty"`
		ItemCost         Money   `json:"item_cost"`
		DateListed       Date    `json:"date_listed"`
		ListingFee       Money   `json:"listing_fee"`
		ShippingCost     Money   `json:"shipping_cost"`
		ShippingPaid     Money   `json:"shipping_paid"`
		ItemPaid         Money   `json:"item_paid"`
		FinalValueFee    Money   `json:"final_value_fee"`
		SoldDate         Date    `json:"sold_date"`
		Returned         bool    `json:"returned"`
		ProfitPerItem    Money   `json:"profit_per_item"`
		ProfitPercentage float64 `json:"profit_per_item_percentage"`
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDate       = errors.New("invalid date")
	ErrMissingUser       = errors.New("missing user")
	ErrMissingSupplyType = errors.New("missing supply type")
	ErrEmptyTitle        = errors.New("empty title")
	ErrNotSold           = errors.New("item has no sold date")
)

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month and day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// Year returns the calendar year.
func (d Date) Year() int { return d.Time.Year() }

// Month returns the calendar month, 1 through 12.
func (d Date) Month() int { return int(d.Time.Month()) }

// Day returns the day of the month.
func (d Date) Day() int { return d.Time.Day() }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// MarshalJSON encodes the date as "YYYY-MM-DD", or null for the zero value.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

// UnmarshalJSON accepts "YYYY-MM-DD", null or "" (both meaning no date).
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "null" || s == "" {
		d.Time = time.Time{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = parsed.Time
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Validate rejects negative amounts. Zero is a legal monetary value.
func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if e.UserID <= 0 {
		return ErrMissingUser
	}
	if err := e.DatePurchased.Validate(); err != nil {
		return err
	}
	if err := e.Cost.Validate(); err != nil {
		return err
	}
	if e.SupplyTypeID <= 0 {
		return ErrMissingSupplyType
	}
	return nil
}

// Sold reports whether the item has been sold.
func (it Item) Sold() bool {
	return !it.SoldDate.IsZero()
}

// Profit is the realized margin on a sold item: everything the buyer paid
// minus the cost basis and marketplace fees.
func (it Item) Profit() Money {
	revenue := it.ItemPaid.Cents + it.ShippingPaid.Cents
	outlay := it.ItemCost.Cents + it.ListingFee.Cents + it.ShippingCost.Cents + it.FinalValueFee.Cents
	return Money{Cents: revenue - outlay}
}

// CostBasis is the total spent to acquire, list and ship the item.
func (it Item) CostBasis() Money {
	return Money{Cents: it.ItemCost.Cents + it.ListingFee.Cents + it.ShippingCost.Cents}
}

// ProfitPct returns the profit as a percentage of the cost basis,
// or 0 when the basis is zero.
func (it Item) ProfitPct() float64 {
	basis := it.CostBasis()
	if basis.Cents == 0 {
		return 0
	}
	return it.Profit().Float() / basis.Float() * 100
}

func (it Item) Validate() error {
	if it.UserID <= 0 {
		return ErrMissingUser
	}
	if len(strings.TrimSpace(it.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(it.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if err := it.DateListed.Validate(); err != nil {
		return err
	}
	if it.CategoryID <= 0 {
		return errors.New("missing category")
	}
	if it.ListingTypeID <= 0 {
		return errors.New("missing listing type")
	}
	if it.WeightTypeID <= 0 {
		return errors.New("missing weight type")
	}
	for _, m := range []Money{it.ItemCost, it.ListingFee, it.ShippingCost, it.ShippingPaid, it.ItemPaid, it.FinalValueFee} {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	if it.Sold() && it.SoldDate.Before(it.DateListed.Time) {
		return errors.New("sold date before listing date")
	}
	return nil
}
