package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the civil-day format used across persisted collections.
const DateLayout = "2006-01-02"

// Flavor identifies one SKU in the configured catalog.
type Flavor string

// Title returns the flavor with its first letter upper-cased for display.
func (f Flavor) Title() string {
	s := string(f)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// CivilDay converts an instant to its calendar date in the given timezone.
// The result is normalized to midnight UTC so dates compare with Equal.
func CivilDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether two normalized civil days fall on the same date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// StockEntry declares the opening quantity for one (date, flavor) pair.
// A later entry for the same key replaces the earlier one.
type StockEntry struct {
	Date    time.Time
	Flavor  Flavor
	Initial int
}

// SaleRecord captures one immutable sale.
type SaleRecord struct {
	Timestamp time.Time
	Flavor    Flavor
	Quantity  int
	UnitPrice decimal.Decimal
	UnitCost  decimal.Decimal
	Total     decimal.Decimal
	Margin    decimal.Decimal
}

// ConsumptionRecord captures inventory removed without a sale. It reduces
// availability exactly like a sale but contributes no revenue.
type ConsumptionRecord struct {
	Timestamp time.Time
	Flavor    Flavor
	Quantity  int
	TotalCost decimal.Decimal
}

// ClosureRecord is the durable end-of-day summary. At most one exists per
// date; re-closing a day replaces it.
type ClosureRecord struct {
	Date            time.Time
	UnitsSold       int
	GrossRevenue    decimal.Decimal
	Margin          decimal.Decimal
	StockInvestment decimal.Decimal
	ConsumptionCost decimal.Decimal
	NetResult       decimal.Decimal
	Leftovers       map[Flavor]int
}
