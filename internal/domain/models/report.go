package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FlavorLine is the per-flavor stock accounting inside a daily report.
type FlavorLine struct {
	Flavor   Flavor
	Initial  int
	Sold     int
	Consumed int
}

// Leftover is the available stock remaining for this flavor.
func (l FlavorLine) Leftover() int {
	return l.Initial - l.Sold - l.Consumed
}

// DailyReport aggregates sales, stock and consumption for one civil date.
// When StockDeclared is false only the sales figures are meaningful: the
// stock section is undeclared (not zero) and NetResult cannot be computed.
type DailyReport struct {
	Date          time.Time
	StockDeclared bool

	UnitsSold    int
	GrossRevenue decimal.Decimal
	Margin       decimal.Decimal

	StockInvestment decimal.Decimal
	ConsumptionCost decimal.Decimal
	NetResult       decimal.Decimal

	// Lines follows the configured flavor order, one entry per declared flavor.
	Lines []FlavorLine
}

// Leftovers maps each declared flavor to its remaining units.
func (r DailyReport) Leftovers() map[Flavor]int {
	out := make(map[Flavor]int, len(r.Lines))
	for _, line := range r.Lines {
		out[line.Flavor] = line.Leftover()
	}
	return out
}

// HasLeftovers reports whether any flavor still has units remaining.
// Undeclared stock counts as no leftover.
func (r DailyReport) HasLeftovers() bool {
	for _, line := range r.Lines {
		if line.Leftover() > 0 {
			return true
		}
	}
	return false
}

// Closure derives the durable closure record for this report.
func (r DailyReport) Closure() ClosureRecord {
	return ClosureRecord{
		Date:            r.Date,
		UnitsSold:       r.UnitsSold,
		GrossRevenue:    r.GrossRevenue,
		Margin:          r.Margin,
		StockInvestment: r.StockInvestment,
		ConsumptionCost: r.ConsumptionCost,
		NetResult:       r.NetResult,
		Leftovers:       r.Leftovers(),
	}
}

// ProfitPoint is one civil day's sales margin, used by the profit series.
type ProfitPoint struct {
	Date   time.Time
	Margin decimal.Decimal
}
