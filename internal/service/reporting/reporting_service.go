package reporting

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dvbernardes/pastelbot/internal/config"
	"github.com/dvbernardes/pastelbot/internal/domain/models"
	"github.com/dvbernardes/pastelbot/internal/repository/ledger"
)

// ProfitSummary is the accumulated sales margin over a trailing window.
type ProfitSummary struct {
	From  time.Time
	To    time.Time
	Total decimal.Decimal
	Units int
}

// Service aggregates the record streams into daily and periodic reports.
// All paths are read-only: a snapshot is taken without the store lock.
type Service struct {
	store    *ledger.Store
	business config.BusinessConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires a new reporting service instance.
func NewService(store *ledger.Store, business config.BusinessConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		business: business,
		logger:   logger,
		now:      time.Now,
	}
}

// Today returns the current civil date in the business timezone.
func (s *Service) Today() time.Time {
	return models.CivilDay(s.now(), s.business.Location)
}

// BuildDailyReport aggregates sales, stock and consumption for one civil
// date. When no opening stock was declared for the date the stock section is
// undeclared (not zero): only the sales figures are filled in and no net
// result is computed.
func (s *Service) BuildDailyReport(ctx context.Context, date time.Time) (models.DailyReport, error) {
	stock, err := s.store.LoadStock(ctx)
	if err != nil {
		return models.DailyReport{}, err
	}
	sales, err := s.store.LoadSales(ctx)
	if err != nil {
		return models.DailyReport{}, err
	}
	consumption, err := s.store.LoadConsumption(ctx)
	if err != nil {
		return models.DailyReport{}, err
	}

	report := models.DailyReport{
		Date:         date,
		GrossRevenue: decimal.Zero,
		Margin:       decimal.Zero,
	}

	// Opening stock is last-write-wins per flavor.
	initials := make(map[models.Flavor]int)
	for _, entry := range stock {
		if models.SameDay(entry.Date, date) {
			initials[entry.Flavor] = entry.Initial
			report.StockDeclared = true
		}
	}

	soldByFlavor := make(map[models.Flavor]int)
	for _, sale := range sales {
		if !models.SameDay(models.CivilDay(sale.Timestamp, s.business.Location), date) {
			continue
		}
		report.UnitsSold += sale.Quantity
		report.GrossRevenue = report.GrossRevenue.Add(sale.Total)
		report.Margin = report.Margin.Add(sale.Margin)
		soldByFlavor[sale.Flavor] += sale.Quantity
	}

	consumedByFlavor := make(map[models.Flavor]int)
	consumptionCost := decimal.Zero
	for _, rec := range consumption {
		if !models.SameDay(models.CivilDay(rec.Timestamp, s.business.Location), date) {
			continue
		}
		consumedByFlavor[rec.Flavor] += rec.Quantity
		consumptionCost = consumptionCost.Add(rec.TotalCost)
	}

	if !report.StockDeclared {
		return report, nil
	}

	investment := decimal.Zero
	for _, initial := range initials {
		investment = investment.Add(s.business.UnitCost.Mul(decimal.NewFromInt(int64(initial))))
	}
	report.StockInvestment = investment
	report.ConsumptionCost = consumptionCost
	report.NetResult = report.Margin.Sub(consumptionCost)

	for _, flavor := range s.business.Flavors {
		report.Lines = append(report.Lines, models.FlavorLine{
			Flavor:   flavor,
			Initial:  initials[flavor],
			Sold:     soldByFlavor[flavor],
			Consumed: consumedByFlavor[flavor],
		})
	}

	return report, nil
}

// ProfitWindow accumulates the sales margin over the trailing number of
// days, today included.
func (s *Service) ProfitWindow(ctx context.Context, days int) (ProfitSummary, error) {
	to := s.Today()
	from := to.AddDate(0, 0, -(days - 1))

	sales, err := s.store.LoadSales(ctx)
	if err != nil {
		return ProfitSummary{}, err
	}

	summary := ProfitSummary{From: from, To: to, Total: decimal.Zero}
	for _, sale := range sales {
		day := models.CivilDay(sale.Timestamp, s.business.Location)
		if day.Before(from) || day.After(to) {
			continue
		}
		summary.Total = summary.Total.Add(sale.Margin)
		summary.Units += sale.Quantity
	}
	return summary, nil
}

// ProfitSeries groups the window's sales margin by civil day, ordered by
// date. Days without sales are omitted.
func (s *Service) ProfitSeries(ctx context.Context, days int) ([]models.ProfitPoint, error) {
	to := s.Today()
	from := to.AddDate(0, 0, -(days - 1))

	sales, err := s.store.LoadSales(ctx)
	if err != nil {
		return nil, err
	}

	byDay := make(map[time.Time]decimal.Decimal)
	for _, sale := range sales {
		day := models.CivilDay(sale.Timestamp, s.business.Location)
		if day.Before(from) || day.After(to) {
			continue
		}
		total, ok := byDay[day]
		if !ok {
			total = decimal.Zero
		}
		byDay[day] = total.Add(sale.Margin)
	}

	points := make([]models.ProfitPoint, 0, len(byDay))
	for day, margin := range byDay {
		points = append(points, models.ProfitPoint{Date: day, Margin: margin})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}
