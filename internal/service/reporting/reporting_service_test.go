package reporting

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvbernardes/pastelbot/internal/config"
	"github.com/dvbernardes/pastelbot/internal/domain/models"
	"github.com/dvbernardes/pastelbot/internal/repository/ledger"
)

var testNow = time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC)

func testBusiness() config.BusinessConfig {
	return config.BusinessConfig{
		Flavors:   []models.Flavor{"carne", "frango"},
		UnitPrice: decimal.RequireFromString("10.00"),
		UnitCost:  decimal.RequireFromString("4.50"),
		Location:  time.UTC,
	}
}

type fixture struct {
	reporting *Service
	store     *ledger.Store
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	business := testBusiness()
	files := config.DriveConfig{
		SalesFile:       "vendas.csv",
		StockFile:       "estoque.csv",
		ConsumptionFile: "consumo.csv",
		ClosuresFile:    "fechamentos.csv",
	}
	store := ledger.NewStore(ledger.NewMemoryTransport(), files, business.UnitCost, nil)

	repSvc := NewService(store, business, nil)
	repSvc.now = func() time.Time { return testNow }
	return fixture{reporting: repSvc, store: store}
}

// seedDay persists stock carne=10, a sale of 4 and a consumption of 2 on the
// frozen test date.
func (f fixture) seedDay(t *testing.T, ctx context.Context) {
	t.Helper()
	today := models.CivilDay(testNow, time.UTC)
	require.NoError(t, f.store.SaveStock(ctx, []models.StockEntry{
		{Date: today, Flavor: "carne", Initial: 10},
	}))
	require.NoError(t, f.store.SaveSales(ctx, []models.SaleRecord{saleOn(testNow, "carne", 4)}))
	require.NoError(t, f.store.SaveConsumption(ctx, []models.ConsumptionRecord{
		{Timestamp: testNow, Flavor: "carne", Quantity: 2, TotalCost: decimal.RequireFromString("9.00")},
	}))
}

func TestBuildDailyReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedDay(t, ctx)

	report, err := f.reporting.BuildDailyReport(ctx, f.reporting.Today())
	require.NoError(t, err)

	assert.True(t, report.StockDeclared)
	assert.Equal(t, 4, report.UnitsSold)
	assert.Equal(t, "40.00", report.GrossRevenue.StringFixed(2))
	assert.Equal(t, "22.00", report.Margin.StringFixed(2))
	assert.Equal(t, "45.00", report.StockInvestment.StringFixed(2))
	assert.Equal(t, "9.00", report.ConsumptionCost.StringFixed(2))
	assert.Equal(t, "13.00", report.NetResult.StringFixed(2))

	require.Len(t, report.Lines, 2)
	assert.Equal(t, models.FlavorLine{Flavor: "carne", Initial: 10, Sold: 4, Consumed: 2}, report.Lines[0])
	assert.Equal(t, 4, report.Lines[0].Leftover())
	assert.Equal(t, models.FlavorLine{Flavor: "frango"}, report.Lines[1], "undeclared flavor renders as zeros in the line section")
}

func TestBuildDailyReportUndeclaredStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Sales exist from a legacy payload but no stock was ever declared today.
	sale := models.SaleRecord{
		Timestamp: testNow,
		Flavor:    "carne",
		Quantity:  2,
		UnitPrice: decimal.RequireFromString("10.00"),
		UnitCost:  decimal.RequireFromString("4.50"),
		Total:     decimal.RequireFromString("20.00"),
		Margin:    decimal.RequireFromString("11.00"),
	}
	require.NoError(t, f.store.SaveSales(ctx, []models.SaleRecord{sale}))

	report, err := f.reporting.BuildDailyReport(ctx, f.reporting.Today())
	require.NoError(t, err)

	assert.False(t, report.StockDeclared)
	assert.Equal(t, 2, report.UnitsSold)
	assert.Equal(t, "20.00", report.GrossRevenue.StringFixed(2))
	assert.Empty(t, report.Lines)
	assert.False(t, report.HasLeftovers())
}

func TestBuildDailyReportEmptyDay(t *testing.T) {
	f := newFixture(t)

	report, err := f.reporting.BuildDailyReport(context.Background(), f.reporting.Today())
	require.NoError(t, err)

	assert.False(t, report.StockDeclared)
	assert.Zero(t, report.UnitsSold)
	assert.Equal(t, "0.00", report.GrossRevenue.StringFixed(2))
}

func TestProfitWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sales := []models.SaleRecord{
		saleOn(testNow, "carne", 4),
		saleOn(testNow.AddDate(0, 0, -2), "frango", 2),
		saleOn(testNow.AddDate(0, 0, -10), "carne", 8),
	}
	require.NoError(t, f.store.SaveSales(ctx, sales))

	summary, err := f.reporting.ProfitWindow(ctx, 7)
	require.NoError(t, err)

	assert.Equal(t, 6, summary.Units, "the ten-day-old sale falls outside the window")
	assert.Equal(t, "33.00", summary.Total.StringFixed(2), "margin 6*5.50")
	assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), summary.From)
	assert.Equal(t, time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), summary.To)
}

func TestProfitSeries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sales := []models.SaleRecord{
		saleOn(testNow, "carne", 1),
		saleOn(testNow, "frango", 1),
		saleOn(testNow.AddDate(0, 0, -1), "carne", 2),
	}
	require.NoError(t, f.store.SaveSales(ctx, sales))

	points, err := f.reporting.ProfitSeries(ctx, 7)
	require.NoError(t, err)

	require.Len(t, points, 2)
	assert.True(t, points[0].Date.Before(points[1].Date), "series is ordered by date")
	assert.Equal(t, "11.00", points[0].Margin.StringFixed(2))
	assert.Equal(t, "11.00", points[1].Margin.StringFixed(2))
}

func saleOn(ts time.Time, flavor models.Flavor, qty int) models.SaleRecord {
	price := decimal.RequireFromString("10.00")
	cost := decimal.RequireFromString("4.50")
	q := decimal.NewFromInt(int64(qty))
	total := price.Mul(q)
	return models.SaleRecord{
		Timestamp: ts,
		Flavor:    flavor,
		Quantity:  qty,
		UnitPrice: price,
		UnitCost:  cost,
		Total:     total,
		Margin:    total.Sub(cost.Mul(q)),
	}
}
