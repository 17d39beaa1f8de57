package closure

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvbernardes/pastelbot/internal/config"
	"github.com/dvbernardes/pastelbot/internal/domain/models"
	"github.com/dvbernardes/pastelbot/internal/repository/ledger"
	"github.com/dvbernardes/pastelbot/internal/service/reporting"
)

var (
	testNow   = time.Date(2026, 8, 30, 21, 0, 0, 0, time.UTC)
	today     = time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	tomorrow  = time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	sessionID = "chat-42"
)

type archiveSpy struct {
	records []models.ClosureRecord
	err     error
}

func (a *archiveSpy) ArchiveClosure(_ context.Context, record models.ClosureRecord) error {
	if a.err != nil {
		return a.err
	}
	a.records = append(a.records, record)
	return nil
}

type fixture struct {
	svc       *Service
	store     *ledger.Store
	transport *ledger.MemoryTransport
	archive   *archiveSpy
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	business := config.BusinessConfig{
		Flavors:   []models.Flavor{"carne", "frango"},
		UnitPrice: decimal.RequireFromString("10.00"),
		UnitCost:  decimal.RequireFromString("4.50"),
		Location:  time.UTC,
	}
	files := config.DriveConfig{
		SalesFile:       "vendas.csv",
		StockFile:       "estoque.csv",
		ConsumptionFile: "consumo.csv",
		ClosuresFile:    "fechamentos.csv",
	}
	transport := ledger.NewMemoryTransport()
	store := ledger.NewStore(transport, files, business.UnitCost, nil)
	archive := &archiveSpy{}

	svc := NewService(store, reporting.NewService(store, business, nil), archive, business, nil)
	svc.now = func() time.Time { return testNow }
	return fixture{svc: svc, store: store, transport: transport, archive: archive}
}

// seedLeftoverDay declares carne=10/frango=5, sells 4 carne and all 5 frango,
// consumes 3 carne. Leftovers: carne 3, frango 0.
func (f fixture) seedLeftoverDay(t *testing.T, ctx context.Context) {
	t.Helper()
	require.NoError(t, f.store.SaveStock(ctx, []models.StockEntry{
		{Date: today, Flavor: "carne", Initial: 10},
		{Date: today, Flavor: "frango", Initial: 5},
	}))
	require.NoError(t, f.store.SaveSales(ctx, []models.SaleRecord{
		newSale(testNow, "carne", 4),
		newSale(testNow, "frango", 5),
	}))
	require.NoError(t, f.store.SaveConsumption(ctx, []models.ConsumptionRecord{
		{Timestamp: testNow, Flavor: "carne", Quantity: 3, TotalCost: decimal.RequireFromString("13.50")},
	}))
}

// seedSoldOutDay declares carne=4 and sells all of it.
func (f fixture) seedSoldOutDay(t *testing.T, ctx context.Context) {
	t.Helper()
	require.NoError(t, f.store.SaveStock(ctx, []models.StockEntry{
		{Date: today, Flavor: "carne", Initial: 4},
	}))
	require.NoError(t, f.store.SaveSales(ctx, []models.SaleRecord{newSale(testNow, "carne", 4)}))
}

func TestBeginWithoutLeftoversCommitsImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedSoldOutDay(t, ctx)

	outcome, err := f.svc.Begin(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, PhaseDone, outcome.Phase)

	closures, err := f.store.LoadClosures(ctx)
	require.NoError(t, err)
	require.Len(t, closures, 1)
	assert.Equal(t, 4, closures[0].UnitsSold)
	assert.Equal(t, map[models.Flavor]int{"carne": 0}, closures[0].Leftovers)

	require.Len(t, f.archive.records, 1)

	_, err = f.svc.Resolve(ctx, sessionID, DecisionAccept)
	assert.ErrorIs(t, err, ErrNoPendingClosure, "nothing should stay pending")
}

func TestBeginUndeclaredStockCommitsImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	outcome, err := f.svc.Begin(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, PhaseDone, outcome.Phase)
	assert.False(t, outcome.Report.StockDeclared)

	closures, err := f.store.LoadClosures(ctx)
	require.NoError(t, err)
	assert.Len(t, closures, 1)
}

func TestBeginWithLeftoversAwaitsDecision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedLeftoverDay(t, ctx)

	outcome, err := f.svc.Begin(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, PhaseAwaitingDecision, outcome.Phase)
	assert.Equal(t, map[models.Flavor]int{"carne": 3, "frango": 0}, outcome.Report.Leftovers())

	closures, err := f.store.LoadClosures(ctx)
	require.NoError(t, err)
	assert.Empty(t, closures, "nothing persists until the operator decides")
	assert.Empty(t, f.archive.records)
}

func TestResolveAcceptCarriesLeftoversOver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedLeftoverDay(t, ctx)

	_, err := f.svc.Begin(ctx, sessionID)
	require.NoError(t, err)

	outcome, err := f.svc.Resolve(ctx, sessionID, DecisionAccept)
	require.NoError(t, err)
	assert.Equal(t, PhaseDone, outcome.Phase)

	closures, err := f.store.LoadClosures(ctx)
	require.NoError(t, err)
	require.Len(t, closures, 1)
	assert.Equal(t, "36.00", closures[0].NetResult.StringFixed(2), "margin 49.50 minus consumption 13.50")

	stock, err := f.store.LoadStock(ctx)
	require.NoError(t, err)

	var carried []models.StockEntry
	for _, entry := range stock {
		if models.SameDay(entry.Date, tomorrow) {
			carried = append(carried, entry)
		}
	}
	require.Len(t, carried, 1, "only flavors with leftover > 0 carry over")
	assert.Equal(t, models.StockEntry{Date: tomorrow, Flavor: "carne", Initial: 3}, carried[0])

	require.Len(t, f.archive.records, 1)
}

func TestResolveDeclineDiscardsLeftovers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedLeftoverDay(t, ctx)

	// A superseded closure of the same day already carried carne over.
	require.NoError(t, f.store.Exclusive(func() error {
		stock, err := f.store.LoadStock(ctx)
		if err != nil {
			return err
		}
		return f.store.SaveStock(ctx, append(stock, models.StockEntry{Date: tomorrow, Flavor: "carne", Initial: 7}))
	}))

	_, err := f.svc.Begin(ctx, sessionID)
	require.NoError(t, err)
	outcome, err := f.svc.Resolve(ctx, sessionID, DecisionDecline)
	require.NoError(t, err)
	assert.Equal(t, PhaseDone, outcome.Phase)

	stock, err := f.store.LoadStock(ctx)
	require.NoError(t, err)
	for _, entry := range stock {
		assert.False(t, models.SameDay(entry.Date, tomorrow), "decline must remove the stale carryover, found %+v", entry)
	}

	closures, err := f.store.LoadClosures(ctx)
	require.NoError(t, err)
	assert.Len(t, closures, 1)
}

func TestResolveCancelPersistsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedLeftoverDay(t, ctx)

	_, err := f.svc.Begin(ctx, sessionID)
	require.NoError(t, err)

	outcome, err := f.svc.Resolve(ctx, sessionID, DecisionCancel)
	require.NoError(t, err)
	assert.Equal(t, PhaseCancelled, outcome.Phase)

	closures, err := f.store.LoadClosures(ctx)
	require.NoError(t, err)
	assert.Empty(t, closures)

	_, err = f.svc.Resolve(ctx, sessionID, DecisionAccept)
	assert.ErrorIs(t, err, ErrNoPendingClosure)
}

func TestResolveWithoutPending(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Resolve(context.Background(), "unknown-session", DecisionAccept)
	assert.ErrorIs(t, err, ErrNoPendingClosure)
}

func TestReclosingReplacesPriorRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedSoldOutDay(t, ctx)

	_, err := f.svc.Begin(ctx, sessionID)
	require.NoError(t, err)

	// A late sale arrives after the first closure; the operator closes again.
	sales, err := f.store.LoadSales(ctx)
	require.NoError(t, err)
	require.NoError(t, f.store.SaveStock(ctx, []models.StockEntry{{Date: today, Flavor: "carne", Initial: 5}}))
	require.NoError(t, f.store.SaveSales(ctx, append(sales, newSale(testNow, "carne", 1))))

	_, err = f.svc.Begin(ctx, sessionID)
	require.NoError(t, err)

	closures, err := f.store.LoadClosures(ctx)
	require.NoError(t, err)
	require.Len(t, closures, 1, "re-closing replaces, never duplicates")
	assert.Equal(t, 5, closures[0].UnitsSold)
}

func TestResolvePersistFailureKeepsPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedLeftoverDay(t, ctx)

	_, err := f.svc.Begin(ctx, sessionID)
	require.NoError(t, err)

	f.transport.ReplaceErr = errors.New("drive outage")
	outcome, err := f.svc.Resolve(ctx, sessionID, DecisionAccept)
	require.Error(t, err)
	assert.Equal(t, PhaseAwaitingDecision, outcome.Phase)
	assert.Empty(t, f.archive.records)

	// The outage clears and the same decision succeeds on retry.
	f.transport.ReplaceErr = nil
	outcome, err = f.svc.Resolve(ctx, sessionID, DecisionAccept)
	require.NoError(t, err)
	assert.Equal(t, PhaseDone, outcome.Phase)
}

func TestArchiveFailureDoesNotBlockClosure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedSoldOutDay(t, ctx)
	f.archive.err = errors.New("mongo unavailable")

	outcome, err := f.svc.Begin(ctx, sessionID)
	require.NoError(t, err, "archiving is best effort")
	assert.Equal(t, PhaseDone, outcome.Phase)
}

func newSale(ts time.Time, flavor models.Flavor, qty int) models.SaleRecord {
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
