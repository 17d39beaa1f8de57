package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dvbernardes/pastelbot/internal/config"
	"github.com/dvbernardes/pastelbot/internal/domain/models"
	"github.com/dvbernardes/pastelbot/internal/repository/ledger"
)

// ErrInvalidFlavor indicates a flavor outside the configured catalog.
var ErrInvalidFlavor = errors.New("invalid flavor")

// ErrInvalidQuantity indicates a non-positive movement quantity.
var ErrInvalidQuantity = errors.New("quantity must be positive")

// ErrStockNotDeclared indicates no opening stock exists for the day and
// flavor. Distinct from zero stock: sales and consumption are refused until
// the operator declares stock.
var ErrStockNotDeclared = errors.New("stock not declared")

// ErrStockLocked indicates an attempt to redefine opening stock after sales
// or consumption were already recorded against it, which would retroactively
// reinterpret those movements.
var ErrStockLocked = errors.New("stock already has movements")

// InsufficientStockError rejects a movement that would drive availability
// negative, reporting what is currently available.
type InsufficientStockError struct {
	Flavor    models.Flavor
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: %d available", e.Flavor, e.Available)
}

// Availability is the derived stock position for one declared (date, flavor).
type Availability struct {
	Flavor   models.Flavor
	Initial  int
	Sold     int
	Consumed int
}

// Remaining is initial minus everything sold and consumed.
func (a Availability) Remaining() int {
	return a.Initial - a.Sold - a.Consumed
}

// StockItem is one flavor/quantity pair of a stock declaration.
type StockItem struct {
	Flavor   models.Flavor
	Quantity int
}

// Service validates and records stock declarations, sales and personal
// consumption. Every mutation runs as a read-modify-write cycle under the
// store's exclusive lock.
type Service struct {
	store    *ledger.Store
	business config.BusinessConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewService constructs the inventory service.
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

// Snapshot computes the availability of every flavor declared on the given
// civil date. Flavors absent from the result have no opening stock declared.
func (s *Service) Snapshot(ctx context.Context, date time.Time) (map[models.Flavor]Availability, error) {
	stock, err := s.store.LoadStock(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := s.store.LoadSales(ctx)
	if err != nil {
		return nil, err
	}
	consumption, err := s.store.LoadConsumption(ctx)
	if err != nil {
		return nil, err
	}
	return s.snapshot(stock, sales, consumption, date), nil
}

// snapshot is the pure availability computation over loaded collections.
// Opening stock is last-write-wins per (date, flavor).
func (s *Service) snapshot(stock []models.StockEntry, sales []models.SaleRecord, consumption []models.ConsumptionRecord, date time.Time) map[models.Flavor]Availability {
	out := make(map[models.Flavor]Availability)
	for _, entry := range stock {
		if !models.SameDay(entry.Date, date) {
			continue
		}
		out[entry.Flavor] = Availability{Flavor: entry.Flavor, Initial: entry.Initial}
	}
	for _, sale := range sales {
		day := models.CivilDay(sale.Timestamp, s.business.Location)
		if !models.SameDay(day, date) {
			continue
		}
		if avail, ok := out[sale.Flavor]; ok {
			avail.Sold += sale.Quantity
			out[sale.Flavor] = avail
		}
	}
	for _, rec := range consumption {
		day := models.CivilDay(rec.Timestamp, s.business.Location)
		if !models.SameDay(day, date) {
			continue
		}
		if avail, ok := out[rec.Flavor]; ok {
			avail.Consumed += rec.Quantity
			out[rec.Flavor] = avail
		}
	}
	return out
}

// SetStock declares (or redefines) today's opening stock for the given
// flavors, last-write-wins per flavor. Redefining a flavor that already has
// sales or consumption recorded today fails with ErrStockLocked and nothing
// is persisted.
func (s *Service) SetStock(ctx context.Context, items []StockItem) error {
	for _, item := range items {
		if !s.business.IsValidFlavor(item.Flavor) {
			return fmt.Errorf("%w: %s", ErrInvalidFlavor, item.Flavor)
		}
		if item.Quantity < 0 {
			return fmt.Errorf("%w: %s", ErrInvalidQuantity, item.Flavor)
		}
	}

	today := s.Today()
	return s.store.Exclusive(func() error {
		stock, err := s.store.LoadStock(ctx)
		if err != nil {
			return err
		}
		sales, err := s.store.LoadSales(ctx)
		if err != nil {
			return err
		}
		consumption, err := s.store.LoadConsumption(ctx)
		if err != nil {
			return err
		}

		moved := s.snapshot(stock, sales, consumption, today)
		for _, item := range items {
			if avail, ok := moved[item.Flavor]; ok && avail.Sold+avail.Consumed > 0 {
				return fmt.Errorf("%w: %s", ErrStockLocked, item.Flavor)
			}
		}

		for _, item := range items {
			stock = replaceStockEntry(stock, models.StockEntry{
				Date:    today,
				Flavor:  item.Flavor,
				Initial: item.Quantity,
			})
		}

		if err := s.store.SaveStock(ctx, stock); err != nil {
			return err
		}
		s.logger.Info("opening stock declared",
			zap.String("date", today.Format(models.DateLayout)),
			zap.Int("flavors", len(items)))
		return nil
	})
}

// RecordSale validates and appends a sale for today, returning the stored
// record and the remaining availability. A rejected sale leaves the store
// untouched.
func (s *Service) RecordSale(ctx context.Context, flavor models.Flavor, quantity int) (models.SaleRecord, int, error) {
	if !s.business.IsValidFlavor(flavor) {
		return models.SaleRecord{}, 0, fmt.Errorf("%w: %s", ErrInvalidFlavor, flavor)
	}
	if quantity <= 0 {
		return models.SaleRecord{}, 0, ErrInvalidQuantity
	}

	today := s.Today()
	var record models.SaleRecord
	var remaining int

	err := s.store.Exclusive(func() error {
		stock, err := s.store.LoadStock(ctx)
		if err != nil {
			return err
		}
		sales, err := s.store.LoadSales(ctx)
		if err != nil {
			return err
		}
		consumption, err := s.store.LoadConsumption(ctx)
		if err != nil {
			return err
		}

		avail, ok := s.snapshot(stock, sales, consumption, today)[flavor]
		if !ok {
			return fmt.Errorf("%w: %s", ErrStockNotDeclared, flavor)
		}
		if quantity > avail.Remaining() {
			return &InsufficientStockError{Flavor: flavor, Available: avail.Remaining()}
		}

		qty := decimal.NewFromInt(int64(quantity))
		total := s.business.UnitPrice.Mul(qty)
		record = models.SaleRecord{
			Timestamp: s.now().UTC(),
			Flavor:    flavor,
			Quantity:  quantity,
			UnitPrice: s.business.UnitPrice,
			UnitCost:  s.business.UnitCost,
			Total:     total,
			Margin:    total.Sub(s.business.UnitCost.Mul(qty)),
		}
		remaining = avail.Remaining() - quantity

		return s.store.SaveSales(ctx, append(sales, record))
	})
	if err != nil {
		return models.SaleRecord{}, 0, err
	}

	s.logger.Info("sale recorded",
		zap.String("flavor", string(flavor)),
		zap.Int("quantity", quantity),
		zap.Int("remaining", remaining))
	return record, remaining, nil
}

// RecordConsumption validates and appends a personal-consumption movement
// for today. It reduces availability like a sale but carries only cost.
func (s *Service) RecordConsumption(ctx context.Context, flavor models.Flavor, quantity int) (models.ConsumptionRecord, int, error) {
	if !s.business.IsValidFlavor(flavor) {
		return models.ConsumptionRecord{}, 0, fmt.Errorf("%w: %s", ErrInvalidFlavor, flavor)
	}
	if quantity <= 0 {
		return models.ConsumptionRecord{}, 0, ErrInvalidQuantity
	}

	today := s.Today()
	var record models.ConsumptionRecord
	var remaining int

	err := s.store.Exclusive(func() error {
		stock, err := s.store.LoadStock(ctx)
		if err != nil {
			return err
		}
		sales, err := s.store.LoadSales(ctx)
		if err != nil {
			return err
		}
		consumption, err := s.store.LoadConsumption(ctx)
		if err != nil {
			return err
		}

		avail, ok := s.snapshot(stock, sales, consumption, today)[flavor]
		if !ok {
			return fmt.Errorf("%w: %s", ErrStockNotDeclared, flavor)
		}
		if quantity > avail.Remaining() {
			return &InsufficientStockError{Flavor: flavor, Available: avail.Remaining()}
		}

		record = models.ConsumptionRecord{
			Timestamp: s.now().UTC(),
			Flavor:    flavor,
			Quantity:  quantity,
			TotalCost: s.business.UnitCost.Mul(decimal.NewFromInt(int64(quantity))),
		}
		remaining = avail.Remaining() - quantity

		return s.store.SaveConsumption(ctx, append(consumption, record))
	})
	if err != nil {
		return models.ConsumptionRecord{}, 0, err
	}

	s.logger.Info("consumption recorded",
		zap.String("flavor", string(flavor)),
		zap.Int("quantity", quantity),
		zap.Int("remaining", remaining))
	return record, remaining, nil
}

func replaceStockEntry(stock []models.StockEntry, entry models.StockEntry) []models.StockEntry {
	out := stock[:0]
	for _, existing := range stock {
		if models.SameDay(existing.Date, entry.Date) && existing.Flavor == entry.Flavor {
			continue
		}
		out = append(out, existing)
	}
	return append(out, entry)
}
