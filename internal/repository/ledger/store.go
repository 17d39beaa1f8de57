package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dvbernardes/pastelbot/internal/config"
	"github.com/dvbernardes/pastelbot/internal/domain/models"
)

// ErrTransport marks failures of the backing blob transport, including
// payloads that cannot be decoded. Callers treat these as operational
// failures, not user errors.
var ErrTransport = errors.New("ledger transport failure")

// Transport abstracts the remote whole-file storage behind the store.
// Find returns an empty id when no file with that name exists yet.
type Transport interface {
	Find(ctx context.Context, name string) (string, error)
	Fetch(ctx context.Context, fileID string) ([]byte, error)
	Replace(ctx context.Context, name string, data []byte, fileID string) (string, error)
}

// Store reads and writes the four typed record collections as whole CSV
// files. It does not merge: callers read-modify-write the full collection,
// and every such cycle must run under Exclusive so concurrent mutations
// cannot clobber each other.
type Store struct {
	transport Transport
	files     config.DriveConfig
	unitCost  decimal.Decimal
	logger    *zap.Logger

	mu sync.Mutex
}

// NewStore builds a typed record store over the given transport. unitCost is
// used to backfill legacy sales payloads that predate the margin column.
func NewStore(transport Transport, files config.DriveConfig, unitCost decimal.Decimal, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		transport: transport,
		files:     files,
		unitCost:  unitCost,
		logger:    logger,
	}
}

// Exclusive serializes a read-modify-write cycle against the store. All
// mutating operations (stock declaration, sale, consumption, closure
// resolution) must run inside it; read-only paths may skip it.
func (s *Store) Exclusive(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// LoadStock returns every stock entry. An absent or empty backing file
// yields an empty slice, not an error.
func (s *Store) LoadStock(ctx context.Context) ([]models.StockEntry, error) {
	data, err := s.fetch(ctx, s.files.StockFile)
	if err != nil {
		return nil, err
	}
	entries, err := decodeStock(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrTransport, s.files.StockFile, err)
	}
	return entries, nil
}

// SaveStock replaces the whole stock collection.
func (s *Store) SaveStock(ctx context.Context, entries []models.StockEntry) error {
	return s.save(ctx, s.files.StockFile, encodeStock(entries))
}

// LoadSales returns every sale record. Legacy payloads without the unit_cost
// and margin columns are backfilled in memory using the configured unit cost.
func (s *Store) LoadSales(ctx context.Context) ([]models.SaleRecord, error) {
	data, err := s.fetch(ctx, s.files.SalesFile)
	if err != nil {
		return nil, err
	}
	sales, upgraded, err := decodeSales(data, s.unitCost)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrTransport, s.files.SalesFile, err)
	}
	if upgraded > 0 {
		s.logger.Info("backfilled legacy sales rows", zap.Int("rows", upgraded))
	}
	return sales, nil
}

// SaveSales replaces the whole sales collection.
func (s *Store) SaveSales(ctx context.Context, sales []models.SaleRecord) error {
	return s.save(ctx, s.files.SalesFile, encodeSales(sales))
}

// LoadConsumption returns every personal-consumption record.
func (s *Store) LoadConsumption(ctx context.Context) ([]models.ConsumptionRecord, error) {
	data, err := s.fetch(ctx, s.files.ConsumptionFile)
	if err != nil {
		return nil, err
	}
	records, err := decodeConsumption(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrTransport, s.files.ConsumptionFile, err)
	}
	return records, nil
}

// SaveConsumption replaces the whole consumption collection.
func (s *Store) SaveConsumption(ctx context.Context, records []models.ConsumptionRecord) error {
	return s.save(ctx, s.files.ConsumptionFile, encodeConsumption(records))
}

// LoadClosures returns every end-of-day closure record.
func (s *Store) LoadClosures(ctx context.Context) ([]models.ClosureRecord, error) {
	data, err := s.fetch(ctx, s.files.ClosuresFile)
	if err != nil {
		return nil, err
	}
	closures, err := decodeClosures(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrTransport, s.files.ClosuresFile, err)
	}
	return closures, nil
}

// SaveClosures replaces the whole closure collection.
func (s *Store) SaveClosures(ctx context.Context, closures []models.ClosureRecord) error {
	return s.save(ctx, s.files.ClosuresFile, encodeClosures(closures))
}

// ExportSales returns the raw sales CSV bytes as stored, or nil when no
// sales file exists yet.
func (s *Store) ExportSales(ctx context.Context) ([]byte, error) {
	fileID, err := s.transport.Find(ctx, s.files.SalesFile)
	if err != nil {
		return nil, fmt.Errorf("%w: find %s: %v", ErrTransport, s.files.SalesFile, err)
	}
	if fileID == "" {
		return nil, nil
	}
	data, err := s.transport.Fetch(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrTransport, s.files.SalesFile, err)
	}
	return data, nil
}

func (s *Store) fetch(ctx context.Context, name string) ([]byte, error) {
	fileID, err := s.transport.Find(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: find %s: %v", ErrTransport, name, err)
	}
	if fileID == "" {
		return nil, nil
	}
	data, err := s.transport.Fetch(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrTransport, name, err)
	}
	return data, nil
}

func (s *Store) save(ctx context.Context, name string, data []byte) error {
	fileID, err := s.transport.Find(ctx, name)
	if err != nil {
		return fmt.Errorf("%w: find %s: %v", ErrTransport, name, err)
	}
	if _, err := s.transport.Replace(ctx, name, data, fileID); err != nil {
		return fmt.Errorf("%w: replace %s: %v", ErrTransport, name, err)
	}
	s.logger.Debug("collection persisted", zap.String("file", name), zap.Int("bytes", len(data)))
	return nil
}
