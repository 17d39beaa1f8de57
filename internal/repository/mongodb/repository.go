package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dvbernardes/pastelbot/internal/domain/models"
)

// Archiver mirrors committed closures into a queryable history.
type Archiver interface {
	ArchiveClosure(ctx context.Context, record models.ClosureRecord) error
}

// ClosureArchive implements Archiver on MongoDB. Closures are keyed by date
// so re-closing a day overwrites its archived copy, matching the ledger.
type ClosureArchive struct {
	client   *mongo.Client
	dbName   string
	collName string
}

type closureDocument struct {
	Date            time.Time      `bson:"date"`
	UnitsSold       int            `bson:"units_sold"`
	GrossRevenue    string         `bson:"gross_revenue"`
	Margin          string         `bson:"margin"`
	StockInvestment string         `bson:"stock_investment"`
	ConsumptionCost string         `bson:"consumption_cost"`
	NetResult       string         `bson:"net_result"`
	Leftovers       map[string]int `bson:"leftovers"`
	ArchivedAt      time.Time      `bson:"archived_at"`
}

// NewClosureArchive connects to MongoDB and verifies the connection.
func NewClosureArchive(ctx context.Context, uri, dbName string) (*ClosureArchive, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &ClosureArchive{
		client:   client,
		dbName:   dbName,
		collName: "closures",
	}, nil
}

// ArchiveClosure upserts the closure document for its date.
func (a *ClosureArchive) ArchiveClosure(ctx context.Context, record models.ClosureRecord) error {
	leftovers := make(map[string]int, len(record.Leftovers))
	for flavor, qty := range record.Leftovers {
		leftovers[string(flavor)] = qty
	}

	doc := closureDocument{
		Date:            record.Date,
		UnitsSold:       record.UnitsSold,
		GrossRevenue:    record.GrossRevenue.StringFixed(2),
		Margin:          record.Margin.StringFixed(2),
		StockInvestment: record.StockInvestment.StringFixed(2),
		ConsumptionCost: record.ConsumptionCost.StringFixed(2),
		NetResult:       record.NetResult.StringFixed(2),
		Leftovers:       leftovers,
		ArchivedAt:      time.Now().UTC(),
	}

	collection := a.client.Database(a.dbName).Collection(a.collName)
	_, err := collection.ReplaceOne(ctx,
		bson.M{"date": record.Date},
		doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to archive closure: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (a *ClosureArchive) Close(ctx context.Context) error {
	return a.client.Disconnect(ctx)
}
