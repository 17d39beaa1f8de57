package ledger

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvbernardes/pastelbot/internal/domain/models"
)

// Collections serialize as UTF-8 CSV with a header row. The first column is
// always the temporal key: RFC3339 UTC instants for event streams, civil
// dates for stock and closures.

var (
	stockHeader       = []string{"date", "flavor", "initial_quantity"}
	salesHeader       = []string{"timestamp", "flavor", "quantity", "unit_price", "unit_cost", "total_amount", "margin"}
	consumptionHeader = []string{"timestamp", "flavor", "quantity", "total_cost"}
	closuresHeader    = []string{"date", "units_sold", "gross_revenue", "margin", "stock_investment", "consumption_cost", "net_result", "leftovers"}
)

func encodeStock(entries []models.StockEntry) []byte {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Date.Format(models.DateLayout),
			string(e.Flavor),
			strconv.Itoa(e.Initial),
		})
	}
	return writeCSV(stockHeader, rows)
}

func decodeStock(data []byte) ([]models.StockEntry, error) {
	rows, err := readCSV(data)
	if err != nil {
		return nil, err
	}
	entries := make([]models.StockEntry, 0, len(rows))
	for i, row := range rows {
		if len(row) < 3 {
			return nil, fmt.Errorf("stock row %d: expected 3 columns, got %d", i+1, len(row))
		}
		date, err := time.ParseInLocation(models.DateLayout, row[0], time.UTC)
		if err != nil {
			return nil, fmt.Errorf("stock row %d: %w", i+1, err)
		}
		qty, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, fmt.Errorf("stock row %d: %w", i+1, err)
		}
		entries = append(entries, models.StockEntry{Date: date, Flavor: models.Flavor(row[1]), Initial: qty})
	}
	return entries, nil
}

func encodeSales(sales []models.SaleRecord) []byte {
	rows := make([][]string, 0, len(sales))
	for _, s := range sales {
		rows = append(rows, []string{
			s.Timestamp.UTC().Format(time.RFC3339),
			string(s.Flavor),
			strconv.Itoa(s.Quantity),
			s.UnitPrice.String(),
			s.UnitCost.String(),
			s.Total.String(),
			s.Margin.String(),
		})
	}
	return writeCSV(salesHeader, rows)
}

// decodeSales parses the sales collection by header name so older payloads
// that predate the unit_cost and margin columns remain loadable: the missing
// cost defaults to the configured unit cost and margin is recomputed. The
// second return value counts backfilled rows.
func decodeSales(data []byte, unitCost decimal.Decimal) ([]models.SaleRecord, int, error) {
	header, rows, err := readCSVWithHeader(data)
	if err != nil {
		return nil, 0, err
	}
	if len(rows) == 0 {
		return []models.SaleRecord{}, 0, nil
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"timestamp", "flavor", "quantity", "unit_price", "total_amount"} {
		if _, ok := col[required]; !ok {
			return nil, 0, fmt.Errorf("sales header missing %q column", required)
		}
	}
	_, hasCost := col["unit_cost"]
	_, hasMargin := col["margin"]

	sales := make([]models.SaleRecord, 0, len(rows))
	upgraded := 0
	for i, row := range rows {
		if len(row) < len(header) {
			return nil, 0, fmt.Errorf("sales row %d: expected %d columns, got %d", i+1, len(header), len(row))
		}
		ts, err := time.Parse(time.RFC3339, row[col["timestamp"]])
		if err != nil {
			return nil, 0, fmt.Errorf("sales row %d: %w", i+1, err)
		}
		qty, err := strconv.Atoi(row[col["quantity"]])
		if err != nil {
			return nil, 0, fmt.Errorf("sales row %d: %w", i+1, err)
		}
		price, err := decimal.NewFromString(row[col["unit_price"]])
		if err != nil {
			return nil, 0, fmt.Errorf("sales row %d: %w", i+1, err)
		}
		total, err := decimal.NewFromString(row[col["total_amount"]])
		if err != nil {
			return nil, 0, fmt.Errorf("sales row %d: %w", i+1, err)
		}

		record := models.SaleRecord{
			Timestamp: ts.UTC(),
			Flavor:    models.Flavor(row[col["flavor"]]),
			Quantity:  qty,
			UnitPrice: price,
			Total:     total,
		}

		if hasCost && hasMargin {
			cost, err := decimal.NewFromString(row[col["unit_cost"]])
			if err != nil {
				return nil, 0, fmt.Errorf("sales row %d: %w", i+1, err)
			}
			margin, err := decimal.NewFromString(row[col["margin"]])
			if err != nil {
				return nil, 0, fmt.Errorf("sales row %d: %w", i+1, err)
			}
			record.UnitCost = cost
			record.Margin = margin
		} else {
			record.UnitCost = unitCost
			record.Margin = total.Sub(unitCost.Mul(decimal.NewFromInt(int64(qty))))
			upgraded++
		}

		sales = append(sales, record)
	}
	return sales, upgraded, nil
}

func encodeConsumption(records []models.ConsumptionRecord) []byte {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Timestamp.UTC().Format(time.RFC3339),
			string(r.Flavor),
			strconv.Itoa(r.Quantity),
			r.TotalCost.String(),
		})
	}
	return writeCSV(consumptionHeader, rows)
}

func decodeConsumption(data []byte) ([]models.ConsumptionRecord, error) {
	rows, err := readCSV(data)
	if err != nil {
		return nil, err
	}
	records := make([]models.ConsumptionRecord, 0, len(rows))
	for i, row := range rows {
		if len(row) < 4 {
			return nil, fmt.Errorf("consumption row %d: expected 4 columns, got %d", i+1, len(row))
		}
		ts, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			return nil, fmt.Errorf("consumption row %d: %w", i+1, err)
		}
		qty, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, fmt.Errorf("consumption row %d: %w", i+1, err)
		}
		cost, err := decimal.NewFromString(row[3])
		if err != nil {
			return nil, fmt.Errorf("consumption row %d: %w", i+1, err)
		}
		records = append(records, models.ConsumptionRecord{
			Timestamp: ts.UTC(),
			Flavor:    models.Flavor(row[1]),
			Quantity:  qty,
			TotalCost: cost,
		})
	}
	return records, nil
}

func encodeClosures(closures []models.ClosureRecord) []byte {
	rows := make([][]string, 0, len(closures))
	for _, c := range closures {
		leftovers, _ := json.Marshal(c.Leftovers)
		rows = append(rows, []string{
			c.Date.Format(models.DateLayout),
			strconv.Itoa(c.UnitsSold),
			c.GrossRevenue.String(),
			c.Margin.String(),
			c.StockInvestment.String(),
			c.ConsumptionCost.String(),
			c.NetResult.String(),
			string(leftovers),
		})
	}
	return writeCSV(closuresHeader, rows)
}

func decodeClosures(data []byte) ([]models.ClosureRecord, error) {
	rows, err := readCSV(data)
	if err != nil {
		return nil, err
	}
	closures := make([]models.ClosureRecord, 0, len(rows))
	for i, row := range rows {
		if len(row) < 7 {
			return nil, fmt.Errorf("closure row %d: expected at least 7 columns, got %d", i+1, len(row))
		}
		date, err := time.ParseInLocation(models.DateLayout, row[0], time.UTC)
		if err != nil {
			return nil, fmt.Errorf("closure row %d: %w", i+1, err)
		}
		units, err := strconv.Atoi(row[1])
		if err != nil {
			return nil, fmt.Errorf("closure row %d: %w", i+1, err)
		}
		amounts := make([]decimal.Decimal, 5)
		for j := 0; j < 5; j++ {
			amounts[j], err = decimal.NewFromString(row[2+j])
			if err != nil {
				return nil, fmt.Errorf("closure row %d: %w", i+1, err)
			}
		}
		leftovers := map[models.Flavor]int{}
		if len(row) > 7 && row[7] != "" {
			if err := json.Unmarshal([]byte(row[7]), &leftovers); err != nil {
				return nil, fmt.Errorf("closure row %d leftovers: %w", i+1, err)
			}
		}
		closures = append(closures, models.ClosureRecord{
			Date:            date,
			UnitsSold:       units,
			GrossRevenue:    amounts[0],
			Margin:          amounts[1],
			StockInvestment: amounts[2],
			ConsumptionCost: amounts[3],
			NetResult:       amounts[4],
			Leftovers:       leftovers,
		})
	}
	return closures, nil
}

func writeCSV(header []string, rows [][]string) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(header)
	_ = w.WriteAll(rows)
	w.Flush()
	return buf.Bytes()
}

// readCSV returns the data rows, skipping the header. A zero-byte or
// header-only payload yields no rows and no error.
func readCSV(data []byte) ([][]string, error) {
	_, rows, err := readCSVWithHeader(data)
	return rows, err
}

func readCSVWithHeader(data []byte) ([]string, [][]string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil, nil
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(all) == 0 {
		return nil, nil, nil
	}
	return all[0], all[1:], nil
}
