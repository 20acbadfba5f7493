package postgres

import (
	"context"
	"fmt"
	"time"

	"klinewatch/internal/mexc/memorystore"
	"klinewatch/pkg/mexc"

	"gorm.io/gorm/clause"
)

var klineConflict = clause.OnConflict{
	Columns: []clause.Column{
		{Name: "symbol"},
		{Name: "interval"},
		{Name: "open_time"},
	},
	DoUpdates: clause.AssignmentColumns([]string{"close_time", "open", "close", "high", "low", "volume", "updated_at"}),
}

// UpsertKline archives one closed candle.
func (p *PostgresClient) UpsertKline(ctx context.Context, record *KlineRecord) error {
	if err := p.DB.WithContext(ctx).Clauses(klineConflict).Create(record).Error; err != nil {
		return fmt.Errorf("upsert kline %s %s %s: %w",
			record.Symbol, record.Interval, record.OpenTime.UTC().Format(time.RFC3339), err)
	}
	return nil
}

// UpsertKlines archives records in batches.
func (p *PostgresClient) UpsertKlines(ctx context.Context, records []*KlineRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := p.DB.WithContext(ctx).Clauses(klineConflict).CreateInBatches(records, 500).Error; err != nil {
		return fmt.Errorf("upsert %d klines: %w", len(records), err)
	}
	return nil
}

func (p *PostgresClient) GetKline(ctx context.Context, symbol string, interval mexc.KlineInterval, openTime time.Time) (*KlineRecord, error) {
	var kline KlineRecord
	err := p.DB.WithContext(ctx).
		Where(`symbol = ? AND "interval" = ? AND open_time = ?`, symbol, string(interval), openTime).
		First(&kline).Error
	if err != nil {
		return nil, err
	}
	return &kline, nil
}

// RecentCandles returns up to limit of the most recent archived candles,
// oldest first.
func (p *PostgresClient) RecentCandles(ctx context.Context, symbol string, interval mexc.KlineInterval, limit int) ([]memorystore.Candle, error) {
	var records []KlineRecord
	err := p.DB.WithContext(ctx).
		Where(`symbol = ? AND "interval" = ?`, symbol, string(interval)).
		Order("open_time DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list klines %s %s: %w", symbol, interval, err)
	}

	out := make([]memorystore.Candle, len(records))
	for i, r := range records {
		out[len(records)-1-i] = r.Candle()
	}
	return out, nil
}

// ToKlineRecord converts a closed candle for DB insertion.
func ToKlineRecord(symbol string, interval mexc.KlineInterval, c memorystore.Candle) (*KlineRecord, error) {
	if !interval.IsValid() {
		return nil, fmt.Errorf("unknown interval %q", interval)
	}
	if c.OpenTime <= 0 {
		return nil, fmt.Errorf("invalid open time %d", c.OpenTime)
	}
	open := time.UnixMilli(c.OpenTime).UTC()
	return &KlineRecord{
		Symbol:    symbol,
		Interval:  interval.Meta().DBValue,
		OpenTime:  open,
		CloseTime: open.Add(interval.Duration()),
		Open:      c.Open,
		Close:     c.Close,
		High:      c.High,
		Low:       c.Low,
		Volume:    c.Volume,
	}, nil
}

// Candle converts the record back to a store candle.
func (r KlineRecord) Candle() memorystore.Candle {
	return memorystore.Candle{
		OpenTime: r.OpenTime.UnixMilli(),
		Open:     r.Open,
		High:     r.High,
		Low:      r.Low,
		Close:    r.Close,
		Volume:   r.Volume,
	}
}
