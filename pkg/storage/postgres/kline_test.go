package postgres_test

import (
	"context"
	"testing"
	"time"

	"klinewatch/internal/mexc/memorystore"
	"klinewatch/pkg/mexc"
	"klinewatch/pkg/storage/postgres"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestToKlineRecord
func TestToKlineRecord(t *testing.T) {
	c := memorystore.Candle{OpenTime: 1700000100000, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 7}

	rec, err := postgres.ToKlineRecord("BTC_USDT", mexc.Interval15Min, c)
	require.NoError(t, err)
	assert.Equal(t, "15m", rec.Interval)
	assert.Equal(t, time.UnixMilli(1700000100000).UTC(), rec.OpenTime)
	assert.Equal(t, rec.OpenTime.Add(15*time.Minute), rec.CloseTime)
	assert.Equal(t, c, rec.Candle())

	_, err = postgres.ToKlineRecord("BTC_USDT", "7m", c)
	assert.Error(t, err)
	_, err = postgres.ToKlineRecord("BTC_USDT", mexc.Interval15Min, memorystore.Candle{})
	assert.Error(t, err)
}

// go test -v --run TestKlineUpsert
func TestKlineUpsert(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()

	open := time.Now().Truncate(time.Hour).UnixMilli()
	symbol := "TEST_USDT"
	c := memorystore.Candle{OpenTime: open, Open: 31400, High: 31600, Low: 31300, Close: 31500, Volume: 123.45}

	rec, err := postgres.ToKlineRecord(symbol, mexc.Interval60Min, c)
	require.NoError(t, err)
	require.NoError(t, client.UpsertKline(ctx, rec))

	// a second archive of the same bar overwrites it
	c.Close = 31550
	rec, err = postgres.ToKlineRecord(symbol, mexc.Interval60Min, c)
	require.NoError(t, err)
	require.NoError(t, client.UpsertKline(ctx, rec))

	got, err := client.GetKline(ctx, symbol, mexc.Interval60Min, time.UnixMilli(open))
	require.NoError(t, err)
	assert.Equal(t, 31550.0, got.Close)

	prev, err := postgres.ToKlineRecord(symbol, mexc.Interval60Min, memorystore.Candle{
		OpenTime: open - time.Hour.Milliseconds(), Open: 1, High: 1, Low: 1, Close: 1, Volume: 1,
	})
	require.NoError(t, err)
	require.NoError(t, client.UpsertKlines(ctx, []*postgres.KlineRecord{prev}))

	candles, err := client.RecentCandles(ctx, symbol, mexc.Interval60Min, 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Less(t, candles[0].OpenTime, candles[1].OpenTime)

	require.NoError(t, client.DB.Where("symbol = ?", symbol).Delete(&postgres.KlineRecord{}).Error)
}
