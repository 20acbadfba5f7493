package snapshot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"klinewatch/internal/mexc/memorystore"
	"klinewatch/pkg/mexc"

	"go.uber.org/zap"
)

// DefaultConcurrency bounds parallel REST requests during a backfill.
const DefaultConcurrency = 5

// KlineFetcher is the REST side of the loader; *mexc.RESTClient satisfies it.
type KlineFetcher interface {
	GetRecentKlines(ctx context.Context, symbol string, interval mexc.KlineInterval, limit int) ([]mexc.Kline, error)
}

type KlineLoader struct {
	Fetcher     KlineFetcher
	Store       *memorystore.MemoryKlineStore
	Logger      *zap.Logger
	Limit       int           // bars per series
	Timeout     time.Duration // per request
	Concurrency int
}

// Result summarizes one backfill run.
type Result struct {
	Loaded int // candles upserted
	Failed []mexc.Subscription
}

// Load fetches the most recent Limit bars of every subscription over REST
// and merges them into the store. A failed pair is logged and reported in
// Result.Failed; it never aborts the others.
func (l *KlineLoader) Load(ctx context.Context, subs []mexc.Subscription) Result {
	concurrency := l.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	sem := make(chan struct{}, concurrency)

	var (
		mu  sync.Mutex
		res Result
		wg  sync.WaitGroup
	)
	for _, sub := range subs {
		if ctx.Err() != nil {
			break
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			continue
		}

		wg.Add(1)
		go func(sub mexc.Subscription) {
			defer wg.Done()
			defer func() { <-sem }()

			n, err := l.LoadOne(ctx, sub.Symbol, sub.Interval)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				l.Logger.Warn("backfill failed",
					zap.String("symbol", sub.Symbol), zap.String("interval", string(sub.Interval)), zap.Error(err))
				res.Failed = append(res.Failed, sub)
				return
			}
			res.Loaded += n
			l.Logger.Debug("backfill done",
				zap.String("symbol", sub.Symbol), zap.String("interval", string(sub.Interval)), zap.Int("count", n))
		}(sub)
	}
	wg.Wait()

	l.Logger.Info("backfill finished", zap.Int("candles", res.Loaded), zap.Int("failed_pairs", len(res.Failed)))
	return res
}

// LoadOne backfills a single series and returns the number of candles stored.
func (l *KlineLoader) LoadOne(ctx context.Context, symbol string, interval mexc.KlineInterval) (int, error) {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	limit := l.Limit
	if limit <= 0 {
		limit = l.Store.Capacity()
	}
	klines, err := l.Fetcher.GetRecentKlines(ctx, symbol, interval, limit)
	if err != nil {
		return 0, fmt.Errorf("fetch %s@%s: %w", symbol, interval, err)
	}

	candles := make([]memorystore.Candle, 0, len(klines))
	for _, k := range klines {
		c := memorystore.CandleFromKline(k)
		if c.OpenTime <= 0 || c.Validate() != nil {
			continue
		}
		candles = append(candles, c)
	}
	l.Store.PutMany(memorystore.SeriesKey{Symbol: symbol, Interval: interval}, candles)
	return len(candles), nil
}
