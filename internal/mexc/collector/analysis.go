package collector

import (
	"context"
	"time"

	"klinewatch/internal/indicator"
	"klinewatch/internal/mexc/barclose"
	"klinewatch/internal/mexc/memorystore"
	"klinewatch/internal/notifier"
	"klinewatch/internal/scoring"
	"klinewatch/pkg/mexc"
	"klinewatch/pkg/storage/postgres"

	"go.uber.org/zap"
)

// Process handles one closed-bar event: the finalized candle is archived,
// and a close on the trigger interval scores the symbol. Delivery failures
// are logged and counted, never returned.
func (c *Collector) Process(ctx context.Context, ev barclose.Event) {
	c.archiveClosed(ctx, ev)

	if ev.Interval != c.trigger {
		return
	}

	start := time.Now()
	rec, ok := c.ScoreAt(ctx, ev.Symbol, ev)
	c.Metrics.ScoreDuration.Observe(time.Since(start).Seconds())
	if !ok {
		c.logger.Debug("no signal", zap.String("symbol", ev.Symbol))
		return
	}
	c.Metrics.SignalsTotal.WithLabelValues(string(rec.Direction)).Inc()
	c.logger.Info("scored",
		zap.String("symbol", rec.Symbol),
		zap.String("direction", string(rec.Direction)),
		zap.Float64("composite", rec.Composite),
		zap.String("gate", rec.Gate))

	if rec.Direction != scoring.Neutral {
		if err := c.notifier.Send(ctx, notifier.FormatScore(rec)); err != nil {
			c.Metrics.NotifyFailures.Inc()
			c.logger.Warn("notify failed", zap.String("symbol", rec.Symbol), zap.Error(err))
		}
	}
	if c.publisher != nil {
		if err := c.publisher.Publish(ctx, rec); err != nil {
			c.Metrics.PublishFailures.Inc()
			c.logger.Warn("publish failed", zap.String("symbol", rec.Symbol), zap.Error(err))
		}
	}
}

func (c *Collector) archiveClosed(ctx context.Context, ev barclose.Event) {
	if c.archive == nil {
		return
	}
	candle, ok := c.Store.Get(memorystore.SeriesKey{Symbol: ev.Symbol, Interval: ev.Interval}, ev.OpenTime)
	if !ok {
		// evicted or never stored; nothing final to archive
		return
	}
	rec, err := postgres.ToKlineRecord(ev.Symbol, ev.Interval, candle)
	if err == nil {
		actx, cancel := context.WithTimeout(ctx, archiveTimeout)
		err = c.archive.UpsertKline(actx, rec)
		cancel()
	}
	if err != nil {
		c.Metrics.ArchiveFailures.Inc()
		c.logger.Warn("archive failed",
			zap.String("symbol", ev.Symbol), zap.String("interval", string(ev.Interval)), zap.Error(err))
	}
}

// Score scores symbol on everything currently known.
func (c *Collector) Score(ctx context.Context, symbol string) (scoring.ScoreRecord, bool) {
	return c.ScoreAt(ctx, symbol, barclose.Event{})
}

// ScoreAt scores symbol as of a closed bar: candles of the event's interval
// opened after ev.OpenTime are left out so the score reflects the bar that
// just closed. A zero event scores on everything.
func (c *Collector) ScoreAt(ctx context.Context, symbol string, ev barclose.Event) (scoring.ScoreRecord, bool) {
	series := make(map[mexc.KlineInterval]indicator.Series)
	for _, iv := range c.scorer.Intervals() {
		candles := c.candles(ctx, symbol, iv)
		if iv == ev.Interval && ev.OpenTime > 0 {
			candles = upTo(candles, ev.OpenTime)
		}
		if len(candles) > 0 {
			series[iv] = scoring.SeriesFromCandles(candles)
		}
	}
	return c.scorer.Score(symbol, series)
}

// candles reads a series from the store. Below analysis.min_bars it refills
// the store from the archive, then from REST.
func (c *Collector) candles(ctx context.Context, symbol string, iv mexc.KlineInterval) []memorystore.Candle {
	limit := c.Store.Capacity()
	candles := c.Store.Read(symbol, iv, limit)
	minBars := c.cfg.Analysis.MinBars
	if len(candles) >= minBars {
		return candles
	}
	key := memorystore.SeriesKey{Symbol: symbol, Interval: iv}

	if c.archive != nil {
		archived, err := c.archive.RecentCandles(ctx, symbol, iv, limit)
		if err != nil {
			c.logger.Warn("archive read failed", zap.String("series", key.String()), zap.Error(err))
		} else if len(archived) > 0 {
			c.Store.PutMany(key, archived)
			if candles = c.Store.Read(symbol, iv, limit); len(candles) >= minBars {
				return candles
			}
		}
	}

	if _, err := c.loader.LoadOne(ctx, symbol, iv); err != nil {
		c.logger.Warn("REST fallback failed", zap.String("series", key.String()), zap.Error(err))
		return candles
	}
	return c.Store.Read(symbol, iv, limit)
}

// upTo drops candles opened after openTime. candles is oldest first.
func upTo(candles []memorystore.Candle, openTime int64) []memorystore.Candle {
	n := len(candles)
	for n > 0 && candles[n-1].OpenTime > openTime {
		n--
	}
	return candles[:n]
}

func union(lists ...[]mexc.KlineInterval) []mexc.KlineInterval {
	seen := make(map[mexc.KlineInterval]bool)
	var out []mexc.KlineInterval
	for _, l := range lists {
		for _, iv := range l {
			if !seen[iv] {
				seen[iv] = true
				out = append(out, iv)
			}
		}
	}
	return out
}
