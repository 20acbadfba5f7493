package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"klinewatch/config"
	"klinewatch/internal/metrics"
	"klinewatch/internal/mexc/barclose"
	"klinewatch/internal/mexc/eventqueue"
	"klinewatch/internal/mexc/memorystore"
	"klinewatch/internal/mexc/snapshot"
	"klinewatch/internal/mexc/stream"
	"klinewatch/internal/notifier"
	"klinewatch/internal/publisher"
	"klinewatch/internal/scoring"
	"klinewatch/pkg/mexc"
	"klinewatch/pkg/storage/postgres"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const archiveTimeout = 5 * time.Second

// Archive persists closed candles and serves them back when the memory
// store is short. *postgres.PostgresClient satisfies it.
type Archive interface {
	UpsertKline(ctx context.Context, record *postgres.KlineRecord) error
	RecentCandles(ctx context.Context, symbol string, interval mexc.KlineInterval, limit int) ([]memorystore.Candle, error)
}

// Deps are the outbound collaborators. Nil members are optional except
// Fetcher and Notifier, which New fills with defaults.
type Deps struct {
	Fetcher    snapshot.KlineFetcher
	Archive    Archive
	Notifier   notifier.Notifier
	Publisher  publisher.Publisher
	Registerer prometheus.Registerer
	Scorer     *scoring.Scorer
}

// Collector owns the ingestion pipeline (stream client -> store -> detector
// -> queue) and the analysis workers draining the queue.
type Collector struct {
	cfg    *config.Config
	logger *zap.Logger

	Store    *memorystore.MemoryKlineStore
	Symbols  *memorystore.MemorySymbolStore
	Detector *barclose.Detector
	Queue    *eventqueue.Queue
	Metrics  *metrics.Metrics
	Health   *metrics.Health

	ws        *mexc.WSClient
	loader    *snapshot.KlineLoader
	scorer    *scoring.Scorer
	archive   Archive
	notifier  notifier.Notifier
	publisher publisher.Publisher

	trigger   mexc.KlineInterval
	intervals []mexc.KlineInterval
}

func New(cfg *config.Config, logger *zap.Logger, deps Deps) (*Collector, error) {
	trigger, err := mexc.ParseKlineInterval(cfg.Analysis.TriggerInterval)
	if err != nil {
		return nil, fmt.Errorf("analysis.trigger_interval: %w", err)
	}
	scorer := deps.Scorer
	if scorer == nil {
		scoringCfg, err := ScoringConfig(cfg.Analysis)
		if err != nil {
			return nil, err
		}
		scorer = scoring.NewScorer(scoringCfg)
	}
	wsIntervals, err := mexc.ParseKlineIntervals(cfg.Mexc.WS.Intervals)
	if err != nil {
		return nil, fmt.Errorf("mexc.ws.intervals: %w", err)
	}
	intervals := union(wsIntervals, scorer.Intervals(), []mexc.KlineInterval{trigger})

	if deps.Registerer == nil {
		deps.Registerer = prometheus.DefaultRegisterer
	}
	if deps.Fetcher == nil {
		deps.Fetcher = mexc.NewRESTClient(cfg.Mexc.REST.BaseURL, cfg.Mexc.REST.Timeout)
	}
	if deps.Notifier == nil {
		deps.Notifier = notifier.LogNotifier{Logger: logger}
	}

	c := &Collector{
		cfg:       cfg,
		logger:    logger,
		Store:     memorystore.NewKlineStore(cfg.Store.Capacity),
		Symbols:   memorystore.NewSymbolStore(cfg.Mexc.WS.Symbols...),
		Detector:  barclose.NewDetector(cfg.Detector.Tolerance, cfg.Detector.RetentionMultiple),
		Queue:     eventqueue.New(cfg.Queue.Capacity, cfg.Queue.PutTimeout, logger),
		Metrics:   metrics.New(deps.Registerer),
		Health:    metrics.NewHealth(),
		scorer:    scorer,
		archive:   deps.Archive,
		notifier:  deps.Notifier,
		publisher: deps.Publisher,
		trigger:   trigger,
		intervals: intervals,
	}
	c.Queue.OnDrop = func(barclose.Event) { c.Metrics.QueueDropped.Inc() }
	c.Metrics.TrackQueueDepth(c.Queue.Len)

	c.loader = &snapshot.KlineLoader{
		Fetcher: deps.Fetcher,
		Store:   c.Store,
		Logger:  logger,
		Timeout: cfg.Mexc.REST.Timeout,
	}

	ws := cfg.Mexc.WS
	c.ws = mexc.NewWSClient(mexc.WSClientConfig{
		URL:               ws.URL,
		Subscriptions:     c.Symbols.Subscriptions(intervals),
		SubscribeDelay:    ws.SubscribeDelay,
		HeartbeatInterval: ws.HeartbeatInterval,
		HandshakeTimeout:  ws.HandshakeTimeout,
		BackoffFloor:      ws.Backoff.Floor,
		BackoffStep:       ws.Backoff.Step,
		BackoffMax:        ws.Backoff.Max,
		ResetAfter:        ws.Backoff.ResetAfter,
	}, logger)
	c.ws.OnStateChange = func(s mexc.State) {
		c.Metrics.WSState.Set(float64(s))
		c.Health.SetWSConnected(s == mexc.StateConnected)
	}
	c.ws.OnReconnect = func(time.Duration) { c.Metrics.WSReconnects.Inc() }

	return c, nil
}

// ScoringConfig maps the analysis section onto the scorer.
func ScoringConfig(a config.AnalysisConfig) (scoring.Config, error) {
	out := scoring.DefaultConfig()
	if len(a.Timeframes) > 0 {
		out.Timeframes = out.Timeframes[:0]
		for _, tf := range a.Timeframes {
			iv, err := mexc.ParseKlineInterval(tf.Interval)
			if err != nil {
				return scoring.Config{}, fmt.Errorf("analysis.timeframes: %w", err)
			}
			out.Timeframes = append(out.Timeframes, scoring.Timeframe{Interval: iv, Weight: tf.Weight})
		}
	}
	if a.RegimeInterval != "" {
		iv, err := mexc.ParseKlineInterval(a.RegimeInterval)
		if err != nil {
			return scoring.Config{}, fmt.Errorf("analysis.regime_interval: %w", err)
		}
		out.RegimeInterval = iv
	}
	out.ADXThreshold = a.ADXThreshold
	out.BandwidthThreshold = a.BandwidthThreshold
	out.LongThreshold = a.LongThreshold
	out.ShortThreshold = a.ShortThreshold
	return out, nil
}

// Intervals are the subscribed intervals: the configured stream intervals
// plus every interval the scorer and trigger need.
func (c *Collector) Intervals() []mexc.KlineInterval {
	return c.intervals
}

// Backfill loads recent history for every subscription over REST.
func (c *Collector) Backfill(ctx context.Context) snapshot.Result {
	return c.loader.Load(ctx, c.Symbols.Subscriptions(c.intervals))
}

// Run backfills (when enabled), starts the analysis workers and runs the
// stream client until ctx is cancelled. Workers finish their current event
// before Run returns.
func (c *Collector) Run(ctx context.Context) error {
	if c.cfg.Analysis.Backfill {
		c.Backfill(ctx)
	}

	c.ws.SetMessageHandler(stream.MakeMessageHandler(ctx, stream.Deps{
		Logger:   c.logger,
		Store:    c.Store,
		Detector: c.Detector,
		Queue:    c.Queue,
		Metrics:  c.Metrics,
		Health:   c.Health,
	}))

	var wg sync.WaitGroup
	for i := 0; i < c.cfg.Analysis.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.worker(ctx, id)
		}(i)
	}

	c.logger.Info("collector started",
		zap.Strings("symbols", c.Symbols.GetAll()),
		zap.Int("subscriptions", len(c.Symbols.Subscriptions(c.intervals))),
		zap.Int("workers", c.cfg.Analysis.Workers))

	err := c.ws.Run(ctx)
	wg.Wait()
	return err
}

func (c *Collector) worker(ctx context.Context, id int) {
	for {
		ev, err := c.Queue.Get(ctx)
		if err != nil {
			c.logger.Debug("analysis worker stopped", zap.Int("worker", id))
			return
		}
		c.Process(ctx, ev)
	}
}
