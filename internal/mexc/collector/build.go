package collector

import (
	"context"
	"fmt"

	"klinewatch/config"
	"klinewatch/internal/notifier"
	"klinewatch/internal/publisher"
	"klinewatch/pkg/storage/postgres"

	"go.uber.org/zap"
)

// Build wires the collector to the collaborators enabled in cfg: the
// Postgres archive, the Redis publisher and the Telegram notifier. The
// returned cleanup closes whatever was opened.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Collector, func(), error) {
	var (
		deps    Deps
		closers []func() error
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("close failed", zap.Error(err))
			}
		}
	}

	env := cfg.Log.Environment
	if cfg.Postgres.Enabled {
		pg, err := postgres.InitializeAndMigrateKlineRecord(cfg.Postgres, env, true)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to connect to DB: %w", err)
		}
		closers = append(closers, pg.Close)
		deps.Archive = pg
		logger.Info("closed-candle archive enabled", zap.String("dbname", cfg.Postgres.DBName))
	}

	if cfg.Redis.Enabled {
		pub := publisher.NewRedisPublisher(cfg.Redis)
		closers = append(closers, pub.Close)
		if err := pub.Ping(ctx); err != nil {
			// publishing is best-effort; keep going and let Publish report
			logger.Warn("redis unreachable at startup", zap.Error(err))
		}
		deps.Publisher = pub
	}

	notifiers := notifier.Multi{notifier.LogNotifier{Logger: logger}}
	if cfg.Telegram.Enabled {
		token := cfg.Telegram.Token(ctx, env)
		if token == "" || cfg.Telegram.ChatID == "" {
			cleanup()
			return nil, func() {}, fmt.Errorf("telegram enabled but bot token or chat_id is empty")
		}
		notifiers = append(notifiers, notifier.NewTelegramNotifier(cfg.Telegram.APIURL, token, cfg.Telegram.ChatID, cfg.Telegram.Timeout))
	}
	deps.Notifier = notifiers

	c, err := New(cfg, logger, deps)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return c, cleanup, nil
}
