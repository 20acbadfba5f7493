// Package publisher fans score records out to Redis subscribers.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"klinewatch/config"
	"klinewatch/internal/scoring"

	goredis "github.com/go-redis/redis/v8"
)

// LatestTTL bounds how long the last record of a symbol stays readable.
const LatestTTL = 24 * time.Hour

type Publisher interface {
	Publish(ctx context.Context, rec scoring.ScoreRecord) error
}

// RedisPublisher publishes every record as JSON on one channel and keeps the
// latest record per symbol under "<channel>:latest:<symbol>".
type RedisPublisher struct {
	client  *goredis.Client
	channel string
}

func NewRedisPublisher(cfg config.RedisConfig) *RedisPublisher {
	return &RedisPublisher{
		client: goredis.NewClient(&goredis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		channel: cfg.Channel,
	}
}

// Ping checks connectivity; used once at startup.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", p.client.Options().Addr, err)
	}
	return nil
}

func (p *RedisPublisher) Publish(ctx context.Context, rec scoring.ScoreRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal score record: %w", err)
	}

	pipe := p.client.TxPipeline()
	pipe.Publish(ctx, p.channel, payload)
	pipe.Set(ctx, p.LatestKey(rec.Symbol), payload, LatestTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish score %s: %w", rec.Symbol, err)
	}
	return nil
}

func (p *RedisPublisher) LatestKey(symbol string) string {
	return p.channel + ":latest:" + symbol
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
