package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mexc     MexcConfig     `mapstructure:"mexc"`
	Store    StoreConfig    `mapstructure:"store"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Detector DetectorConfig `mapstructure:"detector"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Log      LogConfig      `mapstructure:"log"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type MexcConfig struct {
	REST RESTConfig `mapstructure:"rest"`
	WS   WSConfig   `mapstructure:"ws"`
}

type RESTConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type WSConfig struct {
	URL               string        `mapstructure:"url"`
	Symbols           []string      `mapstructure:"symbols"`   // e.g. BTC_USDT
	Intervals         []string      `mapstructure:"intervals"` // canonical ("1m") or exchange ("Min1") names
	SubscribeDelay    time.Duration `mapstructure:"subscribe_delay"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	HandshakeTimeout  time.Duration `mapstructure:"handshake_timeout"`
	Backoff           BackoffConfig `mapstructure:"backoff"`
}

// BackoffConfig controls the reconnect delay: Floor, Floor+Step, ... capped at Max.
// A connection that stays up for ResetAfter resets the delay to Floor.
type BackoffConfig struct {
	Floor      time.Duration `mapstructure:"floor"`
	Step       time.Duration `mapstructure:"step"`
	Max        time.Duration `mapstructure:"max"`
	ResetAfter time.Duration `mapstructure:"reset_after"`
}

type StoreConfig struct {
	Capacity int `mapstructure:"capacity"`
}

type QueueConfig struct {
	Capacity   int           `mapstructure:"capacity"`
	PutTimeout time.Duration `mapstructure:"put_timeout"`
}

type DetectorConfig struct {
	Tolerance         time.Duration `mapstructure:"tolerance"`
	RetentionMultiple int           `mapstructure:"retention_multiple"`
}

type TimeframeConfig struct {
	Interval string  `mapstructure:"interval"`
	Weight   float64 `mapstructure:"weight"`
}

type AnalysisConfig struct {
	Workers            int               `mapstructure:"workers"`
	TriggerInterval    string            `mapstructure:"trigger_interval"`
	Timeframes         []TimeframeConfig `mapstructure:"timeframes"`
	RegimeInterval     string            `mapstructure:"regime_interval"`
	MinBars            int               `mapstructure:"min_bars"`
	ADXThreshold       float64           `mapstructure:"adx_threshold"`
	BandwidthThreshold float64           `mapstructure:"bandwidth_threshold"`
	LongThreshold      float64           `mapstructure:"long_threshold"`
	ShortThreshold     float64           `mapstructure:"short_threshold"`
	Backfill           bool              `mapstructure:"backfill"`
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

type TelegramConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	BotToken   string        `mapstructure:"bot_token"`
	TokenParam string        `mapstructure:"token_param"` // SSM parameter holding the token in prod
	ChatID     string        `mapstructure:"chat_id"`
	APIURL     string        `mapstructure:"api_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // e.g. ":9102"; empty disables the listener
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mexc.rest.base_url", "https://contract.mexc.com")
	v.SetDefault("mexc.rest.timeout", 10*time.Second)
	v.SetDefault("mexc.ws.url", "wss://contract.mexc.com/edge")
	v.SetDefault("mexc.ws.symbols", []string{"BTC_USDT"})
	v.SetDefault("mexc.ws.intervals", []string{"15m", "1h", "4h"})
	v.SetDefault("mexc.ws.subscribe_delay", 50*time.Millisecond)
	v.SetDefault("mexc.ws.heartbeat_interval", 10*time.Second)
	v.SetDefault("mexc.ws.handshake_timeout", 10*time.Second)
	v.SetDefault("mexc.ws.backoff.floor", 3*time.Second)
	v.SetDefault("mexc.ws.backoff.step", 3*time.Second)
	v.SetDefault("mexc.ws.backoff.max", 30*time.Second)
	v.SetDefault("mexc.ws.backoff.reset_after", time.Minute)

	v.SetDefault("store.capacity", 600)
	v.SetDefault("queue.capacity", 10000)
	v.SetDefault("queue.put_timeout", 50*time.Millisecond)
	v.SetDefault("detector.tolerance", 1500*time.Millisecond)
	v.SetDefault("detector.retention_multiple", 3)

	v.SetDefault("analysis.workers", 2)
	v.SetDefault("analysis.trigger_interval", "15m")
	v.SetDefault("analysis.timeframes", []map[string]any{
		{"interval": "15m", "weight": 1.0},
		{"interval": "1h", "weight": 2.0},
		{"interval": "4h", "weight": 3.0},
	})
	v.SetDefault("analysis.regime_interval", "4h")
	v.SetDefault("analysis.min_bars", 50)
	v.SetDefault("analysis.adx_threshold", 20.0)
	v.SetDefault("analysis.bandwidth_threshold", 0.02)
	v.SetDefault("analysis.long_threshold", 3.5)
	v.SetDefault("analysis.short_threshold", 2.0)
	v.SetDefault("analysis.backfill", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.environment", "dev")

	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.channel", "klinewatch:scores")
	v.SetDefault("telegram.api_url", "https://api.telegram.org")
	v.SetDefault("telegram.timeout", 30*time.Second)
}

// Load loads application configuration using Viper.
// It reads from the given file (or config.yaml discovered next to the binary)
// and overrides with environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config") // config.yaml
		v.SetConfigType("yaml")

		ex, _ := os.Executable()
		if strings.Contains(ex, "go-build") {
			pwd, _ := os.Getwd()
			v.AddConfigPath(filepath.Join(pwd, "../../config"))
		} else {
			v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
		}
		v.AddConfigPath("./config")
	}

	// Support environment variables with dot notation (e.g., MEXC_WS_URL)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if len(c.Mexc.WS.Symbols) == 0 {
		return fmt.Errorf("config: mexc.ws.symbols is empty")
	}
	if len(c.Mexc.WS.Intervals) == 0 {
		return fmt.Errorf("config: mexc.ws.intervals is empty")
	}
	if c.Store.Capacity <= 0 {
		return fmt.Errorf("config: store.capacity must be positive, got %d", c.Store.Capacity)
	}
	if c.Queue.Capacity <= 0 {
		return fmt.Errorf("config: queue.capacity must be positive, got %d", c.Queue.Capacity)
	}
	b := c.Mexc.WS.Backoff
	if b.Floor <= 0 || b.Step < 0 || b.Max < b.Floor {
		return fmt.Errorf("config: invalid backoff floor=%s step=%s max=%s", b.Floor, b.Step, b.Max)
	}
	if c.Analysis.Workers <= 0 {
		return fmt.Errorf("config: analysis.workers must be positive, got %d", c.Analysis.Workers)
	}
	if c.Analysis.ShortThreshold >= c.Analysis.LongThreshold {
		return fmt.Errorf("config: analysis.short_threshold (%v) must be below long_threshold (%v)",
			c.Analysis.ShortThreshold, c.Analysis.LongThreshold)
	}
	return nil
}
