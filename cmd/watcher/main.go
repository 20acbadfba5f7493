package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"klinewatch/config"
	"klinewatch/internal/mexc/collector"
	"klinewatch/internal/metrics"
	"klinewatch/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "watcher",
	Short: "Stream MEXC contract klines and score closed bars across timeframes",
	Long: `watcher keeps a live kline subscription against the MEXC contract WebSocket,
detects closed bars, and scores each symbol on every close of the trigger
interval. LONG/SHORT decisions are sent to the configured notifiers.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: config/config.yaml)")
	rootCmd.AddCommand(newBackfillCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// setup loads the config and builds the logger shared by every command.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func run(ctx context.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	c, cleanup, err := collector.Build(ctx, cfg, log)
	if err != nil {
		log.Error("collector setup failed", zap.Error(err))
		return err
	}
	defer cleanup()

	if cfg.Metrics.Addr != "" {
		srv := metrics.NewServer(cfg.Metrics.Addr, prometheus.DefaultGatherer, c.Health, log)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Stop(shutdownCtx)
		}()
	}

	if err := c.Run(ctx); err != nil {
		log.Error("collector failed", zap.Error(err))
		return err
	}
	log.Info("collector stopped")
	return nil
}
