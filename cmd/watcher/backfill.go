package main

import (
	"fmt"

	"klinewatch/internal/mexc/collector"
	"klinewatch/internal/notifier"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newBackfillCmd() *cobra.Command {
	var symbols []string

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Load recent history over REST and print one score per symbol",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			if len(symbols) > 0 {
				cfg.Mexc.WS.Symbols = symbols
			}
			c, err := collector.New(cfg, log, collector.Deps{Registerer: prometheus.NewRegistry()})
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			res := c.Backfill(ctx)
			log.Info("backfill complete", zap.Int("candles", res.Loaded), zap.Int("failed_pairs", len(res.Failed)))

			for _, symbol := range c.Symbols.GetAll() {
				rec, ok := c.Score(ctx, symbol)
				if !ok {
					fmt.Fprintf(cmd.OutOrStdout(), "%s no signal\n", symbol)
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), notifier.FormatScore(rec))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "symbols to load (default: mexc.ws.symbols)")
	return cmd
}
