// Package notifier delivers score lines to people. Delivery is best-effort:
// callers log a failed Send and carry on.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"klinewatch/internal/scoring"

	"go.uber.org/zap"
)

type Notifier interface {
	Send(ctx context.Context, text string) error
}

// LogNotifier writes messages to the logger. Used when no chat is configured.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Send(_ context.Context, text string) error {
	n.Logger.Info("signal", zap.String("text", text))
	return nil
}

// Multi sends to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, text string) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FormatScore renders a record as one plain line, e.g.
//
//	BTC_USDT LONG composite=3.80 [1h=4.10 4h=3.50] reasons=1h macd: MACD histogram positive and rising; ...
func FormatScore(rec scoring.ScoreRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s composite=%.2f", rec.Symbol, rec.Direction, rec.Composite)

	tfs := make([]string, 0, len(rec.TimeframeScores))
	for _, tf := range rec.TimeframeScores {
		tfs = append(tfs, fmt.Sprintf("%s=%.2f", tf.Interval, tf.Score))
	}
	fmt.Fprintf(&b, " [%s]", strings.Join(tfs, " "))

	if rec.Gate != "" {
		fmt.Fprintf(&b, " gate=%s", rec.Gate)
	}
	if len(rec.Reasons) > 0 {
		reasons := make([]string, 0, len(rec.Reasons))
		for _, r := range rec.Reasons {
			reasons = append(reasons, fmt.Sprintf("%s %s", r.Interval, r.Text))
		}
		fmt.Fprintf(&b, " reasons=%s", strings.Join(reasons, "; "))
	}
	return b.String()
}
