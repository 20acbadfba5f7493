package stream

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"klinewatch/internal/metrics"
	"klinewatch/internal/mexc/barclose"
	"klinewatch/internal/mexc/eventqueue"
	"klinewatch/internal/mexc/memorystore"
	"klinewatch/pkg/mexc"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Deps are the collaborators of the message handler. Metrics and Health are optional.
type Deps struct {
	Logger   *zap.Logger
	Store    *memorystore.MemoryKlineStore
	Detector *barclose.Detector
	Queue    *eventqueue.Queue
	Metrics  *metrics.Metrics
	Health   *metrics.Health
}

// MakeMessageHandler returns the function the stream client calls for every
// data frame. A push.kline frame is upserted into the store and then checked
// for bar close; a closed bar is put on the queue. Malformed ticks are
// counted and discarded without touching store or detector state.
func MakeMessageHandler(ctx context.Context, d Deps) func(msg []byte) {
	return func(msg []byte) {
		res := gjson.GetManyBytes(msg, "channel", "symbol", "ts", "data")
		channel, data := res[0].String(), res[3]

		if channel != mexc.ChannelPushKline {
			if strings.HasPrefix(channel, "rs.") {
				d.Logger.Debug("subscription response", zap.String("channel", channel), zap.String("data", data.Raw))
			}
			return
		}
		if d.Metrics != nil {
			d.Metrics.TicksTotal.Inc()
		}
		if d.Health != nil {
			d.Health.SetLastTickTime(time.Now())
		}

		symbol := data.Get("symbol").String()
		if symbol == "" {
			symbol = res[1].String()
		}
		interval, err := mexc.ParseKlineInterval(data.Get("interval").String())
		if symbol == "" || err != nil || !data.IsObject() {
			discard(d, msg, errors.New("missing symbol, interval or data"))
			return
		}

		raw, err := decodeTick(data.Raw)
		if err != nil {
			discard(d, msg, err)
			return
		}
		candle, err := d.Store.Upsert(symbol, interval, raw)
		if err != nil {
			discard(d, msg, err)
			return
		}

		ev, closed := d.Detector.Evaluate(symbol, interval, candle.OpenTime, res[2].Int())
		if !closed {
			return
		}
		if d.Metrics != nil {
			d.Metrics.ClosedBarsTotal.WithLabelValues(string(interval)).Inc()
		}
		// ErrQueueFull is already logged by the queue.
		_ = d.Queue.Put(ctx, ev)
	}
}

// decodeTick keeps numbers as json.Number so integer timestamps stay exact.
func decodeTick(data string) (memorystore.RawTick, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	var raw memorystore.RawTick
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func discard(d Deps, msg []byte, err error) {
	if d.Metrics != nil {
		d.Metrics.MalformedTicksTotal.Inc()
	}
	d.Logger.Debug("discarding malformed tick", zap.Error(err), zap.ByteString("msg", msg))
}
