// Package eventqueue is the bounded FIFO between the bar-close detector and
// the analysis workers. Delivery is best-effort: a full queue drops events.
package eventqueue

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"klinewatch/internal/mexc/barclose"

	"go.uber.org/zap"
)

const (
	DefaultCapacity   = 10000
	DefaultPutTimeout = 50 * time.Millisecond
)

var ErrQueueFull = errors.New("event queue full")

type Queue struct {
	ch         chan barclose.Event
	putTimeout time.Duration
	logger     *zap.Logger
	dropped    atomic.Uint64

	// OnDrop is called for every event discarded by Put.
	OnDrop func(ev barclose.Event)
}

func New(capacity int, putTimeout time.Duration, logger *zap.Logger) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if putTimeout < 0 {
		putTimeout = 0
	}
	return &Queue{
		ch:         make(chan barclose.Event, capacity),
		putTimeout: putTimeout,
		logger:     logger,
	}
}

// Put enqueues ev, waiting at most the put timeout for room. When the queue
// stays full the event is dropped and ErrQueueFull is returned.
func (q *Queue) Put(ctx context.Context, ev barclose.Event) error {
	select {
	case q.ch <- ev:
		return nil
	default:
	}

	if q.putTimeout > 0 {
		t := time.NewTimer(q.putTimeout)
		defer t.Stop()
		select {
		case q.ch <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}

	q.dropped.Add(1)
	q.logger.Warn("event queue full, dropping closed-bar event",
		zap.String("symbol", ev.Symbol),
		zap.String("interval", string(ev.Interval)),
		zap.Int64("open_time", ev.OpenTime),
		zap.Uint64("dropped_total", q.dropped.Load()))
	if q.OnDrop != nil {
		q.OnDrop(ev)
	}
	return ErrQueueFull
}

// Get blocks until an event is available or ctx is done.
func (q *Queue) Get(ctx context.Context) (barclose.Event, error) {
	select {
	case ev := <-q.ch:
		return ev, nil
	case <-ctx.Done():
		return barclose.Event{}, ctx.Err()
	}
}

// TryGet returns the next event without blocking.
func (q *Queue) TryGet() (barclose.Event, bool) {
	select {
	case ev := <-q.ch:
		return ev, true
	default:
		return barclose.Event{}, false
	}
}

// C exposes the queue for select-based consumers.
func (q *Queue) C() <-chan barclose.Event {
	return q.ch
}

func (q *Queue) Len() int { return len(q.ch) }

func (q *Queue) Cap() int { return cap(q.ch) }

// Dropped is the number of events discarded since creation.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }
