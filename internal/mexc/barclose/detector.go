// Package barclose decides when a kline window has elapsed and emits one
// closed-bar event per (symbol, interval, open time).
package barclose

import (
	"sync"
	"time"

	"klinewatch/pkg/mexc"
)

const (
	// DefaultTolerance lets a bar close slightly early to absorb network and clock skew.
	DefaultTolerance = 1500 * time.Millisecond
	// DefaultRetentionMultiple keeps a dedup entry this many intervals past the window end.
	DefaultRetentionMultiple = 3

	pruneEvery = 30 * time.Second
)

// Event is the fact that the candle opened at OpenTime (epoch ms) is final.
type Event struct {
	Symbol   string             `json:"symbol"`
	Interval mexc.KlineInterval `json:"interval"`
	OpenTime int64              `json:"openTime"`
}

// Detector is safe for concurrent use.
type Detector struct {
	tolerance int64 // ms
	retention int64 // intervals

	// Clock supplies local time when a tick carries no server timestamp.
	Clock func() time.Time

	mu        sync.Mutex
	emitted   map[Event]int64 // event -> expiry (epoch ms)
	lastPrune int64
}

func NewDetector(tolerance time.Duration, retentionMultiple int) *Detector {
	if tolerance < 0 {
		tolerance = DefaultTolerance
	}
	if retentionMultiple <= 0 {
		retentionMultiple = DefaultRetentionMultiple
	}
	return &Detector{
		tolerance: tolerance.Milliseconds(),
		retention: int64(retentionMultiple),
		Clock:     time.Now,
		emitted:   make(map[Event]int64),
	}
}

// Evaluate reports whether the window starting at openTime has closed as of
// serverTs (epoch ms; zero means use the local clock). It returns true at
// most once per (symbol, interval, openTime) while the triple is retained.
func (d *Detector) Evaluate(symbol string, interval mexc.KlineInterval, openTime, serverTs int64) (Event, bool) {
	length := interval.DurationMs()
	if length == 0 || openTime <= 0 {
		return Event{}, false
	}

	now := serverTs
	if now <= 0 {
		now = d.Clock().UnixMilli()
	}

	windowEnd := openTime + length
	if now < windowEnd-d.tolerance {
		return Event{}, false
	}

	ev := Event{Symbol: symbol, Interval: interval, OpenTime: openTime}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.prune(now)
	if _, seen := d.emitted[ev]; seen {
		return Event{}, false
	}
	d.emitted[ev] = windowEnd + d.retention*length
	return ev, true
}

// Len is the number of triples currently remembered.
func (d *Detector) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.emitted)
}

// prune drops expired triples, at most once per pruneEvery. Callers hold mu.
func (d *Detector) prune(now int64) {
	if now-d.lastPrune < pruneEvery.Milliseconds() {
		return
	}
	d.lastPrune = now
	for ev, expiry := range d.emitted {
		if expiry < now {
			delete(d.emitted, ev)
		}
	}
}
