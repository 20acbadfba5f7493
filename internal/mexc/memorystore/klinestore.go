package memorystore

import (
	"sort"
	"sync"

	"klinewatch/pkg/mexc"
)

// DefaultCapacity is the number of candles kept per series.
const DefaultCapacity = 600

// MemoryKlineStore keeps a bounded, time-ordered candle series per
// (symbol, interval). Readers always get copies.
type MemoryKlineStore struct {
	capacity int

	globalMu sync.RWMutex
	data     map[SeriesKey]*seriesStore
}

type seriesStore struct {
	mu      sync.Mutex
	candles []Candle // ascending OpenTime, len <= capacity
}

func NewKlineStore(capacity int) *MemoryKlineStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryKlineStore{
		capacity: capacity,
		data:     make(map[SeriesKey]*seriesStore),
	}
}

func (s *MemoryKlineStore) Capacity() int {
	return s.capacity
}

// Upsert parses raw and merges it into the (symbol, interval) series.
// Malformed ticks are rejected with ErrMalformedTick and leave the store untouched.
func (s *MemoryKlineStore) Upsert(symbol string, interval mexc.KlineInterval, raw RawTick) (Candle, error) {
	c, err := ParseTick(raw)
	if err != nil {
		return Candle{}, err
	}
	s.Put(SeriesKey{Symbol: symbol, Interval: interval}, c)
	return c, nil
}

// Put merges an already validated candle. A candle whose OpenTime is already
// present overwrites it in place; otherwise it is inserted in time order and
// the oldest candle is evicted once the series exceeds capacity.
func (s *MemoryKlineStore) Put(key SeriesKey, c Candle) {
	store := s.series(key, true)

	store.mu.Lock()
	defer store.mu.Unlock()

	// Scan from the tail: live updates almost always hit the newest bar.
	for i := len(store.candles) - 1; i >= 0; i-- {
		if store.candles[i].OpenTime == c.OpenTime {
			store.candles[i] = c
			return
		}
		if store.candles[i].OpenTime < c.OpenTime {
			break
		}
	}

	n := len(store.candles)
	if n == 0 || store.candles[n-1].OpenTime < c.OpenTime {
		store.candles = append(store.candles, c)
	} else {
		// Late bar for an older window: keep the series ordered.
		if n >= s.capacity && c.OpenTime < store.candles[0].OpenTime {
			return // older than everything retained
		}
		i := sort.Search(n, func(i int) bool { return store.candles[i].OpenTime > c.OpenTime })
		store.candles = append(store.candles, Candle{})
		copy(store.candles[i+1:], store.candles[i:])
		store.candles[i] = c
	}

	if over := len(store.candles) - s.capacity; over > 0 {
		// Shift in place so the backing array does not grow without bound.
		copy(store.candles, store.candles[over:])
		store.candles = store.candles[:s.capacity]
	}
}

// PutMany merges candles in slice order.
func (s *MemoryKlineStore) PutMany(key SeriesKey, candles []Candle) {
	for _, c := range candles {
		s.Put(key, c)
	}
}

// Read returns up to limit of the most recent candles, oldest first.
// limit <= 0 returns the whole series.
func (s *MemoryKlineStore) Read(symbol string, interval mexc.KlineInterval, limit int) []Candle {
	store := s.series(SeriesKey{Symbol: symbol, Interval: interval}, false)
	if store == nil {
		return nil
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	n := len(store.candles)
	if limit <= 0 || limit > n {
		limit = n
	}
	cp := make([]Candle, limit)
	copy(cp, store.candles[n-limit:])
	return cp
}

// Get returns the candle opened at openTime, if retained.
func (s *MemoryKlineStore) Get(key SeriesKey, openTime int64) (Candle, bool) {
	store := s.series(key, false)
	if store == nil {
		return Candle{}, false
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	i := sort.Search(len(store.candles), func(i int) bool { return store.candles[i].OpenTime >= openTime })
	if i < len(store.candles) && store.candles[i].OpenTime == openTime {
		return store.candles[i], true
	}
	return Candle{}, false
}

// Len returns the number of candles held for key.
func (s *MemoryKlineStore) Len(key SeriesKey) int {
	store := s.series(key, false)
	if store == nil {
		return 0
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	return len(store.candles)
}

// Keys lists every series currently held.
func (s *MemoryKlineStore) Keys() []SeriesKey {
	s.globalMu.RLock()
	defer s.globalMu.RUnlock()

	keys := make([]SeriesKey, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

// CountAll returns the total number of candles stored across all series.
func (s *MemoryKlineStore) CountAll() int {
	s.globalMu.RLock()
	defer s.globalMu.RUnlock()

	total := 0
	for _, store := range s.data {
		store.mu.Lock()
		total += len(store.candles)
		store.mu.Unlock()
	}
	return total
}

func (s *MemoryKlineStore) series(key SeriesKey, create bool) *seriesStore {
	s.globalMu.RLock()
	store, ok := s.data[key]
	s.globalMu.RUnlock()
	if ok || !create {
		return store
	}

	s.globalMu.Lock()
	defer s.globalMu.Unlock()
	if store, ok = s.data[key]; !ok {
		store = &seriesStore{candles: make([]Candle, 0, s.capacity)}
		s.data[key] = store
	}
	return store
}
