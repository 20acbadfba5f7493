package memorystore

import (
	"strings"
	"sync"

	"klinewatch/pkg/mexc"
)

// MemorySymbolStore holds the watched symbols in insertion order.
type MemorySymbolStore struct {
	mu      sync.Mutex
	symbols []string
	seen    map[string]struct{}
}

func NewSymbolStore(symbols ...string) *MemorySymbolStore {
	s := &MemorySymbolStore{
		symbols: make([]string, 0, len(symbols)),
		seen:    make(map[string]struct{}, len(symbols)),
	}
	for _, sym := range symbols {
		s.Add(sym)
	}
	return s
}

// Add registers a symbol; "btc_usdt" and "BTC_USDT" are the same symbol.
func (s *MemorySymbolStore) Add(symbol string) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[symbol]; ok {
		return
	}
	s.seen[symbol] = struct{}{}
	s.symbols = append(s.symbols, symbol)
}

func (s *MemorySymbolStore) GetAll() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}

// Subscriptions expands the symbol set into the symbol x interval matrix.
func (s *MemorySymbolStore) Subscriptions(intervals []mexc.KlineInterval) []mexc.Subscription {
	symbols := s.GetAll()
	out := make([]mexc.Subscription, 0, len(symbols)*len(intervals))
	for _, sym := range symbols {
		for _, iv := range intervals {
			out = append(out, mexc.Subscription{Symbol: sym, Interval: iv})
		}
	}
	return out
}
