package memorystore

import (
	"fmt"

	"klinewatch/pkg/mexc"
)

// SeriesKey identifies one candle series.
type SeriesKey struct {
	Symbol   string             // BASE_QUOTE, e.g. "BTC_USDT"
	Interval mexc.KlineInterval // canonical, e.g. "15m"
}

func (k SeriesKey) String() string {
	return fmt.Sprintf("%s@%s", k.Symbol, k.Interval)
}

// Candle is one OHLCV bar. OpenTime (epoch ms) is unique within a series.
type Candle struct {
	OpenTime int64   `json:"openTime"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
}

// RawTick is an undecoded kline payload as pushed by the exchange, e.g.
// {"t":1700000000,"o":1,"h":2,"l":0.5,"c":1.5,"q":3}. Numbers may arrive as
// JSON numbers or strings.
type RawTick map[string]any

// CandleFromKline converts a REST kline into a store candle.
func CandleFromKline(k mexc.Kline) Candle {
	return Candle{OpenTime: k.OpenTime, Open: k.Open, High: k.High, Low: k.Low, Close: k.Close, Volume: k.Volume}
}
