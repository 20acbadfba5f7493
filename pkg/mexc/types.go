package mexc

import "encoding/json"

// Response is the REST envelope used by the contract API.
type Response struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"` // decoded per endpoint
}

// KlinesResponse is the column-oriented kline payload: the i-th entry of
// every slice describes the same bar. Time is in epoch seconds.
type KlinesResponse struct {
	Time   []int64   `json:"time"`
	Open   []float64 `json:"open"`
	High   []float64 `json:"high"`
	Low    []float64 `json:"low"`
	Close  []float64 `json:"close"`
	Vol    []float64 `json:"vol"`
	Amount []float64 `json:"amount"`
}

// Kline is one bar fetched over REST.
type Kline struct {
	Symbol   string        `json:"symbol"`
	Interval KlineInterval `json:"interval"`
	OpenTime int64         `json:"openTime"` // epoch ms
	Open     float64       `json:"open"`
	High     float64       `json:"high"`
	Low      float64       `json:"low"`
	Close    float64       `json:"close"`
	Volume   float64       `json:"volume"`
}

// Request is an outbound WebSocket message ({"method":"sub.kline","param":{...}}).
type Request struct {
	Method string `json:"method"`
	Param  any    `json:"param,omitempty"`
}

// KlineParam selects one kline channel.
type KlineParam struct {
	Symbol   string `json:"symbol"`   // BASE_QUOTE, e.g. BTC_USDT
	Interval string `json:"interval"` // exchange spelling, e.g. Min15
}

// Subscription is one (symbol, interval) pair the stream client keeps subscribed.
type Subscription struct {
	Symbol   string
	Interval KlineInterval
}

// PushMessage is an inbound push frame. Data stays raw so that the handler
// can decode the kline fields leniently.
type PushMessage struct {
	Channel string          `json:"channel"`
	Symbol  string          `json:"symbol"`
	Data    json.RawMessage `json:"data"`
	Ts      int64           `json:"ts"` // server timestamp (ms)
}

const (
	MethodPing        = "ping"
	MethodPong        = "pong"
	MethodSubKline    = "sub.kline"
	ChannelPong       = "pong"
	ChannelPing       = "ping"
	ChannelPushKline  = "push.kline"
	ChannelSubKlineRS = "rs.sub.kline"
)
