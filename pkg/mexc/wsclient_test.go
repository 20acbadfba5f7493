package mexc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newWSServer(t *testing.T, handle func(conn *websocket.Conn)) (*httptest.Server, string) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}))
	t.Cleanup(srv.Close)
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testClientConfig(url string) WSClientConfig {
	return WSClientConfig{
		URL:               url,
		HeartbeatInterval: time.Hour,
		BackoffFloor:      10 * time.Millisecond,
		BackoffStep:       10 * time.Millisecond,
		BackoffMax:        30 * time.Millisecond,
	}
}

// go test -v --run TestWSClientSubscribeAndDispatch
func TestWSClientSubscribeAndDispatch(t *testing.T) {
	subs := make(chan Request, 4)
	pong := make(chan Request, 1)

	_, url := newWSServer(t, func(conn *websocket.Conn) {
		for i := 0; i < 2; i++ {
			var req struct {
				Method string     `json:"method"`
				Param  KlineParam `json:"param"`
			}
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			subs <- Request{Method: req.Method, Param: req.Param}
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"channel":"pong","data":1700000000000}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"channel":"push.kline","symbol":"BTC_USDT","data":{"t":1700000000,"o":1,"h":2,"l":0.5,"c":1.5,"q":3,"interval":"Min1","symbol":"BTC_USDT"},"ts":1700000001000}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"method":"ping"}`))

		var req Request
		if err := conn.ReadJSON(&req); err == nil {
			pong <- req
		}
		// hold the connection until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	cfg := testClientConfig(url)
	cfg.Subscriptions = []Subscription{
		{Symbol: "BTC_USDT", Interval: Interval1Min},
		{Symbol: "ETH_USDT", Interval: Interval4Hour},
	}
	cfg.SubscribeDelay = 5 * time.Millisecond

	client := NewWSClient(cfg, zap.NewNop())
	received := make(chan []byte, 4)
	client.SetMessageHandler(func(msg []byte) { received <- msg })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	first := <-subs
	second := <-subs
	assert.Equal(t, MethodSubKline, first.Method)
	assert.Equal(t, KlineParam{Symbol: "BTC_USDT", Interval: "Min1"}, first.Param)
	assert.Equal(t, KlineParam{Symbol: "ETH_USDT", Interval: "Hour4"}, second.Param)

	select {
	case msg := <-received:
		var push PushMessage
		require.NoError(t, json.Unmarshal(msg, &push))
		assert.Equal(t, ChannelPushKline, push.Channel)
		assert.Equal(t, int64(1700000001000), push.Ts)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for push message")
	}

	select {
	case req := <-pong:
		assert.Equal(t, MethodPong, req.Method)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pong reply")
	}

	assert.Equal(t, StateConnected, client.State())
	assert.Len(t, received, 0, "server pong must not reach the handler")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, StateStopped, client.State())
}

// go test -v --run TestWSClientHeartbeat
func TestWSClientHeartbeat(t *testing.T) {
	pings := make(chan Request, 4)
	_, url := newWSServer(t, func(conn *websocket.Conn) {
		for {
			var req Request
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			pings <- req
		}
	})

	cfg := testClientConfig(url)
	cfg.HeartbeatInterval = 20 * time.Millisecond
	client := NewWSClient(cfg, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	for i := 0; i < 2; i++ {
		select {
		case req := <-pings:
			assert.Equal(t, MethodPing, req.Method)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for heartbeat")
		}
	}
}

// go test -v --run TestWSClientReconnects
func TestWSClientReconnects(t *testing.T) {
	var conns atomic.Int32
	_, url := newWSServer(t, func(conn *websocket.Conn) {
		if conns.Add(1) == 1 {
			return // drop the first connection right away
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	client := NewWSClient(testClientConfig(url), zap.NewNop())
	var mu sync.Mutex
	var delays []time.Duration
	client.OnReconnect = func(d time.Duration) {
		mu.Lock()
		delays = append(delays, d)
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	require.Eventually(t, func() bool { return conns.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return client.State() == StateConnected }, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, delays)
	assert.Equal(t, 10*time.Millisecond, delays[0])
}

// go test -v --run TestWSClientDialFailureBacksOff
func TestWSClientDialFailureBacksOff(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	client := NewWSClient(testClientConfig(url), zap.NewNop())
	delays := make(chan time.Duration, 16)
	client.OnReconnect = func(d time.Duration) { delays <- d }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	var got []time.Duration
	for len(got) < 4 {
		select {
		case d := <-delays:
			got = append(got, d)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for reconnect attempts")
		}
	}
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond, 30 * time.Millisecond}, got)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

// go test -v --run TestStateString
func TestStateString(t *testing.T) {
	assert.Equal(t, "backoff", StateBackoff.String())
	assert.Equal(t, "connected", StateConnected.String())
}
