package mexc

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// State is the connection state of the stream client.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateBackoff
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateBackoff:
		return "backoff"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

type WSClientConfig struct {
	URL               string
	Subscriptions     []Subscription
	SubscribeDelay    time.Duration
	HeartbeatInterval time.Duration
	HandshakeTimeout  time.Duration
	BackoffFloor      time.Duration
	BackoffStep       time.Duration
	BackoffMax        time.Duration
	ResetAfter        time.Duration // zero never resets the backoff
}

// WSClient keeps one kline subscription set alive against the contract
// WebSocket endpoint, reconnecting with linear backoff until stopped.
type WSClient struct {
	cfg     WSClientConfig
	dialer  *websocket.Dialer
	handler func([]byte)
	logger  *zap.Logger
	backoff *Backoff
	state   atomic.Int32
	writeMu sync.Mutex

	// Optional hooks, set before Run.
	OnStateChange func(State)
	OnReconnect   func(delay time.Duration)
}

// NewWSClient creates a stream client. Protocol level ping frames are never
// sent; liveness relies on the JSON heartbeat only.
func NewWSClient(cfg WSClientConfig, logger *zap.Logger) *WSClient {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 10 * time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = websocket.DefaultDialer.HandshakeTimeout
	}
	return &WSClient{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		logger:  logger,
		backoff: NewBackoff(cfg.BackoffFloor, cfg.BackoffStep, cfg.BackoffMax),
	}
}

// SetMessageHandler sets the function to handle incoming data messages.
// Ping/pong frames never reach it.
func (c *WSClient) SetMessageHandler(h func([]byte)) {
	c.handler = h
}

func (c *WSClient) State() State {
	return State(c.state.Load())
}

func (c *WSClient) setState(s State) {
	if State(c.state.Swap(int32(s))) == s {
		return
	}
	if c.OnStateChange != nil {
		c.OnStateChange(s)
	}
}

// Run connects, subscribes and reads until ctx is cancelled. Connection
// failures are logged and retried after a backoff delay; they are never
// returned.
func (c *WSClient) Run(ctx context.Context) error {
	defer c.setState(StateStopped)

	for {
		if ctx.Err() != nil {
			return nil
		}

		upFor, err := c.runSession(ctx)
		if ctx.Err() != nil {
			return nil
		}

		if c.cfg.ResetAfter > 0 && upFor >= c.cfg.ResetAfter {
			c.backoff.Reset()
		}
		delay := c.backoff.Next()

		c.setState(StateBackoff)
		c.logger.Warn("WebSocket disconnected, reconnecting",
			zap.String("url", c.cfg.URL),
			zap.Duration("connected_for", upFor),
			zap.Duration("backoff", delay),
			zap.Error(err))
		if c.OnReconnect != nil {
			c.OnReconnect(delay)
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

// runSession handles one connection from dial to failure and reports how
// long it stayed connected.
func (c *WSClient) runSession(ctx context.Context) (time.Duration, error) {
	c.setState(StateConnecting)

	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}
	connectedAt := time.Now()
	c.setState(StateConnected)
	c.logger.Info("WebSocket connected", zap.String("url", c.cfg.URL))

	sessCtx, stop := context.WithCancel(ctx)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		// Closing the conn is the only way to unblock ReadMessage.
		defer wg.Done()
		<-sessCtx.Done()
		_ = conn.Close()
	}()
	go func() {
		defer wg.Done()
		if err := c.subscribeAll(sessCtx, conn); err != nil {
			c.logger.Error("Failed to send subscription", zap.Error(err))
			stop()
			return
		}
		c.heartbeat(sessCtx, conn)
	}()

	err = c.readLoop(sessCtx, conn)
	stop()
	wg.Wait()

	return time.Since(connectedAt), err
}

func (c *WSClient) subscribeAll(ctx context.Context, conn *websocket.Conn) error {
	for i, sub := range c.cfg.Subscriptions {
		if i > 0 && c.cfg.SubscribeDelay > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.cfg.SubscribeDelay):
			}
		}
		req := Request{
			Method: MethodSubKline,
			Param:  KlineParam{Symbol: sub.Symbol, Interval: sub.Interval.APIValue()},
		}
		if err := c.writeJSON(conn, req); err != nil {
			return fmt.Errorf("websocket subscribe %s %s failed: %w", sub.Symbol, sub.Interval, err)
		}
	}
	c.logger.Info("subscriptions sent", zap.Int("count", len(c.cfg.Subscriptions)))
	return nil
}

func (c *WSClient) heartbeat(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.writeJSON(conn, Request{Method: MethodPing}); err != nil {
				c.logger.Warn("heartbeat failed", zap.Error(err))
				_ = conn.Close()
				return
			}
		}
	}
}

func (c *WSClient) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("websocket read: %w", err)
		}
		c.dispatch(conn, msg)
	}
}

func (c *WSClient) dispatch(conn *websocket.Conn, msg []byte) {
	res := gjson.GetManyBytes(msg, "method", "channel")
	method, channel := res[0].String(), res[1].String()

	switch {
	case method == MethodPing || channel == ChannelPing:
		if err := c.writeJSON(conn, Request{Method: MethodPong}); err != nil {
			c.logger.Warn("failed to answer server ping", zap.Error(err))
		}
		return
	case method == MethodPong || channel == ChannelPong:
		return
	}

	if c.handler != nil {
		c.handler(msg)
	}
}

// writeJSON serializes writers: subscriptions, heartbeats and pong replies
// share the connection.
func (c *WSClient) writeJSON(conn *websocket.Conn, v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(v)
}
