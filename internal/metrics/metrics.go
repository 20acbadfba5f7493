package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "klinewatch"

// Metrics holds the Prometheus collectors of the pipeline.
type Metrics struct {
	TicksTotal          prometheus.Counter
	MalformedTicksTotal prometheus.Counter
	WSReconnects        prometheus.Counter
	WSState             prometheus.Gauge       // numeric mexc.State
	ClosedBarsTotal     *prometheus.CounterVec // labels: interval
	QueueDropped        prometheus.Counter
	SignalsTotal        *prometheus.CounterVec // labels: direction
	NotifyFailures      prometheus.Counter
	PublishFailures     prometheus.Counter
	ArchiveFailures     prometheus.Counter
	ScoreDuration       prometheus.Histogram

	reg prometheus.Registerer
}

// New creates the collectors and registers them on reg. Tests pass a fresh
// prometheus.NewRegistry(); the binary passes prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Kline ticks received from the WebSocket",
		}),
		MalformedTicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_ticks_total",
			Help:      "Kline ticks discarded as malformed",
		}),
		WSReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_reconnects_total",
			Help:      "WebSocket reconnection attempts",
		}),
		WSState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_state",
			Help:      "Stream client state (0=disconnected, 1=connecting, 2=connected, 3=backoff, 4=stopped)",
		}),
		ClosedBarsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "closed_bars_total",
			Help:      "Closed-bar events detected",
		}, []string{"interval"}),
		QueueDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_dropped_total",
			Help:      "Closed-bar events dropped on a full queue",
		}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_total",
			Help:      "Score records by final direction",
		}, []string{"direction"}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_failures_total",
			Help:      "Notifier deliveries that failed",
		}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "Score records the publisher could not deliver",
		}),
		ArchiveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_failures_total",
			Help:      "Closed candles that could not be archived",
		}),
		ScoreDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "score_duration_seconds",
			Help:      "Time to score one symbol across all timeframes",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		reg: reg,
	}

	reg.MustRegister(
		m.TicksTotal,
		m.MalformedTicksTotal,
		m.WSReconnects,
		m.WSState,
		m.ClosedBarsTotal,
		m.QueueDropped,
		m.SignalsTotal,
		m.NotifyFailures,
		m.PublishFailures,
		m.ArchiveFailures,
		m.ScoreDuration,
	)
	return m
}

// TrackQueueDepth registers queue_depth, read from depth at every scrape.
func (m *Metrics) TrackQueueDepth(depth func() int) {
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Closed-bar events waiting in the queue",
	}, func() float64 { return float64(depth()) }))
}

// Health is the liveness snapshot served on /healthz.
type Health struct {
	mu           sync.RWMutex
	wsConnected  bool
	lastTickTime time.Time
	startedAt    time.Time
}

func NewHealth() *Health {
	return &Health{startedAt: time.Now()}
}

func (h *Health) SetWSConnected(v bool) {
	h.mu.Lock()
	h.wsConnected = v
	h.mu.Unlock()
}

func (h *Health) SetLastTickTime(t time.Time) {
	h.mu.Lock()
	h.lastTickTime = t
	h.mu.Unlock()
}

// ServeHTTP answers 200 while the stream is connected and 503 otherwise.
func (h *Health) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := struct {
		Status       string `json:"status"`
		Uptime       string `json:"uptime"`
		WSConnected  bool   `json:"ws_connected"`
		LastTickTime string `json:"last_tick_time,omitempty"`
	}{
		Status:      "healthy",
		Uptime:      time.Since(h.startedAt).Round(time.Second).String(),
		WSConnected: h.wsConnected,
	}
	if !h.lastTickTime.IsZero() {
		status.LastTickTime = h.lastTickTime.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	if !h.wsConnected {
		status.Status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}

// Server exposes /metrics and /healthz.
type Server struct {
	logger *zap.Logger
	srv    *http.Server
}

func NewServer(addr string, gatherer prometheus.Gatherer, health *Health, logger *zap.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", health)

	return &Server{
		logger: logger,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start launches the listener in a goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info("metrics server listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server error", zap.Error(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
