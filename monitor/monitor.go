// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OnlinePlayers     prometheus.Gauge
	ActiveGames       prometheus.Gauge
	MessagesReceived  prometheus.Counter
	MessageLatency    prometheus.Histogram
	GamesFinished     *prometheus.CounterVec
	PointsAwarded     *prometheus.CounterVec
	LeaderboardBuild  prometheus.Histogram
	ResultsSaveFailed prometheus.Counter
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of connected websocket sessions",
		}),
		ActiveGames: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_games",
			Help:      "Number of games in progress",
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of messages received",
		}),
		MessageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Message processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
		GamesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Finished games by game type and outcome",
		}, []string{"game_type", "outcome"}),
		PointsAwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_awarded_total",
			Help:      "Points awarded by game type",
		}, []string{"game_type"}),
		LeaderboardBuild: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "leaderboard_build_seconds",
			Help:      "Time spent building a leaderboard from the sample",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		ResultsSaveFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_save_failed_total",
			Help:      "Game results that could not be persisted",
		}),
	}

	reg.MustRegister(
		m.OnlinePlayers,
		m.ActiveGames,
		m.MessagesReceived,
		m.MessageLatency,
		m.GamesFinished,
		m.PointsAwarded,
		m.LeaderboardBuild,
		m.ResultsSaveFailed,
	)

	return m
}

// Monitor 持有独立的 registry，测试里可以创建多个实例
type Monitor struct {
	metrics      *Metrics
	registry     *prometheus.Registry
	startTime    time.Time
	requestCount int64
}

var publishOnce sync.Once

// current 供 expvar 读取，最后创建的 Monitor 生效
var current atomic.Pointer[Monitor]

func NewMonitor(namespace string) *Monitor {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := &Monitor{
		metrics:   NewMetrics(namespace, reg),
		registry:  reg,
		startTime: time.Now(),
	}
	current.Store(m)

	// expvar.Publish 重复注册会 panic
	publishOnce.Do(func() {
		expvar.Publish("uptime", expvar.Func(func() interface{} {
			if c := current.Load(); c != nil {
				return time.Since(c.startTime).Seconds()
			}
			return 0
		}))
		expvar.Publish("requests", expvar.Func(func() interface{} {
			if c := current.Load(); c != nil {
				return c.Requests()
			}
			return 0
		}))
	})
	return m
}

func (m *Monitor) Registry() *prometheus.Registry { return m.registry }

// Handler 返回 /metrics 处理器
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// VarsHandler serves /debug/vars.
func (m *Monitor) VarsHandler() http.Handler {
	return expvar.Handler()
}

func (m *Monitor) Uptime() time.Duration { return time.Since(m.startTime) }

func (m *Monitor) IncOnlinePlayers() {
	m.metrics.OnlinePlayers.Inc()
}

func (m *Monitor) DecOnlinePlayers() {
	m.metrics.OnlinePlayers.Dec()
}

func (m *Monitor) IncActiveGames() { m.metrics.ActiveGames.Inc() }
func (m *Monitor) DecActiveGames() { m.metrics.ActiveGames.Dec() }

func (m *Monitor) IncMessagesReceived() {
	m.metrics.MessagesReceived.Inc()
	atomic.AddInt64(&m.requestCount, 1)
}

func (m *Monitor) Requests() int64 { return atomic.LoadInt64(&m.requestCount) }

func (m *Monitor) ObserveMessageLatency(duration time.Duration) {
	m.metrics.MessageLatency.Observe(duration.Seconds())
}

// GameFinished 记录一局结束，outcome 例如 finished / won / lost
func (m *Monitor) GameFinished(gameType, outcome string, points int) {
	m.metrics.GamesFinished.WithLabelValues(gameType, outcome).Inc()
	if points > 0 {
		m.metrics.PointsAwarded.WithLabelValues(gameType).Add(float64(points))
	}
}

func (m *Monitor) ObserveLeaderboardBuild(duration time.Duration) {
	m.metrics.LeaderboardBuild.Observe(duration.Seconds())
}

func (m *Monitor) IncSaveFailed() { m.metrics.ResultsSaveFailed.Inc() }
