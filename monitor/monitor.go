// monitor/monitor.go
package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	ActiveLobbies    prometheus.Gauge
	ConnectedPlayers prometheus.Gauge
	Spectators       prometheus.Gauge
	Polls            prometheus.Counter
	Wins             prometheus.Counter
	PowerUpsClaimed  prometheus.Counter
	LobbiesReaped    prometheus.Counter
	RequestLatency   *prometheus.HistogramVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveLobbies: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_lobbies",
			Help:      "Number of live lobbies",
		}),
		ConnectedPlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_players",
			Help:      "Number of taken player slots across lobbies",
		}),
		Spectators: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "spectators",
			Help:      "Number of websocket spectators",
		}),
		Polls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Total number of poll requests",
		}),
		Wins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wins_total",
			Help:      "Total number of decided matches",
		}),
		PowerUpsClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "powerups_claimed_total",
			Help:      "Total number of successful power-up claims",
		}),
		LobbiesReaped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lobbies_reaped_total",
			Help:      "Total number of idle lobbies removed",
		}),
		RequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_latency_seconds",
			Help:      "HTTP request latency by endpoint",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"endpoint"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ActiveLobbies,
		m.ConnectedPlayers,
		m.Spectators,
		m.Polls,
		m.Wins,
		m.PowerUpsClaimed,
		m.LobbiesReaped,
		m.RequestLatency,
	}
}

// Monitor owns a private registry so several servers (and tests) can live
// in one process.
type Monitor struct {
	metrics   *Metrics
	registry  *prometheus.Registry
	startTime time.Time
}

func NewMonitor(namespace string) *Monitor {
	m := &Monitor{
		metrics:   NewMetrics(namespace),
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
	}
	m.registry.MustRegister(m.metrics.collectors()...)
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the server started",
		}, func() float64 {
			return time.Since(m.startTime).Seconds()
		}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Monitor) SetActiveLobbies(count int) {
	m.metrics.ActiveLobbies.Set(float64(count))
}

func (m *Monitor) SetConnectedPlayers(count int) {
	m.metrics.ConnectedPlayers.Set(float64(count))
}

func (m *Monitor) IncSpectators() {
	m.metrics.Spectators.Inc()
}

func (m *Monitor) DecSpectators() {
	m.metrics.Spectators.Dec()
}

func (m *Monitor) IncPolls() {
	m.metrics.Polls.Inc()
}

func (m *Monitor) IncWins() {
	m.metrics.Wins.Inc()
}

func (m *Monitor) IncPowerUpsClaimed() {
	m.metrics.PowerUpsClaimed.Inc()
}

func (m *Monitor) AddLobbiesReaped(n int) {
	m.metrics.LobbiesReaped.Add(float64(n))
}

func (m *Monitor) ObserveRequestLatency(endpoint string, duration time.Duration) {
	m.metrics.RequestLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}
