package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/scripty/hub-server-go/internal/hub"
)

// pendingBuckets spans fetches (milliseconds) through day-long transcriptions.
var pendingBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 60, 300, 1800, 3600, 21600, 86400}

type hubMetrics struct {
	connectionsActive  prometheus.Gauge
	connectionsTotal   prometheus.Counter
	sessionsAuthorized prometheus.Counter
	messagesTotal      *prometheus.CounterVec
	pendingActive      *prometheus.GaugeVec
	pendingResolved    *prometheus.CounterVec
	pendingDuration    *prometheus.HistogramVec
	clusterCounts      *prometheus.GaugeVec
}

// NewHubMetrics registers the hub collectors on reg.
func NewHubMetrics(reg prometheus.Registerer) hub.Metrics {
	m := &hubMetrics{
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hub_connections_active",
			Help: "Number of open websocket connections",
		}),

		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hub_connections_total",
			Help: "Total number of accepted websocket connections",
		}),

		sessionsAuthorized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hub_sessions_authorized_total",
			Help: "Total number of successful IDENTIFY handshakes",
		}),

		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_messages_total",
			Help: "Inbound messages by opcode and error code",
		}, []string{"opcode", "error_code"}),

		pendingActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hub_pending_requests",
			Help: "Outstanding correlated requests",
		}, []string{"kind"}),

		pendingResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_pending_resolved_total",
			Help: "Correlated requests resolved by outcome",
		}, []string{"kind", "outcome"}),

		pendingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hub_pending_duration_seconds",
			Help:    "Time from registration to resolution of correlated requests",
			Buckets: pendingBuckets,
		}, []string{"kind"}),

		clusterCounts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hub_cluster_count",
			Help: "Latest server and user counts reported by each cluster",
		}, []string{"stat", "cluster"}),
	}

	reg.MustRegister(
		m.connectionsActive,
		m.connectionsTotal,
		m.sessionsAuthorized,
		m.messagesTotal,
		m.pendingActive,
		m.pendingResolved,
		m.pendingDuration,
		m.clusterCounts,
	)

	return m
}

func (m *hubMetrics) ConnectionOpened() {
	m.connectionsActive.Inc()
	m.connectionsTotal.Inc()
}

func (m *hubMetrics) ConnectionClosed() {
	m.connectionsActive.Dec()
}

func (m *hubMetrics) SessionAuthorized() {
	m.sessionsAuthorized.Inc()
}

func (m *hubMetrics) MessageHandled(opcode string, errCode string) {
	if errCode == "" {
		errCode = "none"
	}
	m.messagesTotal.WithLabelValues(opcode, errCode).Inc()
}

func (m *hubMetrics) PendingRegistered(kind hub.Kind) {
	m.pendingActive.WithLabelValues(string(kind)).Inc()
}

func (m *hubMetrics) PendingResolved(kind hub.Kind, outcome hub.Outcome, age time.Duration) {
	m.pendingActive.WithLabelValues(string(kind)).Dec()
	m.pendingResolved.WithLabelValues(string(kind), string(outcome)).Inc()
	m.pendingDuration.WithLabelValues(string(kind)).Observe(age.Seconds())
}

func (m *hubMetrics) ClusterCount(stat string, clusterID int64, count int64) {
	m.clusterCounts.WithLabelValues(stat, strconv.FormatInt(clusterID, 10)).Set(float64(count))
}

var _ hub.Metrics = (*hubMetrics)(nil)
