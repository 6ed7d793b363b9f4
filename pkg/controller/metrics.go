package controller

import "github.com/prometheus/client_golang/prometheus"

// Provisioning attempt results.
const (
	ResultCreated      = "created"
	ResultNoResult     = "no_result"
	ResultNoAllocation = "no_allocation"
	ResultError        = "error"
)

// Metrics are the controller's prometheus collectors. A nil *Metrics
// records nothing.
type Metrics struct {
	nodes             prometheus.Gauge
	provisionAttempts *prometheus.CounterVec
	serversCreated    *prometheus.CounterVec
}

// NewMetrics creates unregistered collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gantry_nodes",
			Help: "Number of nodes online",
		}),
		provisionAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gantry_provision_attempts_total",
				Help: "Server creation attempts by node and result",
			},
			[]string{"node", "result"},
		),
		serversCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gantry_servers_created_total",
				Help: "Servers created by node",
			},
			[]string{"node"},
		),
	}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.nodes.Describe(ch)
	m.provisionAttempts.Describe(ch)
	m.serversCreated.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.nodes.Collect(ch)
	m.provisionAttempts.Collect(ch)
	m.serversCreated.Collect(ch)
}

func (m *Metrics) setNodes(n int) {
	if m != nil {
		m.nodes.Set(float64(n))
	}
}

func (m *Metrics) attempt(node, result string) {
	if m != nil {
		m.provisionAttempts.WithLabelValues(node, result).Inc()
	}
}

func (m *Metrics) created(node string) {
	if m != nil {
		m.serversCreated.WithLabelValues(node).Inc()
	}
}
