package loans

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts lifecycle transitions.
type Metrics struct {
	transitions *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	penalties   prometheus.Counter
}

// NewMetrics registers loan collectors on registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "libris_loan_transitions_total",
		Help: "Committed loan transitions by operation.",
	}, []string{"operation"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "libris_loan_rejections_total",
		Help: "Rejected loan operations by operation and error kind.",
	}, []string{"operation", "kind"})
	penalties := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "libris_overdue_penalties_total",
		Help: "Penalties generated for late returns.",
	})
	registerer.MustRegister(transitions, rejections, penalties)
	return &Metrics{transitions: transitions, rejections: rejections, penalties: penalties}
}

func (m *Metrics) observe(operation string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.rejections.WithLabelValues(operation, errorKind(err)).Inc()
		return
	}
	m.transitions.WithLabelValues(operation).Inc()
}

func (m *Metrics) penaltyGenerated() {
	if m == nil {
		return
	}
	m.penalties.Inc()
}
