package construct

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics implements storage.Observer and counts session checks made by the
// HTTP layer.
type Metrics struct {
	created prometheus.Counter
	evicted prometheus.Counter
	pruned  prometheus.Counter
	checks  *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "construct",
			Name:      "sessions_created_total",
			Help:      "Admin sessions issued.",
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "construct",
			Name:      "sessions_evicted_total",
			Help:      "Sessions dropped because an identifier exceeded its limit.",
		}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "construct",
			Name:      "sessions_pruned_total",
			Help:      "Expired sessions removed during lookups.",
		}),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "construct",
			Name:      "session_checks_total",
			Help:      "Session checks by result.",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{m.created, m.evicted, m.pruned, m.checks} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) SessionCreated() {
	m.created.Inc()
}

func (m *Metrics) SessionsEvicted(n int) {
	m.evicted.Add(float64(n))
}

func (m *Metrics) SessionsPruned(n int) {
	m.pruned.Add(float64(n))
}

func (m *Metrics) observeCheck(valid bool) {
	if m == nil {
		return
	}
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.checks.WithLabelValues(result).Inc()
}
