package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the attendance counters. Use New with a dedicated registry in
// tests to avoid duplicate registration.
type Metrics struct {
	CheckIns    *prometheus.CounterVec
	AdminGrants *prometheus.CounterVec
	Deletes     *prometheus.CounterVec
	Exports     *prometheus.CounterVec
}

// New registers the counters with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CheckIns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "checkins_total",
			Help:      "Check-in attempts by channel and outcome.",
		}, []string{"channel", "outcome"}),
		AdminGrants: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "admin_grants_total",
			Help:      "Admin grant attempts by result.",
		}, []string{"result"}),
		Deletes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "deletes_total",
			Help:      "Destructive resets by scope.",
		}, []string{"scope"}),
		Exports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "exports_total",
			Help:      "Ledger exports by format.",
		}, []string{"format"}),
	}
}
