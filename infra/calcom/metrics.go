package calcom

import "github.com/prometheus/client_golang/prometheus"

var requestsTotal *prometheus.CounterVec

func newCollectors() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "calapi_requests_total",
		Help: "Requests sent to the scheduling service",
	}, []string{"operation", "result"})
}

func init() {
	requestsTotal = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers client metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(requestsTotal)
}

// ResetMetrics reinitializes the collectors for tests and registers them
// on reg when it is not nil.
func ResetMetrics(reg prometheus.Registerer) {
	requestsTotal = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
