package booking

import "github.com/prometheus/client_golang/prometheus"

var (
	contactsTotal *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
)

func newCollectors() (*prometheus.CounterVec, *prometheus.HistogramVec) {
	contacts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_contacts_total",
			Help: "Contacts processed by the booking engine, by outcome",
		},
		[]string{"outcome"},
	)
	dur := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "booking_run_duration_seconds",
			Help:    "Wall time of a booking run",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"trigger"},
	)
	return contacts, dur
}

func init() {
	contactsTotal, runDuration = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers booking metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(contactsTotal, runDuration)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	contactsTotal, runDuration = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
