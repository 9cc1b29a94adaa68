package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/raikasdev/howareya/core/metrics"
	"github.com/raikasdev/howareya/core/model"
)

// PromSink records run reports in Prometheus metrics.
type PromSink struct {
	runs            *prometheus.CounterVec
	lastRun         prometheus.Gauge
	leadTime        prometheus.Histogram
	lastRunContacts *prometheus.GaugeVec
}

// NewPromSink registers run metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_runs_total",
			Help: "Number of completed booking runs",
		}, []string{"trigger"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "booking_last_run_timestamp_seconds",
			Help: "Unix time at which the last booking run started",
		}),
		leadTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "booking_lead_time_days",
			Help:    "Days between a run and the meeting it booked",
			Buckets: []float64{1, 2, 3, 4, 5, 7, 10, 14},
		}),
		lastRunContacts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "booking_last_run_contacts",
			Help: "Contacts per outcome in the last booking run",
		}, []string{"outcome"}),
	}
	var err error
	if s.runs, err = register(reg, s.runs); err != nil {
		return nil, err
	}
	if s.lastRun, err = register(reg, s.lastRun); err != nil {
		return nil, err
	}
	if s.leadTime, err = register(reg, s.leadTime); err != nil {
		return nil, err
	}
	if s.lastRunContacts, err = register(reg, s.lastRunContacts); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the already registered collector when one exists.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return c, err
		}
		existing, ok := are.ExistingCollector.(C)
		if !ok {
			return c, err
		}
		return existing, nil
	}
	return c, nil
}

// RecordRun updates the run counters and the lead time histogram.
func (s *PromSink) RecordRun(r model.RunReport) error {
	s.runs.WithLabelValues(r.Trigger).Inc()
	s.lastRun.Set(float64(r.StartedAt.Unix()))
	for _, o := range model.Outcomes {
		s.lastRunContacts.WithLabelValues(string(o)).Set(float64(r.Count(o)))
	}
	for _, b := range r.Booked() {
		s.leadTime.Observe(b.Start.Sub(r.StartedAt).Hours() / 24)
	}
	return nil
}

var _ coremetrics.MetricsSink = (*PromSink)(nil)
