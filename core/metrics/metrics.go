package metrics

import (
	"errors"

	"github.com/raikasdev/howareya/core/factory"
	"github.com/raikasdev/howareya/core/model"
)

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
}

// MetricsSink records run reports for observability purposes.
type MetricsSink interface {
	RecordRun(report model.RunReport) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordRun(model.RunReport) error { return nil }

// MultiSink fans reports out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRun forwards the report to every sink and joins their errors.
func (m *MultiSink) RecordRun(r model.RunReport) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordRun(r))
	}
	return errors.Join(errs...)
}


// Close releases the sink if it holds resources. MultiSink children are
// closed in order.
func Close(s MetricsSink) {
	switch v := s.(type) {
	case *MultiSink:
		for _, child := range v.Sinks {
			Close(child)
		}
	case interface{ Close() }:
		v.Close()
	}
}
