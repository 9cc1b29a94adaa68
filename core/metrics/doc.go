// Package metrics defines the sinks that receive booking run reports.
// Sinks like PromSink and InfluxSink live in infra/metrics and register
// themselves with the factory here. NewMetricsSink returns a MultiSink
// automatically when several sinks are configured.
package metrics
