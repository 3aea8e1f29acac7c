// Package metrics defines the run and schedule events recorded after each
// optimisation and the sink interfaces that receive them. Sinks are built
// from configuration through a registry; NewMetricsSink returns a MultiSink
// when several are configured.
package metrics
