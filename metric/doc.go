// Package metric manages Prometheus metrics for the runtime.
//
// A single MetricsRegistry owns the Prometheus registry and the core runtime
// metrics: task lifecycle phases, entity states, bus throughput, protocol
// checksum failures, watchdog expiries and restarts. Tasks register their own
// metrics through the MetricsRegistrar interface; duplicate registrations are
// rejected so a restarting task must unregister first.
//
// Checksum failures are dropped silently at the protocol layer, but the drop
// count is exported here so supervisory diagnostics can observe line quality
// without the parser escalating anything.
package metric
