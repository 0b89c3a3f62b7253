// Package dune is a task runtime for autonomous vehicles.
//
// A vehicle is run as a set of tasks, each owning its hardware and its
// entities, exchanging typed messages over an in-process bus. The engine
// supervises the tasks through a fixed lifecycle and restarts them on
// fault, in task scope or by escalating to a process relaunch.
//
// # Layers
//
// Core plumbing:
//   - message: typed messages with source/destination envelopes
//   - bus: publish/subscribe delivery with per-recipient queues
//   - entity: entity database, operational and activation state machines
//   - config: parameter tables and YAML vehicle profiles
//   - errors: error classes driving the failure policy
//   - metric: Prometheus registry and the runtime's core metrics
//
// Runtime:
//   - task: the task lifecycle, base behaviors and fault signaling
//   - engine: task supervision, restart scheduling, escalation
//
// Hardware and services:
//   - framing: serial record framing with CRC-8 checksums
//   - iomux: readiness polling over multiple descriptors
//   - watchdog: countdown timers for silent-device detection
//   - drivers/amc: motor controller driver
//   - drivers/camera: frame capture task
//   - service/monitor: health, entity and metrics endpoint
//   - transport/natsbridge: bus-to-NATS export
//
// cmd/dune wires a vehicle profile to a running set of tasks.
package dune
