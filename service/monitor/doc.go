// Package monitor exposes the runtime's observability surface over HTTP:
// Prometheus metrics, an aggregated health endpoint, the entity roster,
// and a websocket stream of entity state changes for live consoles.
//
// The service runs as an ordinary task so it shares the bus, follows the
// standard lifecycle, and is restarted by the engine like any driver.
package monitor
