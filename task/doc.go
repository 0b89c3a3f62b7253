// Package task implements the unit of independent execution in the runtime.
//
// A task hosts one or more entities, owns a dispatch table mapping message
// types to handlers, and advances through a strict lifecycle:
//
//	Boot -> EntityReservation -> EntityResolution -> ResourceAcquisition ->
//	ResourceInitialization -> Main -> ResourceRelease
//
// Phases are entered once per run; the loop restarts from Boot only when a
// restart is requested. Failure semantics differ per phase: configuration
// and parameter errors are fatal at startup, acquisition failures roll back
// everything acquired and request a delayed task restart, initialization
// failures leave the task alive but degraded, and release always runs and
// is idempotent.
//
// Within a task execution is single threaded and cooperative. The only
// blocking points are WaitForMessages and whatever bounded waits the
// driver's main loop performs; the stop flag is observed at those
// boundaries, so the bounded-wait granularity is also the cancellation
// latency. Restart conditions are typed fault signals delivered to the
// supervising host over a channel, never stack unwinding.
package task
