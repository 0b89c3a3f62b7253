// Package engine hosts tasks and supervises their lifecycles. Each
// registered task runs in its own goroutine through the standard phase
// sequence; faults raised by tasks arrive on a shared channel and the
// engine reruns, degrades or escalates according to the fault's scope
// and the failure class of the lifecycle error.
package engine
