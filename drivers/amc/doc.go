// Package amc drives a four-channel motor controller over a serial link.
//
// The controller speaks an ASCII framed protocol with a trailing CRC-8
// byte. The driver owns one entity per motor, polls rotation speed round
// robin so each loop iteration issues exactly one request, and arms a
// watchdog that is reset on every validated frame. A silent device past
// the watchdog deadline degrades the task to Error and raises a bounded
// task restart.
package amc
