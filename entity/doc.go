// Package entity implements the activation and health state of one
// capability inside a task.
//
// An entity is a named, independently activatable function (one motor
// channel, one capture pipeline) owned by exactly one task. It tracks two
// orthogonal states: the operational state (Boot/Normal/Error/Fault with a
// cached diagnostic code) and the activation state
// (Inactive/Activating/Active/Deactivating).
//
// Activation transitions form a strict cycle with at most one transition in
// flight. Requests issued while a transition is in flight are coalesced
// into a single pending slot, last writer wins, and the retained request is
// acted on once the in-flight transition resolves. Requests are never
// queued.
//
// The package also holds the process-wide entity database that assigns ids
// to labels. Ids are assigned once and never reused while the owning task
// lives, so a stale id can be detected rather than silently re-bound.
package entity
