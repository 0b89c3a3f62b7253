package entity

import (
	"github.com/AndreGCGuerra/dune/message"
)

// nextActivation is the single pending-transition slot.
type nextActivation int

const (
	nasSame nextActivation = iota
	nasActive
	nasInactive
)

// DispatchFunc publishes a report on behalf of the entity. The owning task
// installs it; it stamps the source entity id before publication.
type DispatchFunc func(msg message.Message)

// Entity holds the operational and activation state of one capability.
// Not safe for concurrent use: an entity belongs to its owner's goroutine.
type Entity struct {
	id    uint16
	label string
	owner string

	dispatch DispatchFunc

	opState message.OperationalState
	code    message.StatusCode
	desc    string

	reported  bool
	lastState message.OperationalState
	lastCode  message.StatusCode
	lastDesc  string

	actState message.ActivationState
	actError string
	next     nextActivation
}

// New creates an entity in Boot/Inactive with no cached code. The owner is
// recorded by task name so the back-reference survives a task restart.
func New(id uint16, label, owner string, dispatch DispatchFunc) *Entity {
	return &Entity{
		id:       id,
		label:    label,
		owner:    owner,
		dispatch: dispatch,
		opState:  message.StateBoot,
		code:     message.CodeNone,
		actState: message.ActInactive,
	}
}

// Id returns the entity identifier.
func (e *Entity) Id() uint16 { return e.id }

// Label returns the entity label.
func (e *Entity) Label() string { return e.label }

// Owner returns the owning task name.
func (e *Entity) Owner() string { return e.owner }

// State returns the current operational state.
func (e *Entity) State() message.OperationalState { return e.opState }

// SetState updates the operational state with a cached diagnostic code.
// A report identical to the last one is suppressed.
func (e *Entity) SetState(state message.OperationalState, code message.StatusCode) {
	e.opState = state
	e.code = code
	e.desc = code.Description()
	e.reportIfChanged()
}

// SetStateDesc updates the operational state with a free-text description.
// The cached code is cleared.
func (e *Entity) SetStateDesc(state message.OperationalState, desc string) {
	e.opState = state
	e.code = message.CodeNone
	e.desc = desc
	e.reportIfChanged()
}

func (e *Entity) reportIfChanged() {
	if e.reported && e.opState == e.lastState && e.code == e.lastCode &&
		(e.code != message.CodeNone || e.desc == e.lastDesc) {
		return
	}
	e.ReportState()
}

// ReportState emits the current operational state unconditionally.
func (e *Entity) ReportState() {
	e.reported = true
	e.lastState = e.opState
	e.lastCode = e.code
	e.lastDesc = e.desc
	e.dispatch(message.NewEntityState(e.opState, e.code, e.desc))
}

// ReportActivationState emits the current activation state.
func (e *Entity) ReportActivationState() {
	e.dispatch(message.NewEntityActivationState(e.actState, e.actError))
}

// ActivationState returns the current activation state.
func (e *Entity) ActivationState() message.ActivationState { return e.actState }

// IsActive reports whether the entity function is engaged.
func (e *Entity) IsActive() bool { return e.actState == message.ActActive }

// IsActivating reports whether an activation is in flight.
func (e *Entity) IsActivating() bool { return e.actState == message.ActActivating }

// IsDeactivating reports whether a deactivation is in flight.
func (e *Entity) IsDeactivating() bool { return e.actState == message.ActDeactivating }

// RequestActivation advances toward Active. While a transition is in flight
// the request overwrites the pending slot, last writer wins. Returns true
// when a new Activating transition begins now.
func (e *Entity) RequestActivation() bool {
	switch e.actState {
	case message.ActInactive:
		e.beginTransition(message.ActActivating)
		return true
	case message.ActActivating, message.ActDeactivating:
		e.next = nasActive
	case message.ActActive:
		// Already satisfied; cancel a pending deactivation request.
		e.next = nasSame
	}
	return false
}

// RequestDeactivation advances toward Inactive, with the same coalescing
// rules as RequestActivation. Returns true when a new Deactivating
// transition begins now.
func (e *Entity) RequestDeactivation() bool {
	switch e.actState {
	case message.ActActive:
		e.beginTransition(message.ActDeactivating)
		return true
	case message.ActActivating, message.ActDeactivating:
		e.next = nasInactive
	case message.ActInactive:
		e.next = nasSame
	}
	return false
}

func (e *Entity) beginTransition(state message.ActivationState) {
	e.actState = state
	e.actError = ""
	e.next = nasSame
	e.ReportActivationState()
}

// SucceedActivation completes an in-flight activation. If a deactivation
// request was retained meanwhile it begins immediately; the return value
// reports whether one did.
func (e *Entity) SucceedActivation() bool {
	if e.actState != message.ActActivating {
		return false
	}
	e.actState = message.ActActive
	e.actError = ""
	e.ReportActivationState()
	return e.consumePending()
}

// FailActivation aborts an in-flight activation: the entity reverts to
// Inactive and the operational state becomes Error with the given reason.
// A retained request is still acted on; the return value reports whether a
// new transition began.
func (e *Entity) FailActivation(reason string) bool {
	if e.actState != message.ActActivating {
		return false
	}
	e.actState = message.ActInactive
	e.actError = reason
	e.SetStateDesc(message.StateError, reason)
	e.ReportActivationState()
	return e.consumePending()
}

// SucceedDeactivation completes an in-flight deactivation, beginning a
// retained activation request if one exists.
func (e *Entity) SucceedDeactivation() bool {
	if e.actState != message.ActDeactivating {
		return false
	}
	e.actState = message.ActInactive
	e.actError = ""
	e.ReportActivationState()
	return e.consumePending()
}

// FailDeactivation aborts an in-flight deactivation: the entity stays
// Active and the operational state becomes Error with the given reason.
func (e *Entity) FailDeactivation(reason string) bool {
	if e.actState != message.ActDeactivating {
		return false
	}
	e.actState = message.ActActive
	e.actError = reason
	e.SetStateDesc(message.StateError, reason)
	e.ReportActivationState()
	return e.consumePending()
}

// consumePending acts on the retained request once the in-flight transition
// has resolved. A request the resolution already satisfied is discarded.
func (e *Entity) consumePending() bool {
	next := e.next
	e.next = nasSame

	switch {
	case next == nasActive && e.actState == message.ActInactive:
		e.beginTransition(message.ActActivating)
		return true
	case next == nasInactive && e.actState == message.ActActive:
		e.beginTransition(message.ActDeactivating)
		return true
	}
	return false
}

// ConsumeQueryState replies to a QueryEntityState request.
func (e *Entity) ConsumeQueryState(*message.QueryEntityState) {
	e.ReportState()
}

// ConsumeQueryActivationState replies to a QueryEntityActivationState
// request.
func (e *Entity) ConsumeQueryActivationState(*message.QueryEntityActivationState) {
	e.ReportActivationState()
}
