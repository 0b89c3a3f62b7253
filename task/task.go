package task

import (
	"time"
)

// Phase is one stage of the task lifecycle state machine.
type Phase int

const (
	// PhaseBoot covers construction with unvalidated parameters.
	PhaseBoot Phase = iota
	// PhaseEntityReservation reserves ids for every label the task needs.
	PhaseEntityReservation
	// PhaseEntityResolution resolves labels owned by other tasks.
	PhaseEntityResolution
	// PhaseResourceAcquisition opens hardware handles.
	PhaseResourceAcquisition
	// PhaseResourceInitialization configures opened devices.
	PhaseResourceInitialization
	// PhaseMain runs the primary loop.
	PhaseMain
	// PhaseResourceRelease releases everything acquired.
	PhaseResourceRelease
)

// String returns a string representation of the phase
func (p Phase) String() string {
	switch p {
	case PhaseBoot:
		return "boot"
	case PhaseEntityReservation:
		return "entity-reservation"
	case PhaseEntityResolution:
		return "entity-resolution"
	case PhaseResourceAcquisition:
		return "resource-acquisition"
	case PhaseResourceInitialization:
		return "resource-initialization"
	case PhaseMain:
		return "main"
	case PhaseResourceRelease:
		return "resource-release"
	default:
		return "unknown"
	}
}

// Scope selects how far a restart reaches.
type Scope int

const (
	// ScopeTask restarts only the requesting task.
	ScopeTask Scope = iota
	// ScopeProcess restarts the whole runtime.
	ScopeProcess
)

// String returns a string representation of the scope
func (s Scope) String() string {
	if s == ScopeProcess {
		return "process"
	}
	return "task"
}

// RestartRequest is the typed fault signal a component raises when it needs
// a restart. The host guarantees the lifecycle reruns from a clean state
// after Delay.
type RestartRequest struct {
	Task   string
	Reason string
	Delay  time.Duration
	Scope  Scope
}

// Task is implemented by every schedulable unit. BaseTask provides no-op
// defaults for all hooks, so drivers override only what they need.
type Task interface {
	Name() string
	Base() *BaseTask

	// OnUpdateParameters installs validated parameter values. Called once
	// during Boot and again on every ParameterUpdate message.
	OnUpdateParameters() error
	// OnEntityReservation reserves entity ids for the task's labels.
	OnEntityReservation() error
	// OnEntityResolution resolves labels owned by other tasks.
	OnEntityResolution() error
	// OnResourceAcquisition opens hardware handles. Any error is fatal to
	// the task; everything already acquired is released before restart.
	OnResourceAcquisition() error
	// OnResourceInitialization configures opened devices. An error leaves
	// the task alive but degraded.
	OnResourceInitialization() error
	// OnMain runs the primary loop until a stop or restart request.
	OnMain() error
	// OnResourceRelease releases acquired resources. Always called on exit
	// from acquisition onward and must be idempotent.
	OnResourceRelease()
}

// Activatable is implemented by tasks whose main entity can be engaged and
// disengaged at runtime through the "Active" parameter.
type Activatable interface {
	// OnRequestActivation begins engaging the task's function. The task
	// completes the transition by calling SucceedActivation or
	// FailActivation on its main entity.
	OnRequestActivation()
	// OnRequestDeactivation begins disengaging the task's function.
	OnRequestDeactivation()
}
