// Package health aggregates entity state reports into a vehicle-level
// health view with thread-safe status tracking.
package health

import (
	"time"

	"github.com/AndreGCGuerra/dune/message"
)

// Status represents the health state of one entity or an aggregate.
type Status struct {
	Component   string    `json:"component"`
	Healthy     bool      `json:"healthy"`
	Status      string    `json:"status"` // "healthy", "degraded", "unhealthy"
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
}

// IsHealthy returns true if the status is healthy.
func (s Status) IsHealthy() bool {
	return s.Status == "healthy"
}

// IsDegraded returns true if the status is degraded.
func (s Status) IsDegraded() bool {
	return s.Status == "degraded"
}

// IsUnhealthy returns true if the status is unhealthy.
func (s Status) IsUnhealthy() bool {
	return s.Status == "unhealthy"
}

// NewHealthy creates a new healthy status.
func NewHealthy(component, message string) Status {
	return Status{
		Component: component,
		Healthy:   true,
		Status:    "healthy",
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewDegraded creates a new degraded status.
func NewDegraded(component, message string) Status {
	return Status{
		Component: component,
		Healthy:   false,
		Status:    "degraded",
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewUnhealthy creates a new unhealthy status.
func NewUnhealthy(component, message string) Status {
	return Status{
		Component: component,
		Healthy:   false,
		Status:    "unhealthy",
		Message:   message,
		Timestamp: time.Now(),
	}
}

// FromEntityState converts an operational state report into a Status.
// Boot and Error are degraded states: the entity is alive and may recover
// on its own. Fault is terminal until the owning task restarts.
func FromEntityState(component string, es *message.EntityState) Status {
	msg := es.Description
	if msg == "" {
		msg = es.Code.Description()
	}

	switch es.State {
	case message.StateNormal:
		return NewHealthy(component, msg)
	case message.StateFault:
		return NewUnhealthy(component, msg)
	default:
		return NewDegraded(component, msg)
	}
}

// Aggregate creates a status by aggregating sub-statuses.
// The aggregation rules are:
//   - all healthy: aggregate healthy
//   - any unhealthy: aggregate unhealthy
//   - none unhealthy, at least one degraded: aggregate degraded
func Aggregate(component string, subStatuses []Status) Status {
	if len(subStatuses) == 0 {
		return NewDegraded(component, "no entities reporting")
	}

	hasUnhealthy := false
	hasDegraded := false
	for _, sub := range subStatuses {
		if sub.IsUnhealthy() {
			hasUnhealthy = true
		} else if sub.IsDegraded() {
			hasDegraded = true
		}
	}

	var status Status
	switch {
	case hasUnhealthy:
		status = NewUnhealthy(component, "one or more entities faulted")
	case hasDegraded:
		status = NewDegraded(component, "one or more entities degraded")
	default:
		status = NewHealthy(component, "all entities healthy")
	}

	status.SubStatuses = make([]Status, len(subStatuses))
	copy(status.SubStatuses, subStatuses)
	return status
}
