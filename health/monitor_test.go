package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndreGCGuerra/dune/message"
)

func TestFromEntityStateMapping(t *testing.T) {
	tests := []struct {
		name  string
		state message.OperationalState
		want  string
	}{
		{"normal is healthy", message.StateNormal, "healthy"},
		{"boot is degraded", message.StateBoot, "degraded"},
		{"error is degraded", message.StateError, "degraded"},
		{"fault is unhealthy", message.StateFault, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			es := message.NewEntityState(tt.state, message.CodeNone, "")
			got := FromEntityState("motor", es)
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, "motor", got.Component)
		})
	}
}

func TestFromEntityStateMessagePrecedence(t *testing.T) {
	es := message.NewEntityState(message.StateError, message.CodeComError, "bus jammed")
	assert.Equal(t, "bus jammed", FromEntityState("amc", es).Message)

	es = message.NewEntityState(message.StateNormal, message.CodeActive, "")
	assert.Equal(t, "active", FromEntityState("amc", es).Message)
}

func TestMonitorUpdateAndGet(t *testing.T) {
	m := NewMonitor()
	m.Update("camera", NewHealthy("camera", "capturing"))

	status, exists := m.Get("camera")
	require.True(t, exists)
	assert.True(t, status.IsHealthy())
	assert.False(t, status.Timestamp.IsZero())

	_, exists = m.Get("sonar")
	assert.False(t, exists)
}

func TestAggregateHealthRules(t *testing.T) {
	m := NewMonitor()

	// Nothing reporting yet counts as degraded, not healthy.
	assert.True(t, m.AggregateHealth("vehicle").IsDegraded())

	m.Update("a", NewHealthy("a", ""))
	m.Update("b", NewHealthy("b", ""))
	assert.True(t, m.AggregateHealth("vehicle").IsHealthy())

	m.Update("b", NewDegraded("b", "watchdog tripped"))
	assert.True(t, m.AggregateHealth("vehicle").IsDegraded())

	m.Update("a", NewUnhealthy("a", "device lost"))
	agg := m.AggregateHealth("vehicle")
	assert.True(t, agg.IsUnhealthy())
	require.Len(t, agg.SubStatuses, 2)
	assert.Equal(t, "a", agg.SubStatuses[0].Component)
	assert.Equal(t, "b", agg.SubStatuses[1].Component)
}

func TestMonitorUpdateFromEntityState(t *testing.T) {
	m := NewMonitor()
	m.UpdateFromEntityState("Motor 2",
		message.NewEntityState(message.StateFault, message.CodeInternalError, ""))

	status, exists := m.Get("Motor 2")
	require.True(t, exists)
	assert.True(t, status.IsUnhealthy())
	assert.Equal(t, "internal error", status.Message)
}
