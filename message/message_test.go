package message

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderStamp(t *testing.T) {
	m := NewRpm(1200)
	assert.False(t, m.Stamped())
	assert.Equal(t, UnknownEntity, m.SrcEnt())

	now := time.Now()
	m.Stamp(now)
	require.True(t, m.Stamped())
	assert.NotEmpty(t, m.ID())
	assert.Equal(t, now, m.Timestamp())

	// Stamping again must not change identity
	id := m.ID()
	m.Stamp(now.Add(time.Hour))
	assert.Equal(t, id, m.ID())
	assert.Equal(t, now, m.Timestamp())
}

func TestCloneGetsFreshIdentity(t *testing.T) {
	m := NewEntityState(StateNormal, CodeActive, "")
	m.SetSource("amc", 3)
	m.Stamp(time.Now())

	c := m.Clone().(*EntityState)
	assert.False(t, c.Stamped())
	assert.Equal(t, "amc", c.Src())
	assert.Equal(t, uint16(3), c.SrcEnt())
	assert.Equal(t, m.State, c.State)
	assert.Equal(t, m.Code, c.Code)

	c.Stamp(time.Now())
	assert.NotEqual(t, m.ID(), c.ID())
}

func TestParameterUpdateCloneIsDeep(t *testing.T) {
	m := NewParameterUpdate("amc", map[string]string{"Serial Port - Baud Rate": "57600"})
	c := m.Clone().(*ParameterUpdate)

	c.Values["Serial Port - Baud Rate"] = "115200"
	assert.Equal(t, "57600", m.Values["Serial Port - Baud Rate"])

	if diff := cmp.Diff(m.Values, map[string]string{"Serial Port - Baud Rate": "57600"},
		cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("original mutated (-want +got):\n%s", diff)
	}
}

func TestMessageNames(t *testing.T) {
	tests := []struct {
		msg  Message
		name string
	}{
		{NewEntityState(StateBoot, CodeInit, ""), "EntityState"},
		{NewQueryEntityState(), "QueryEntityState"},
		{NewEntityActivationState(ActInactive, ""), "EntityActivationState"},
		{NewQueryEntityActivationState(), "QueryEntityActivationState"},
		{NewEntityInfo(1, "Motor 0", "amc"), "EntityInfo"},
		{NewQueryEntityInfo("Motor 0"), "QueryEntityInfo"},
		{NewSetThrusterActuation(0, 1000), "SetThrusterActuation"},
		{NewRpm(0), "Rpm"},
		{NewTemperature(21.5), "Temperature"},
		{NewVoltage(12.1), "Voltage"},
		{NewCurrent(0.4), "Current"},
		{NewLoggingControl(LogRequestCurrentName, ""), "LoggingControl"},
		{NewParameterUpdate("amc", nil), "ParameterUpdate"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.name, test.msg.Name())
		})
	}
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "normal", StateNormal.String())
	assert.Equal(t, "fault", StateFault.String())
	assert.Equal(t, "unknown", OperationalState(99).String())

	assert.Equal(t, "inactive", ActInactive.String())
	assert.Equal(t, "deactivating", ActDeactivating.String())
	assert.Equal(t, "unknown", ActivationState(99).String())
}
