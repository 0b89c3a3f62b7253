package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProfile = `
amc:
  "Serial Port - Device": /dev/ttyUSB0
  "Serial Port - Baud Rate": "57600"
camera:
  "Frames Per Second": "30"
`

func TestParseProfile(t *testing.T) {
	p, err := ParseProfile([]byte(sampleProfile))
	require.NoError(t, err)

	amc := p.Section("amc")
	assert.Equal(t, "/dev/ttyUSB0", amc["Serial Port - Device"])
	assert.Equal(t, "57600", amc["Serial Port - Baud Rate"])

	assert.Empty(t, p.Section("unknown"))
}

func TestParseProfileRejectsGarbage(t *testing.T) {
	_, err := ParseProfile([]byte("::: not yaml"))
	require.Error(t, err)
}

func TestSafeProfileSectionIsCopy(t *testing.T) {
	p, err := ParseProfile([]byte(sampleProfile))
	require.NoError(t, err)
	sp := NewSafeProfile(p)

	s := sp.Section("amc")
	s["Serial Port - Device"] = "/dev/null"

	assert.Equal(t, "/dev/ttyUSB0", sp.Section("amc")["Serial Port - Device"])
}

func TestSafeProfileUpdateNotifies(t *testing.T) {
	sp := NewSafeProfile(nil)

	var gotTask string
	var gotValues map[string]string
	sp.OnUpdate(func(task string, values map[string]string) {
		gotTask = task
		gotValues = values
	})

	sp.UpdateSection("amc", map[string]string{"Serial Port - Baud Rate": "115200"})

	assert.Equal(t, "amc", gotTask)
	assert.Equal(t, "115200", gotValues["Serial Port - Baud Rate"])
	assert.Equal(t, "115200", sp.Section("amc")["Serial Port - Baud Rate"])
}
