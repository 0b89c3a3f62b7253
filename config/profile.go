package config

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/AndreGCGuerra/dune/errors"
)

// Profile maps task section names to raw parameter values.
type Profile map[string]map[string]string

// LoadProfile reads a YAML profile:
//
//	amc:
//	  "Serial Port - Device": /dev/ttyUSB0
//	  "Serial Port - Baud Rate": "57600"
//	camera:
//	  "Frames Per Second": "30"
func LoadProfile(path string) (Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "config", "LoadProfile", "read profile file")
	}
	return ParseProfile(raw)
}

// ParseProfile decodes a YAML profile document.
func ParseProfile(raw []byte) (Profile, error) {
	var doc map[string]map[string]string
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err),
			"config", "ParseProfile", "decode yaml")
	}
	return Profile(doc), nil
}

// Section returns the raw values for one task, never nil.
func (p Profile) Section(task string) map[string]string {
	if s, ok := p[task]; ok {
		return s
	}
	return map[string]string{}
}

// UpdateFunc observes profile updates. The engine uses it to publish
// ParameterUpdate messages to affected tasks.
type UpdateFunc func(task string, values map[string]string)

// SafeProfile provides thread-safe access to a live profile. Reads return
// copies so callers never observe a concurrent update mid-application.
type SafeProfile struct {
	mu       sync.RWMutex
	profile  Profile
	onUpdate []UpdateFunc
}

// NewSafeProfile wraps a profile for concurrent use.
func NewSafeProfile(p Profile) *SafeProfile {
	if p == nil {
		p = Profile{}
	}
	return &SafeProfile{profile: p}
}

// OnUpdate registers an observer for section updates.
func (sp *SafeProfile) OnUpdate(fn UpdateFunc) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	sp.onUpdate = append(sp.onUpdate, fn)
}

// Section returns a copy of one task's raw values.
func (sp *SafeProfile) Section(task string) map[string]string {
	sp.mu.RLock()
	defer sp.mu.RUnlock()

	src := sp.profile.Section(task)
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// UpdateSection atomically replaces one task's values and notifies
// observers with a copy.
func (sp *SafeProfile) UpdateSection(task string, values map[string]string) {
	sp.mu.Lock()
	section := make(map[string]string, len(values))
	for k, v := range values {
		section[k] = v
	}
	sp.profile[task] = section
	observers := make([]UpdateFunc, len(sp.onUpdate))
	copy(observers, sp.onUpdate)
	sp.mu.Unlock()

	for _, fn := range observers {
		copyOut := make(map[string]string, len(values))
		for k, v := range values {
			copyOut[k] = v
		}
		fn(task, copyOut)
	}
}
