package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/AndreGCGuerra/dune/errors"
)

// Visibility controls who may change a parameter at runtime.
type Visibility int

const (
	// VisibilityDeveloper hides the parameter from operator consoles.
	VisibilityDeveloper Visibility = iota
	// VisibilityUser exposes the parameter to operators.
	VisibilityUser
)

// Parameter is one named configuration value with its constraints.
type Parameter struct {
	name        string
	value       string
	raw         bool // value explicitly set, not defaulted
	def         string
	hasDefault  bool
	min         float64
	hasMin      bool
	max         float64
	hasMax      bool
	units       string
	description string
	visibility  Visibility
}

// Name returns the parameter name.
func (p *Parameter) Name() string { return p.name }

// Units returns the units string, empty if none.
func (p *Parameter) Units() string { return p.units }

// Description returns the operator description.
func (p *Parameter) Description() string { return p.description }

// DefaultValue sets the default used when no profile value is present.
func (p *Parameter) DefaultValue(v string) *Parameter {
	p.def = v
	p.hasDefault = true
	if !p.raw {
		p.value = v
	}
	return p
}

// MinimumValue sets the lower bound for numeric parameters.
func (p *Parameter) MinimumValue(v float64) *Parameter {
	p.min = v
	p.hasMin = true
	return p
}

// MaximumValue sets the upper bound for numeric parameters.
func (p *Parameter) MaximumValue(v float64) *Parameter {
	p.max = v
	p.hasMax = true
	return p
}

// SetUnits records the units string (e.g. "rpm", "s", "%").
func (p *Parameter) SetUnits(u string) *Parameter {
	p.units = u
	return p
}

// SetDescription records the operator description.
func (p *Parameter) SetDescription(d string) *Parameter {
	p.description = d
	return p
}

// SetVisibility records who may change the parameter.
func (p *Parameter) SetVisibility(v Visibility) *Parameter {
	p.visibility = v
	return p
}

// checkRange validates a raw value against the numeric bounds.
func (p *Parameter) checkRange(raw string) error {
	if !p.hasMin && !p.hasMax {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		// Bounds declared on a non-numeric value is a definition error.
		return errors.WrapInvalid(
			fmt.Errorf("parameter %q: %q is not numeric: %w", p.name, raw, errors.ErrParamRange),
			"config", "checkRange", "parse numeric parameter")
	}
	if p.hasMin && f < p.min {
		return errors.WrapInvalid(
			fmt.Errorf("parameter %q: %v below minimum %v: %w", p.name, f, p.min, errors.ErrParamRange),
			"config", "checkRange", "validate minimum")
	}
	if p.hasMax && f > p.max {
		return errors.WrapInvalid(
			fmt.Errorf("parameter %q: %v above maximum %v: %w", p.name, f, p.max, errors.ErrParamRange),
			"config", "checkRange", "validate maximum")
	}
	return nil
}

// Table holds the parameter declarations of one task.
type Table struct {
	params map[string]*Parameter
	order  []string
}

// NewTable creates an empty parameter table.
func NewTable() *Table {
	return &Table{params: make(map[string]*Parameter)}
}

// Define declares a parameter and returns it for builder-style chaining:
//
//	params.Define("Serial Port - Baud Rate").
//	    DefaultValue("57600").
//	    SetDescription("Serial port baud rate")
//
// Defining the same name twice returns the existing declaration.
func (t *Table) Define(name string) *Parameter {
	if p, exists := t.params[name]; exists {
		return p
	}
	p := &Parameter{name: name}
	t.params[name] = p
	t.order = append(t.order, name)
	return p
}

// Names returns all declared parameter names in declaration order.
func (t *Table) Names() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Apply validates and installs raw values. Unknown names and range
// violations fail without installing anything; a missing value with no
// default is a missing-parameter error.
func (t *Table) Apply(values map[string]string) error {
	for name, raw := range values {
		p, exists := t.params[name]
		if !exists {
			return errors.WrapInvalid(
				fmt.Errorf("unknown parameter %q: %w", name, errors.ErrInvalidConfig),
				"config", "Apply", "look up parameter")
		}
		if err := p.checkRange(raw); err != nil {
			return err
		}
	}

	for name, raw := range values {
		p := t.params[name]
		p.value = raw
		p.raw = true
	}

	for _, name := range t.order {
		p := t.params[name]
		if !p.raw && !p.hasDefault {
			return errors.WrapInvalid(
				fmt.Errorf("parameter %q has no value and no default: %w", name, errors.ErrMissingParam),
				"config", "Apply", "check required parameters")
		}
	}
	return nil
}

// String returns a parameter's value.
func (t *Table) String(name string) (string, error) {
	p, exists := t.params[name]
	if !exists {
		return "", errors.WrapInvalid(
			fmt.Errorf("undeclared parameter %q: %w", name, errors.ErrMissingParam),
			"config", "String", "look up parameter")
	}
	return p.value, nil
}

// Int returns a parameter parsed as int.
func (t *Table) Int(name string) (int, error) {
	raw, err := t.String(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.WrapInvalid(
			fmt.Errorf("parameter %q: %w", name, err),
			"config", "Int", "parse int parameter")
	}
	return v, nil
}

// Uint returns a parameter parsed as unsigned int.
func (t *Table) Uint(name string) (uint, error) {
	raw, err := t.String(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.WrapInvalid(
			fmt.Errorf("parameter %q: %w", name, err),
			"config", "Uint", "parse uint parameter")
	}
	return uint(v), nil
}

// Float returns a parameter parsed as float64.
func (t *Table) Float(name string) (float64, error) {
	raw, err := t.String(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.WrapInvalid(
			fmt.Errorf("parameter %q: %w", name, err),
			"config", "Float", "parse float parameter")
	}
	return v, nil
}

// Bool returns a parameter parsed as bool.
func (t *Table) Bool(name string) (bool, error) {
	raw, err := t.String(name)
	if err != nil {
		return false, err
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.WrapInvalid(
			fmt.Errorf("parameter %q: %w", name, err),
			"config", "Bool", "parse bool parameter")
	}
	return v, nil
}

// Duration returns a parameter parsed as a time.Duration. Plain numbers are
// interpreted as seconds, matching how profiles written for the original
// system express periods.
func (t *Table) Duration(name string) (time.Duration, error) {
	raw, err := t.String(name)
	if err != nil {
		return 0, err
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.WrapInvalid(
			fmt.Errorf("parameter %q: %w", name, err),
			"config", "Duration", "parse duration parameter")
	}
	return d, nil
}
