// Package config implements the runtime configuration surface.
//
// Each task declares a parameter table at construction: named parameters
// with a default, optional minimum and maximum, units and a description.
// Profiles assign raw values per task section; Apply validates and installs
// them before entity reservation, and again on every ParameterUpdate so a
// running task reapplies changed values without restarting.
//
// Configuration errors are fatal to the task at startup: a missing required
// parameter or an out-of-range value never starts a task half-configured.
package config
