package task

import (
	"context"
	"fmt"

	"github.com/AndreGCGuerra/dune/errors"
	"github.com/AndreGCGuerra/dune/message"
)

// Execute runs a task through its full lifecycle: boot, bus subscription,
// entity reservation and resolution, resource acquisition and
// initialization, the main loop, and resource release. It returns when the
// main loop ends or a lifecycle phase fails.
//
// Failure severity depends on the phase. Configuration and reservation
// errors are fatal, the host must not retry them. Resolution errors are
// transient, the host reruns the task after a delay. Acquisition failures
// roll back through OnResourceRelease before returning. Initialization
// failures leave the task running in a degraded state with its main entity
// in error.
func Execute(ctx context.Context, t Task) error {
	bt := t.Base()
	bt.self = t
	bt.resetStop()

	bt.setPhase(PhaseBoot)
	if err := bt.applyProfile(t); err != nil {
		return err
	}

	if err := bt.connect(); err != nil {
		return errors.WrapFatal(err, bt.name, "Execute", "subscribe to bus")
	}
	defer bt.disconnect()

	bt.setPhase(PhaseEntityReservation)
	if err := bt.reserveMain(); err != nil {
		return errors.WrapFatal(err, bt.name, "Execute", "reserve main entity")
	}
	if err := t.OnEntityReservation(); err != nil {
		return errors.WrapFatal(err, bt.name, "Execute", "reserve entities")
	}

	bt.setPhase(PhaseEntityResolution)
	if err := t.OnEntityResolution(); err != nil {
		bt.SetEntityStateDesc(message.StateError, "entity resolution failed")
		return errors.WrapTransient(err, bt.name, "Execute", "resolve entities")
	}

	bt.setPhase(PhaseResourceAcquisition)
	if err := t.OnResourceAcquisition(); err != nil {
		t.OnResourceRelease()
		bt.SetEntityStateDesc(message.StateFault, err.Error())
		return errors.WrapFatal(err, bt.name, "Execute", "acquire resources")
	}
	defer func() {
		bt.setPhase(PhaseResourceRelease)
		t.OnResourceRelease()
	}()

	bt.setPhase(PhaseResourceInitialization)
	if err := t.OnResourceInitialization(); err != nil {
		bt.SetEntityStateDesc(message.StateError, err.Error())
		bt.logger.Error("resource initialization failed, running degraded",
			"error", err)
	} else {
		bt.SetEntityState(message.StateNormal, message.CodeActive)
	}
	bt.applyBootActivation()

	bt.setPhase(PhaseMain)
	if err := t.OnMain(); err != nil {
		return errors.Wrap(err, bt.name, "Execute", "main loop")
	}
	return ctx.Err()
}

// applyProfile installs the task's profile section into its parameter table
// and runs the parameter hook. A rejected value is a configuration error.
func (bt *BaseTask) applyProfile(t Task) error {
	values := map[string]string{}
	if bt.ctx.Profile != nil {
		values = bt.ctx.Profile.Section(bt.name)
	}
	if err := bt.params.Apply(values); err != nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err),
			bt.name, "Execute", "apply configuration")
	}
	if err := t.OnUpdateParameters(); err != nil {
		return errors.WrapInvalid(err, bt.name, "Execute", "apply parameters")
	}
	return nil
}
