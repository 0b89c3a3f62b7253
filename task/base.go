package task

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/AndreGCGuerra/dune/bus"
	"github.com/AndreGCGuerra/dune/config"
	"github.com/AndreGCGuerra/dune/entity"
	"github.com/AndreGCGuerra/dune/errors"
	"github.com/AndreGCGuerra/dune/message"
	"github.com/AndreGCGuerra/dune/metric"
	"github.com/AndreGCGuerra/dune/pkg/retry"
)

// Context bundles the shared collaborators a task is constructed with.
type Context struct {
	Bus     *bus.Bus
	DB      *entity.Database
	Profile *config.SafeProfile
	Logger  *slog.Logger
	Metrics *metric.MetricsRegistry
	Faults  chan<- RestartRequest
}

// Handler consumes one delivered message.
type Handler func(message.Message)

// BaseTask supplies the shared machinery of every task: the parameter
// table, the dispatch table, bus plumbing, the stop flag and restart
// signalling. Concrete tasks embed it and override lifecycle hooks.
type BaseTask struct {
	name   string
	ctx    Context
	logger *slog.Logger
	params *config.Table

	handlers  map[string]Handler
	recipient *bus.Recipient
	depth     int

	entities map[uint16]*entity.Entity
	main     *entity.Entity

	stop atomic.Bool
	self Task
}

// NewBaseTask creates the base machinery for a named task. The base binds
// handlers for entity state queries and parameter updates; drivers add
// their own bindings at construction.
func NewBaseTask(name string, ctx Context) *BaseTask {
	bt := &BaseTask{
		name:     name,
		ctx:      ctx,
		logger:   ctx.Logger.With("task", name),
		params:   config.NewTable(),
		handlers: make(map[string]Handler),
		entities: make(map[uint16]*entity.Entity),
		depth:    bus.DefaultQueueDepth,
	}

	// Built-in consumers every task carries.
	_ = bt.bind(string(message.NameQueryEntityState), bt.consumeQueryEntityState)
	_ = bt.bind(string(message.NameQueryEntityActivationState), bt.consumeQueryEntityActivationState)
	_ = bt.bind(string(message.NameParameterUpdate), bt.consumeParameterUpdate)

	return bt
}

// Name returns the task name.
func (bt *BaseTask) Name() string { return bt.name }

// Base returns the task's base machinery.
func (bt *BaseTask) Base() *BaseTask { return bt }

// Logger returns the task-scoped structured logger.
func (bt *BaseTask) Logger() *slog.Logger { return bt.logger }

// Params returns the task's parameter table.
func (bt *BaseTask) Params() *config.Table { return bt.params }

// Metrics returns the shared metrics registry, nil when running without one.
func (bt *BaseTask) Metrics() *metric.MetricsRegistry { return bt.ctx.Metrics }

// Default lifecycle hooks; drivers override what they need.

// OnUpdateParameters installs validated parameter values.
func (bt *BaseTask) OnUpdateParameters() error { return nil }

// OnEntityReservation reserves entity ids for the task's labels.
func (bt *BaseTask) OnEntityReservation() error { return nil }

// OnEntityResolution resolves labels owned by other tasks.
func (bt *BaseTask) OnEntityResolution() error { return nil }

// OnResourceAcquisition opens hardware handles.
func (bt *BaseTask) OnResourceAcquisition() error { return nil }

// OnResourceInitialization configures opened devices.
func (bt *BaseTask) OnResourceInitialization() error { return nil }

// OnMain runs the primary loop until stopped.
func (bt *BaseTask) OnMain() error {
	for !bt.Stopping() {
		bt.WaitForMessages(time.Second)
	}
	return nil
}

// OnResourceRelease releases acquired resources.
func (bt *BaseTask) OnResourceRelease() {}

// bind records a handler for one message type. Exactly one handler per
// type per task.
func (bt *BaseTask) bind(name string, h Handler) error {
	if _, exists := bt.handlers[name]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("message type %q: %w", name, errors.ErrDuplicateBind),
			bt.name, "bind", "register handler")
	}
	bt.handlers[name] = h
	return nil
}

// Bind registers a typed consumer in the task's dispatch table. The proto
// argument carries the message type; its contents are ignored.
func Bind[M message.Message](bt *BaseTask, proto M, h func(M)) error {
	return bt.bind(proto.Name(), func(m message.Message) {
		if typed, ok := m.(M); ok {
			h(typed)
		}
	})
}

// MustBind is Bind for construction paths where a duplicate registration is
// a programming error.
func MustBind[M message.Message](bt *BaseTask, proto M, h func(M)) {
	if err := Bind(bt, proto, h); err != nil {
		panic(err)
	}
}

// connect subscribes the task to the bus for all bound message types.
func (bt *BaseTask) connect() error {
	types := make([]string, 0, len(bt.handlers))
	for name := range bt.handlers {
		types = append(types, name)
	}
	r, err := bt.ctx.Bus.Subscribe(bt.name, bt.depth, types...)
	if err != nil {
		return err
	}
	bt.recipient = r
	return nil
}

// disconnect drops the bus subscription.
func (bt *BaseTask) disconnect() {
	if bt.recipient != nil {
		bt.ctx.Bus.Unsubscribe(bt.name)
		bt.recipient = nil
	}
}

// Dispatch publishes a message from this task. The source entity defaults
// to the main entity when the caller has not set one.
func (bt *BaseTask) Dispatch(msg message.Message) {
	src, ok := msg.(interface{ SetSource(string, uint16) })
	if !ok {
		return
	}
	id := message.UnknownEntity
	if bt.main != nil {
		id = bt.main.Id()
	}
	if ent := msg.Envelope().SrcEnt; ent != message.UnknownEntity {
		id = ent
	}
	src.SetSource(bt.name, id)
	bt.ctx.Bus.Publish(msg)
}

// DispatchFrom publishes a message attributed to a specific entity.
func (bt *BaseTask) DispatchFrom(entityID uint16, msg message.Message) {
	if src, ok := msg.(interface{ SetSource(string, uint16) }); ok {
		src.SetSource(bt.name, entityID)
	}
	bt.ctx.Bus.Publish(msg)
}

// WaitForMessages blocks until a message arrives or the timeout elapses,
// then drains and dispatches everything pending in arrival order. Returns
// the number of messages dispatched.
func (bt *BaseTask) WaitForMessages(timeout time.Duration) int {
	if bt.recipient == nil {
		return 0
	}
	bt.recipient.Wait(timeout)
	return bt.ConsumeMessages()
}

// ConsumeMessages drains and dispatches pending messages without waiting.
func (bt *BaseTask) ConsumeMessages() int {
	if bt.recipient == nil {
		return 0
	}
	msgs := bt.recipient.Drain()
	for _, m := range msgs {
		if h, ok := bt.handlers[m.Name()]; ok {
			h(m)
		}
	}
	return len(msgs)
}

// Stopping reports whether a stop has been requested. Main loops check it
// at every blocking-wait boundary.
func (bt *BaseTask) Stopping() bool { return bt.stop.Load() }

// Stop requests a cooperative stop. The task observes it at its next
// bounded wait.
func (bt *BaseTask) Stop() { bt.stop.Store(true) }

func (bt *BaseTask) resetStop() { bt.stop.Store(false) }

// RequestRestart raises a typed fault to the supervising host and stops
// the local loop. The host reruns the lifecycle after delay.
func (bt *BaseTask) RequestRestart(reason string, delay time.Duration, scope Scope) {
	bt.logger.Error("restart requested",
		"reason", reason, "delay", delay, "scope", scope.String())

	if bt.ctx.Faults != nil {
		bt.ctx.Faults <- RestartRequest{
			Task:   bt.name,
			Reason: reason,
			Delay:  delay,
			Scope:  scope,
		}
	}
	bt.Stop()
}

// ReserveEntity allocates (or re-binds after restart) an entity for a label
// owned by this task.
func (bt *BaseTask) ReserveEntity(label string) (*entity.Entity, error) {
	id, err := bt.ctx.DB.Reserve(label, bt.name)
	if err != nil {
		return nil, err
	}
	if e, exists := bt.entities[id]; exists {
		return e, nil
	}

	e := entity.New(id, label, bt.name, func(msg message.Message) {
		bt.DispatchFrom(id, msg)
	})
	bt.entities[id] = e
	bt.DispatchFrom(id, message.NewEntityInfo(id, label, bt.name))
	return e, nil
}

// ResolveEntity looks up a label owned by any task, waiting a bounded grace
// period for it to appear. After the grace period it fails with
// ErrUnresolvedEntity; the caller reports the failure, never ignores it.
func (bt *BaseTask) ResolveEntity(ctx context.Context, label string) (uint16, error) {
	id, err := retry.DoWithResult(ctx, retry.Resolution(), func() (uint16, error) {
		return bt.ctx.DB.Resolve(label)
	})
	if err != nil {
		return message.UnknownEntity, errors.WrapTransient(
			fmt.Errorf("label %q: %w", label, errors.ErrUnresolvedEntity),
			bt.name, "ResolveEntity", "resolve external entity")
	}
	return id, nil
}

// MainEntity returns the task's main entity, nil before reservation.
func (bt *BaseTask) MainEntity() *entity.Entity { return bt.main }

// SetEntityState updates the main entity's operational state with a cached
// status code.
func (bt *BaseTask) SetEntityState(state message.OperationalState, code message.StatusCode) {
	if bt.main != nil {
		bt.main.SetState(state, code)
	}
	bt.gaugeEntityState(state)
}

// SetEntityStateDesc updates the main entity's operational state with a
// free-text description.
func (bt *BaseTask) SetEntityStateDesc(state message.OperationalState, desc string) {
	if bt.main != nil {
		bt.main.SetStateDesc(state, desc)
	}
	bt.gaugeEntityState(state)
}

func (bt *BaseTask) gaugeEntityState(state message.OperationalState) {
	if bt.ctx.Metrics != nil {
		bt.ctx.Metrics.CoreMetrics().EntityState.WithLabelValues(bt.name).Set(float64(state))
	}
}

// reserveMain creates the task's main entity under the task name.
func (bt *BaseTask) reserveMain() error {
	e, err := bt.ReserveEntity(bt.name)
	if err != nil {
		return err
	}
	bt.main = e
	return nil
}

func (bt *BaseTask) setPhase(p Phase) {
	if bt.ctx.Metrics != nil {
		bt.ctx.Metrics.CoreMetrics().TaskPhase.WithLabelValues(bt.name).Set(float64(p))
	}
	bt.logger.Debug("lifecycle phase", "phase", p.String())
}

// Built-in consumers.

func (bt *BaseTask) consumeQueryEntityState(m message.Message) {
	for _, e := range bt.entities {
		e.ReportState()
	}
}

func (bt *BaseTask) consumeQueryEntityActivationState(m message.Message) {
	for _, e := range bt.entities {
		e.ReportActivationState()
	}
}

// consumeParameterUpdate revalidates and reapplies changed values, then
// reruns the task's parameter hook. An "Active" value additionally drives
// the main entity's activation state machine for activatable tasks.
func (bt *BaseTask) consumeParameterUpdate(m message.Message) {
	upd, ok := m.(*message.ParameterUpdate)
	if !ok || upd.Task != bt.name {
		return
	}

	if err := bt.params.Apply(upd.Values); err != nil {
		bt.logger.Error("parameter update rejected", "error", err)
		return
	}
	if bt.self != nil {
		if err := bt.self.OnUpdateParameters(); err != nil {
			bt.logger.Error("parameter hook failed", "error", err)
		}
	}

	raw, exists := upd.Values["Active"]
	if !exists {
		return
	}
	want, err := strconv.ParseBool(raw)
	if err != nil {
		bt.logger.Error("invalid Active value", "value", raw)
		return
	}
	bt.driveActivation(want)
}

// driveActivation maps an Active value onto the main entity's activation
// state machine. The hook runs only when a transition actually begins.
func (bt *BaseTask) driveActivation(want bool) {
	if bt.main == nil {
		return
	}
	act, ok := bt.self.(Activatable)
	if !ok {
		return
	}
	if want {
		if bt.main.RequestActivation() {
			act.OnRequestActivation()
		}
	} else {
		if bt.main.RequestDeactivation() {
			act.OnRequestDeactivation()
		}
	}
}

// applyBootActivation engages an activatable task whose profile armed the
// Active parameter, so boot-time activation behaves like a runtime update.
func (bt *BaseTask) applyBootActivation() {
	if _, ok := bt.self.(Activatable); !ok {
		return
	}
	want, err := bt.params.Bool("Active")
	if err != nil || !want {
		return
	}
	bt.driveActivation(true)
}
