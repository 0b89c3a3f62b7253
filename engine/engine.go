package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AndreGCGuerra/dune/bus"
	"github.com/AndreGCGuerra/dune/config"
	"github.com/AndreGCGuerra/dune/entity"
	"github.com/AndreGCGuerra/dune/errors"
	"github.com/AndreGCGuerra/dune/metric"
	"github.com/AndreGCGuerra/dune/task"
)

// DefaultRestartDelay spaces restarts of tasks that failed without naming
// their own delay.
const DefaultRestartDelay = 1 * time.Second

// ProcessRestartError reports that a task escalated to process scope. The
// launcher translates it into a distinctive exit code so the platform
// supervisor relaunches the whole runtime.
type ProcessRestartError struct {
	Task   string
	Reason string
	Delay  time.Duration
}

func (e *ProcessRestartError) Error() string {
	return fmt.Sprintf("process restart requested by task %s: %s", e.Task, e.Reason)
}

// Options configures an Engine.
type Options struct {
	Logger  *slog.Logger
	Profile *config.SafeProfile
	Metrics *metric.MetricsRegistry

	// RestartDelay applies to transient lifecycle failures that carried no
	// explicit delay. Zero means DefaultRestartDelay.
	RestartDelay time.Duration
}

// Engine owns the bus, the entity database and the fault channel, and runs
// every registered task through its lifecycle, restarting per the fault
// policy.
type Engine struct {
	bus     *bus.Bus
	db      *entity.Database
	profile *config.SafeProfile
	logger  *slog.Logger
	metrics *metric.MetricsRegistry

	faults       chan task.RestartRequest
	restartDelay time.Duration

	tasks map[string]task.Task
	order []string
}

// New creates an engine with an empty task set.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	profile := opts.Profile
	if profile == nil {
		profile = config.NewSafeProfile(nil)
	}
	delay := opts.RestartDelay
	if delay <= 0 {
		delay = DefaultRestartDelay
	}

	busOpts := []bus.Option{}
	if opts.Metrics != nil {
		busOpts = append(busOpts, bus.WithMetrics(opts.Metrics.CoreMetrics()))
	}

	return &Engine{
		bus:          bus.New(logger, busOpts...),
		db:           entity.NewDatabase(),
		profile:      profile,
		logger:       logger.With("component", "engine"),
		metrics:      opts.Metrics,
		faults:       make(chan task.RestartRequest, 16),
		restartDelay: delay,
		tasks:        make(map[string]task.Task),
	}
}

// Bus returns the engine's message bus.
func (e *Engine) Bus() *bus.Bus { return e.bus }

// Database returns the engine's entity database.
func (e *Engine) Database() *entity.Database { return e.db }

// TaskContext returns the collaborator bundle tasks are constructed with.
func (e *Engine) TaskContext() task.Context {
	return task.Context{
		Bus:     e.bus,
		DB:      e.db,
		Profile: e.profile,
		Logger:  e.logger,
		Metrics: e.metrics,
		Faults:  e.faults,
	}
}

// Register adds a task to the engine. Names must be unique; registration
// after Run is not supported.
func (e *Engine) Register(t task.Task) error {
	name := t.Name()
	if _, exists := e.tasks[name]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("task %q already registered", name),
			"engine", "Register", "add task")
	}
	e.tasks[name] = t
	e.order = append(e.order, name)
	return nil
}

type doneEvent struct {
	name string
	err  error
}

// Run starts every registered task and supervises until ctx is cancelled
// or a task escalates to process scope. It returns nil on orderly shutdown
// and *ProcessRestartError on escalation, after all tasks have released
// their resources.
func (e *Engine) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan doneEvent, len(e.tasks))
	relaunch := make(chan string, len(e.tasks))
	running := 0

	start := func(name string) {
		running++
		t := e.tasks[name]
		go func() {
			done <- doneEvent{name: name, err: task.Execute(runCtx, t)}
		}()
	}

	for _, name := range e.order {
		e.logger.Info("starting task", "task", name)
		start(name)
	}

	// pending holds the restart request a task raised before its lifecycle
	// unwound; it is consumed when the task's done event arrives.
	pending := make(map[string]task.RestartRequest)
	var escalation *ProcessRestartError
	shuttingDown := false

	shutdown := func() {
		if shuttingDown {
			return
		}
		shuttingDown = true
		cancel()
		for _, t := range e.tasks {
			t.Base().Stop()
		}
	}

	ctxDone := ctx.Done()

	for {
		select {
		case <-ctxDone:
			ctxDone = nil
			shutdown()

		case req := <-e.faults:
			e.countRestart(req)
			if req.Scope == task.ScopeProcess {
				e.logger.Error("process restart requested",
					"task", req.Task, "reason", req.Reason, "delay", req.Delay)
				if escalation == nil {
					escalation = &ProcessRestartError{
						Task:   req.Task,
						Reason: req.Reason,
						Delay:  req.Delay,
					}
				}
				shutdown()
				continue
			}
			pending[req.Task] = req

		case name := <-relaunch:
			if shuttingDown {
				continue
			}
			e.logger.Info("restarting task", "task", name)
			start(name)

		case ev := <-done:
			running--
			e.handleDone(ev, pending, shuttingDown, relaunch)
		}

		if shuttingDown && running == 0 {
			if escalation != nil {
				e.waitDelay(ctx, escalation.Delay)
				return escalation
			}
			return nil
		}
	}
}

// handleDone decides what to do with a finished task run: honor the restart
// request the task raised, relaunch transient and fatal lifecycle failures
// after the default delay, and leave invalid configurations stopped.
func (e *Engine) handleDone(ev doneEvent, pending map[string]task.RestartRequest,
	shuttingDown bool, relaunch chan string) {
	if shuttingDown {
		return
	}

	if req, ok := pending[ev.name]; ok {
		delete(pending, ev.name)
		e.scheduleRelaunch(ev.name, req.Delay, relaunch)
		return
	}

	switch {
	case ev.err == nil:
		e.logger.Info("task stopped", "task", ev.name)
	case errors.IsInvalid(ev.err):
		// Bad configuration never fixes itself; restarting would loop on
		// the same profile.
		e.logger.Error("task failed permanently",
			"task", ev.name, "error", ev.err)
	case errors.IsTransient(ev.err), errors.IsFatal(ev.err):
		// Fatal covers acquisition failures after rollback: the device may
		// come back, so the task is relaunched after the delay.
		e.logger.Warn("task failed, will retry",
			"task", ev.name, "error", ev.err)
		e.countRestart(task.RestartRequest{Task: ev.name, Scope: task.ScopeTask})
		e.scheduleRelaunch(ev.name, e.restartDelay, relaunch)
	default:
		e.logger.Error("task failed permanently",
			"task", ev.name, "error", ev.err)
	}
}

func (e *Engine) scheduleRelaunch(name string, delay time.Duration, relaunch chan string) {
	if delay <= 0 {
		delay = e.restartDelay
	}
	time.AfterFunc(delay, func() { relaunch <- name })
}

func (e *Engine) countRestart(req task.RestartRequest) {
	if e.metrics != nil {
		e.metrics.CoreMetrics().TaskRestarts.
			WithLabelValues(req.Task, req.Scope.String()).Inc()
	}
}

// waitDelay sleeps the escalation delay so an external supervisor does not
// relaunch the process into the same fault immediately.
func (e *Engine) waitDelay(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
}
