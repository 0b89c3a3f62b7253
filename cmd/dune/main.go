// Package main implements the entry point for the dune vehicle runtime.
// It loads a vehicle profile, registers the driver and service tasks and
// supervises them until shutdown or a process-scope restart.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/AndreGCGuerra/dune/config"
	"github.com/AndreGCGuerra/dune/drivers/amc"
	"github.com/AndreGCGuerra/dune/drivers/camera"
	"github.com/AndreGCGuerra/dune/engine"
	"github.com/AndreGCGuerra/dune/metric"
	"github.com/AndreGCGuerra/dune/service/monitor"
	"github.com/AndreGCGuerra/dune/task"
	"github.com/AndreGCGuerra/dune/transport/natsbridge"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "dune"

	// exitCodeRestart tells the platform supervisor to relaunch the
	// whole process after the delay logged alongside the escalation.
	exitCodeRestart = 3
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		var restart *engine.ProcessRestartError
		if errors.As(err, &restart) {
			slog.Error("Process restart requested",
				"task", restart.Task,
				"reason", restart.Reason,
				"delay", restart.Delay,
				"exit_code", exitCodeRestart)
			os.Exit(exitCodeRestart)
		}
		slog.Error("Runtime failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting dune vehicle runtime",
		"version", Version,
		"build_time", BuildTime,
		"profile_path", cliCfg.ProfilePath)

	profile, err := config.LoadProfile(cliCfg.ProfilePath)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	eng := engine.New(engine.Options{
		Logger:       logger,
		Profile:      config.NewSafeProfile(profile),
		Metrics:      metric.NewMetricsRegistry(),
		RestartDelay: cliCfg.RestartDelay,
	})

	tasks, err := buildTasks(eng, cliCfg)
	if err != nil {
		return err
	}

	if cliCfg.Validate {
		if err := validateProfile(tasks, profile); err != nil {
			return err
		}
		slog.Info("Profile is valid", "tasks", len(tasks))
		return nil
	}

	return runWithSignalHandling(eng)
}

// buildTasks constructs and registers every task the profile and flags
// enable. The camera task needs a frame source, so it only runs when a
// spool directory is configured.
func buildTasks(eng *engine.Engine, cliCfg *CLIConfig) ([]task.Task, error) {
	tctx := eng.TaskContext()

	tasks := []task.Task{
		amc.New(tctx),
		monitor.New(tctx),
		natsbridge.New(tctx),
	}

	if cliCfg.CameraSpool != "" {
		tasks = append(tasks, camera.New(tctx, camera.NewSpoolSource(cliCfg.CameraSpool)))
	} else {
		slog.Info("Camera task disabled, no spool directory configured")
	}

	for _, t := range tasks {
		if err := eng.Register(t); err != nil {
			return nil, fmt.Errorf("register task %s: %w", t.Name(), err)
		}
		slog.Debug("Registered task", "task", t.Name())
	}

	return tasks, nil
}

// validateProfile applies every task's profile section against its
// parameter table without starting anything.
func validateProfile(tasks []task.Task, profile config.Profile) error {
	for _, t := range tasks {
		if err := t.Base().Params().Apply(profile[t.Name()]); err != nil {
			return fmt.Errorf("task %s: %w", t.Name(), err)
		}
	}

	for section := range profile {
		if !hasTask(tasks, section) {
			slog.Warn("Profile section has no matching task", "section", section)
		}
	}
	return nil
}

func hasTask(tasks []task.Task, name string) bool {
	for _, t := range tasks {
		if t.Name() == name {
			return true
		}
	}
	return false
}

// runWithSignalHandling supervises the tasks until a signal arrives or a
// task escalates to process scope.
func runWithSignalHandling(eng *engine.Engine) error {
	signalCtx, signalCancel := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	slog.Info("Runtime started")
	err := eng.Run(signalCtx)
	if err != nil {
		return err
	}

	slog.Info("Runtime shutdown complete")
	return nil
}
