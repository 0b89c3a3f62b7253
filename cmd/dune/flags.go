package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// CLIConfig holds command-line configuration.
type CLIConfig struct {
	ProfilePath  string
	LogLevel     string
	LogFormat    string
	CameraSpool  string
	RestartDelay time.Duration
	ShowVersion  bool
	ShowHelp     bool
	Validate     bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ProfilePath, "profile",
		getEnv("DUNE_PROFILE", "etc/vehicle.yaml"),
		"Path to the vehicle profile (env: DUNE_PROFILE)")

	flag.StringVar(&cfg.ProfilePath, "p",
		getEnv("DUNE_PROFILE", "etc/vehicle.yaml"),
		"Path to the vehicle profile (env: DUNE_PROFILE)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("DUNE_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: DUNE_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("DUNE_LOG_FORMAT", "text"),
		"Log format: json, text (env: DUNE_LOG_FORMAT)")

	flag.StringVar(&cfg.CameraSpool, "camera-spool",
		getEnv("DUNE_CAMERA_SPOOL", ""),
		"Camera frame spool directory, empty disables the camera task (env: DUNE_CAMERA_SPOOL)")

	flag.DurationVar(&cfg.RestartDelay, "restart-delay",
		getEnvDuration("DUNE_RESTART_DELAY", 0),
		"Default task restart delay, 0 uses the built-in default (env: DUNE_RESTART_DELAY)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate the profile and exit")

	flag.Usage = printDetailedHelp
	flag.Parse()

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if _, err := os.Stat(cfg.ProfilePath); err != nil {
		return fmt.Errorf("profile not found: %s", cfg.ProfilePath)
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	switch cfg.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.RestartDelay < 0 {
		return fmt.Errorf("invalid restart delay: %s", cfg.RestartDelay)
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - vehicle task runtime

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Exit codes:
  0  clean shutdown
  1  startup or runtime failure
  %d  process restart requested, relaunch after the logged delay

Examples:
  # Run with a custom profile
  %s --profile=/etc/dune/lauv.yaml

  # Run with debug logging and a camera spool
  %s --log-level=debug --camera-spool=/var/spool/dune/camera

  # Validate a profile only
  %s --validate --profile=/etc/dune/lauv.yaml

Version: %s
Build: %s
`, exitCodeRestart, os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
