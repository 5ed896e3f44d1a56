// Command purge runs one retention pass and prints the report as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/fixora/tracker/internal/app"
	"github.com/fixora/tracker/internal/config"
	"github.com/fixora/tracker/internal/logger"
	"github.com/fixora/tracker/internal/ports"
	"github.com/fixora/tracker/internal/retention"
)

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1
	exitLocked  = 2
)

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the process exit code so that deferred cleanup always runs
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("purge", flag.ContinueOnError)
	fs.SetOutput(stderr)
	now := fs.String("now", "", "evaluate deadlines at this RFC3339 instant instead of the current time")
	timeout := fs.Duration("timeout", 30*time.Minute, "maximum duration of the run")
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "failed to load configuration: %v\n", err)
		return exitFailure
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "invalid configuration: %v\n", err)
		return exitFailure
	}

	var clock ports.Clock
	if *now != "" {
		at, err := time.Parse(time.RFC3339, *now)
		if err != nil {
			fmt.Fprintf(stderr, "invalid -now value %q: %v\n", *now, err)
			return exitFailure
		}
		clock = ports.FixedClock(at.UTC())
	}

	// Logs go to stderr so stdout carries only the report.
	appLogger := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "fixora-purge",
		Output:      stderr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	components, err := app.New(ctx, cfg, clock, appLogger)
	if err != nil {
		appLogger.Error(ctx, "Failed to initialize application", err, nil)
		return exitFailure
	}
	defer func() {
		if err := components.Close(); err != nil {
			appLogger.Warn(ctx, "Failed to close connections", map[string]interface{}{"error": err.Error()})
		}
	}()

	report, runErr := components.Purger.RunPurge(ctx)
	if errors.Is(runErr, retention.ErrPurgeAlreadyRunning) {
		appLogger.Warn(ctx, "Another purge run holds the lock", nil)
		return exitLocked
	}

	if report != nil {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			appLogger.Error(ctx, "Failed to write report", err, nil)
		}
	}

	if runErr != nil {
		appLogger.Error(ctx, "Purge run failed", runErr, nil)
		return exitFailure
	}
	return exitOK
}
