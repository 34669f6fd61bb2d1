package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	converrors "nwbconv/internal/errors"
	"nwbconv/internal/infrastructure"
)

func main() {
	os.Exit(run())
}

// run executes the CLI and turns the resulting error into a process
// exit code. Cleanup happens here rather than in main so deferred
// telemetry flushing survives os.Exit.
func run() int {
	defer cleanup()

	if err := rootCmd.Execute(); err != nil {
		return converrors.ExitCode(err)
	}
	return 0
}

// cleanup flushes the metrics snapshot, shuts down telemetry, and
// closes the log file. All steps tolerate a partially initialized app,
// as help and usage paths never reach initialization.
func cleanup() {
	logger := infrastructure.GetLogger()

	if appProviders != nil {
		if appCfg != nil {
			if err := appProviders.WriteMetricsSnapshot(appCfg.Telemetry.MetricsFile); err != nil {
				logger.Warn("failed to write metrics snapshot", slog.String("error", err.Error()))
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := appProviders.Shutdown(ctx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}

	if err := infrastructure.CloseLogFile(); err != nil {
		slog.Warn("failed to close log file", slog.String("error", err.Error()))
	}
}
