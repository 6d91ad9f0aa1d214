// Package common holds the pieces shared by every binary in this repository:
// logger construction and the build version string.
package common

import (
	"log/slog"
	"os"
)

// Version is overridden at build time via -ldflags.
var Version = "dev"

// LoggingOpts configures the process-wide structured logger.
type LoggingOpts struct {
	// Debug lowers the log level to debug.
	Debug bool

	// JSON switches the handler to JSON output.
	JSON bool

	// Service is added as a 'service' attribute to every record.
	Service string

	// Version is added as a 'version' attribute to every record.
	Version string
}

// SetupLogger builds a slog.Logger writing to stderr according to opts.
func SetupLogger(opts *LoggingOpts) *slog.Logger {
	logLevel := slog.LevelInfo
	if opts.Debug {
		logLevel = slog.LevelDebug
	}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	}

	logger := slog.New(handler)
	if opts.Service != "" {
		logger = logger.With("service", opts.Service)
	}
	if opts.Version != "" {
		logger = logger.With("version", opts.Version)
	}
	return logger
}
