// File: internal/logging/logging.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package logging builds the gateway's line logger: every record goes to the
// system log and, unless the process is daemonized, to the console as well.

package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Tag is the syslog identity and the service field value.
const Tag = "hioload-gate"

// Options configures New.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	// Daemon suppresses console output.
	Daemon bool
	// Syslog mirrors records to the local system logger.
	Syslog bool
	// Console overrides the console sink; defaults to os.Stdout.
	Console io.Writer
}

// New builds a logger and sets the process-wide level from opts.Level.
// A syslog connection failure is not fatal: the logger
// falls back to the remaining sinks and the returned error says why.
func New(opts Options) (zerolog.Logger, error) {
	if opts.Level == "" || SetLevel(opts.Level) != nil {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	var sinks []io.Writer
	if !opts.Daemon {
		console := opts.Console
		if console == nil {
			console = os.Stdout
		}
		if opts.Format == "json" {
			sinks = append(sinks, console)
		} else {
			sinks = append(sinks, zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339, NoColor: true})
		}
	}

	var syslogErr error
	if opts.Syslog {
		w, err := newSyslogSink(Tag)
		if err != nil {
			syslogErr = err
		} else {
			sinks = append(sinks, w)
		}
	}

	var out io.Writer = io.Discard
	switch len(sinks) {
	case 0:
	case 1:
		out = sinks[0]
	default:
		out = zerolog.MultiLevelWriter(sinks...)
	}

	logger := zerolog.New(out).
		With().
		Timestamp().
		Str("service", Tag).
		Logger()
	return logger, syslogErr
}

// SetLevel changes the process-wide minimum level. Loggers built by New
// follow it, so a reload takes effect without rebuilding them.
func SetLevel(name string) error {
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return err
	}
	if level == zerolog.NoLevel {
		return fmt.Errorf("unknown level %q", name)
	}
	zerolog.SetGlobalLevel(level)
	return nil
}
