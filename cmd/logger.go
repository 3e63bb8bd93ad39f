// Copyright 2014 Seth Jennings, Josh Poimboeuf, Ross Lagerwall.
// Portions Copyright 2021 The Go Authors.

package cmd

import (
	"log"
	"os"
)

// stdLogger implements diag.Logger on top of the standard library's
// log.Logger, gating Debugf on whether --debug was passed; Warnf is
// unconditional, matching the Advisory severity's always-shown policy
// in spec §4.8/§7.
type stdLogger struct {
	l     *log.Logger
	debug bool
}

func newStderrLogger(debug bool) stdLogger {
	return stdLogger{l: log.New(os.Stderr, "", 0), debug: debug}
}

func (l stdLogger) Debugf(format string, args ...any) {
	if !l.debug {
		return
	}
	l.l.Printf(format, args...)
}

func (l stdLogger) Warnf(format string, args ...any) {
	l.l.Printf(format, args...)
}
