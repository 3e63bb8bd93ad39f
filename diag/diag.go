// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package diag is the differencing engine's failure model and logging
// contract (spec §4.8/§7): a small severity-tagged error type instead of
// the original tool's ERROR/DIFF_FATAL exit-and-abort macros, and a
// narrow Logger interface instead of its global log level, in the idiom
// of obj.ErrNoData (a typed error with an Error() method, wrapped with
// fmt.Errorf("...: %w") at call sites rather than inspected by type
// switch everywhere).
package diag

import "fmt"

// Severity classifies an Error.
type Severity int

const (
	// ErrorSeverity is an unexpected internal invariant violation (e.g. a
	// section index that should exist doesn't). Exit code 1.
	ErrorSeverity Severity = iota
	// DiffFatal is a recoverable input-level mismatch (header
	// disagreement, unsupported change, section drift). Exit code 2.
	DiffFatal
	// Warn is advisory and never aborts the run on its own; Warn values
	// are reported through Logger.Warnf, not returned as errors.
	Warn
)

func (s Severity) String() string {
	switch s {
	case ErrorSeverity:
		return "ERROR"
	case DiffFatal:
		return "DIFF_FATAL"
	case Warn:
		return "WARN"
	default:
		return "?"
	}
}

// A Error carries a Severity alongside its message, so the caller at the
// top of engine.Run can map it straight to an exit code without
// re-deriving severity from message text.
type Error struct {
	Severity Severity
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Severity, e.Message)
}

// Errorf builds an *Error with Error severity.
func Errorf(format string, args ...any) *Error {
	return &Error{Severity: ErrorSeverity, Message: fmt.Sprintf(format, args...)}
}

// DiffFatalf builds an *Error with DiffFatal severity.
func DiffFatalf(format string, args ...any) *Error {
	return &Error{Severity: DiffFatal, Message: fmt.Sprintf(format, args...)}
}

// ErrNoChanges is returned by engine.Run when the two inputs produced no
// changed functions and no new globals; the caller maps this to exit
// code 3, distinct from both success (0) and either failure severity.
var ErrNoChanges = fmt.Errorf("no changed functions were found")

// ExitCode maps the result of a run to a process exit status, per spec
// §6's table (0 success, 1 ERROR, 2 DIFF_FATAL, 3 no changes detected).
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case err == ErrNoChanges:
		return 3
	}
	if de, ok := err.(*Error); ok {
		switch de.Severity {
		case DiffFatal:
			return 2
		default:
			return 1
		}
	}
	return 1
}

// Logger is the explicit handle every stage takes instead of calling a
// global log level, per the Design Notes' instruction to replace the
// global log level with a threaded logger handle.
type Logger interface {
	// Debugf logs a diagnostic message, shown only when verbose
	// debugging is enabled (the --debug flag).
	Debugf(format string, args ...any)
	// Warnf logs an advisory (Warn-severity) message. Unlike Debugf,
	// Warnf output is always shown.
	Warnf(format string, args ...any)
}

// NopLogger discards everything. Useful for tests that don't want to
// wire up a real Logger.
type NopLogger struct{}

func (NopLogger) Debugf(format string, args ...any) {}
func (NopLogger) Warnf(format string, args ...any)  {}

var _ Logger = NopLogger{}
