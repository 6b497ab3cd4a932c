// Package tty provides terminal detection for the two output streams.
//
// Stdout carries CSV and is normally redirected, so styling decisions are
// made against stderr, where status messages and diagnostics go.
package tty

import (
	"os"

	"golang.org/x/term"
)

// IsStderrTerminal returns true if stderr is connected to a terminal.
func IsStderrTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// StderrColorEnabled reports whether ANSI styling may be written to stderr.
// NO_COLOR (https://no-color.org) disables styling even on a terminal.
func StderrColorEnabled() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return IsStderrTerminal()
}
