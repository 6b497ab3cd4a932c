// Package logger provides namespaced debug logging in the style of the
// "debug" npm package.
//
// Loggers are created per source file with a namespace such as
// "journal:exporter" and stay silent unless the DEBUG environment variable
// selects them:
//
//	DEBUG=*                      # everything
//	DEBUG=journal:*              # every logger under journal:
//	DEBUG=journal:*,-journal:dump  # exclude one namespace
//
// Output goes to stderr so it never mixes with CSV on stdout. Each line
// carries the namespace and the time elapsed since that logger's previous
// line.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dfandrich/testclutch-curl-web/pkg/tty"
)

// Logger is a namespaced debug logger. The zero value is not usable; call New.
type Logger struct {
	namespace string
	enabled   bool
	color     string

	mu      sync.Mutex
	lastLog time.Time
}

var (
	// output is replaced in tests.
	output io.Writer = os.Stderr

	debugEnv    = os.Getenv("DEBUG")
	colorCursor int
	colorMu     sync.Mutex
)

// 256-color palette cycled across loggers so namespaces are easy to tell apart.
var palette = []string{
	"\033[38;5;33m",
	"\033[38;5;35m",
	"\033[38;5;99m",
	"\033[38;5;166m",
	"\033[38;5;170m",
	"\033[38;5;37m",
	"\033[38;5;136m",
	"\033[38;5;161m",
}

const colorReset = "\033[0m"

// New creates a logger for the given namespace. Whether it prints is decided
// once, from the DEBUG environment variable at process start.
func New(namespace string) *Logger {
	l := &Logger{
		namespace: namespace,
		enabled:   computeEnabled(namespace, debugEnv),
	}
	if l.enabled && tty.StderrColorEnabled() {
		colorMu.Lock()
		l.color = palette[colorCursor%len(palette)]
		colorCursor++
		colorMu.Unlock()
	}
	return l
}

// Enabled reports whether the logger prints anything. Callers use it to skip
// building expensive log arguments.
func (l *Logger) Enabled() bool {
	return l.enabled
}

// Printf prints a formatted line when the logger is enabled.
func (l *Logger) Printf(format string, args ...any) {
	if !l.enabled {
		return
	}
	l.write(fmt.Sprintf(format, args...))
}

// Print prints its arguments, space separated, when the logger is enabled.
func (l *Logger) Print(args ...any) {
	if !l.enabled {
		return
	}
	l.write(strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
}

func (l *Logger) write(msg string) {
	l.mu.Lock()
	now := time.Now()
	var diff time.Duration
	if !l.lastLog.IsZero() {
		diff = now.Sub(l.lastLog)
	}
	l.lastLog = now
	l.mu.Unlock()

	ns := l.namespace
	if l.color != "" {
		ns = l.color + ns + colorReset
	}
	fmt.Fprintf(output, "%s %s +%s\n", ns, msg, formatDiff(diff))
}

func formatDiff(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.1fm", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
}

// computeEnabled matches namespace against a DEBUG selector.
// Exclusions (prefixed with '-') win over inclusions.
func computeEnabled(namespace, selector string) bool {
	if selector == "" {
		return false
	}
	enabled := false
	for _, pattern := range strings.Split(selector, ",") {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if strings.HasPrefix(pattern, "-") {
			if matchPattern(namespace, pattern[1:]) {
				return false
			}
			continue
		}
		if matchPattern(namespace, pattern) {
			enabled = true
		}
	}
	return enabled
}

// matchPattern supports a single trailing or standalone '*' wildcard.
func matchPattern(namespace, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(namespace, prefix)
	}
	return namespace == pattern
}
