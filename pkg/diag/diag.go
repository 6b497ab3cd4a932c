// Package diag describes anomalies found while extracting and reconciling
// journal entries, and writes them to the diagnostic stream.
//
// An anomaly never stops a run. It is reported as one line,
//
//	<label>: <timestamp> <session> <message>
//
// and processing continues with the next entry.
package diag

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/dfandrich/testclutch-curl-web/pkg/constants"
	"github.com/dfandrich/testclutch-curl-web/pkg/logger"
	"github.com/dfandrich/testclutch-curl-web/pkg/styles"
	"github.com/dfandrich/testclutch-curl-web/pkg/tty"
)

var diagLog = logger.New("diag:writer")

// Category is the label printed in front of a diagnostic line.
type Category string

const (
	InvalidEntry      Category = "invalid entry"
	MismatchedEntry   Category = "mismatched entry"
	SessionMismatch   Category = "session mismatch"
	ProbableDuplicate Category = "probable duplicate"
	DurationTooLong   Category = "duration too long"
)

// Categories lists every category in reporting order.
var Categories = []Category{
	InvalidEntry,
	MismatchedEntry,
	SessionMismatch,
	ProbableDuplicate,
	DurationTooLong,
}

// Class groups categories into the error taxonomy.
type Class int

const (
	ClassMalformedEntry Class = iota
	ClassSessionMismatch
	ClassDuplicateStart
	ClassDurationOutOfRange
)

func (c Class) String() string {
	switch c {
	case ClassMalformedEntry:
		return "malformed-entry"
	case ClassSessionMismatch:
		return "session-mismatch"
	case ClassDuplicateStart:
		return "duplicate-start"
	case ClassDurationOutOfRange:
		return "duration-out-of-range"
	default:
		return "class(" + strconv.Itoa(int(c)) + ")"
	}
}

// Class returns the taxonomy class of the category. "mismatched entry"
// (nothing active) and "session mismatch" (another session active) are both
// session mismatches.
func (c Category) Class() Class {
	switch c {
	case InvalidEntry:
		return ClassMalformedEntry
	case ProbableDuplicate:
		return ClassDuplicateStart
	case DurationTooLong:
		return ClassDurationOutOfRange
	default:
		return ClassSessionMismatch
	}
}

// Anomaly is one entry that could not be used.
type Anomaly struct {
	Category  Category
	Timestamp constants.Seconds
	SessionID int64
	Message   string
}

// String renders the anomaly in the diagnostic line format, without styling.
func (a Anomaly) String() string {
	return fmt.Sprintf("%s: %s %d %s", a.Category, a.Timestamp.Exact(), a.SessionID, a.Message)
}

// Reporter receives anomalies as they are found.
type Reporter interface {
	Report(a Anomaly)
}

// Writer prints anomalies to a stream and counts them per category.
// It is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	out    io.Writer
	color  bool
	counts map[Category]int
}

// NewWriter returns a Writer on out. Labels are colored only when color is
// true; pass tty.StderrColorEnabled() for stderr.
func NewWriter(out io.Writer, color bool) *Writer {
	return &Writer{out: out, color: color, counts: make(map[Category]int)}
}

// NewStderrWriter returns a Writer for the process diagnostic stream.
func NewStderrWriter(out io.Writer) *Writer {
	return NewWriter(out, tty.StderrColorEnabled())
}

// Report writes one diagnostic line. Write failures are logged and dropped:
// losing a diagnostic must not stop reconciliation.
func (w *Writer) Report(a Anomaly) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.counts[a.Category]++
	label := string(a.Category) + ":"
	if w.color {
		label = styleFor(a.Category).Render(label)
	}
	if _, err := fmt.Fprintf(w.out, "%s %s %d %s\n", label, a.Timestamp.Exact(), a.SessionID, a.Message); err != nil {
		diagLog.Printf("Dropped diagnostic %q: %v", a.Category, err)
	}
}

// Counts returns a copy of the number of anomalies reported per category.
func (w *Writer) Counts() map[Category]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[Category]int, len(w.counts))
	for k, v := range w.counts {
		out[k] = v
	}
	return out
}

// Total returns the number of anomalies reported.
func (w *Writer) Total() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, v := range w.counts {
		n += v
	}
	return n
}

func styleFor(c Category) lipgloss.Style {
	switch c.Class() {
	case ClassMalformedEntry, ClassDurationOutOfRange:
		return styles.Error
	default:
		return styles.Warning
	}
}
