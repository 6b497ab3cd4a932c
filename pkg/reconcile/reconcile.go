// Package reconcile turns a sorted stream of journal entries into job
// duration records.
//
// A job session starts with a start message and ends with a completion or
// abort message carrying the same session id. Version and comment messages
// seen in between are attached to the terminal record. Anything that does
// not fit is reported as an anomaly and skipped; reconciliation never stops
// early because of bad input.
//
// The reconciler is a fold: Step takes the current State and one entry and
// returns the next State plus what to emit. Run applies Step over a sorted
// slice. There is no other mutable state.
package reconcile

import (
	"fmt"

	"github.com/dfandrich/testclutch-curl-web/pkg/constants"
	"github.com/dfandrich/testclutch-curl-web/pkg/diag"
	"github.com/dfandrich/testclutch-curl-web/pkg/journal"
	"github.com/dfandrich/testclutch-curl-web/pkg/logger"
	"github.com/dfandrich/testclutch-curl-web/pkg/matcher"
)

var reconcileLog = logger.New("reconcile:reconcile")

// State is the reconciler state between entries. The zero value is Idle with
// nothing logged yet.
type State struct {
	Active       bool
	SessionID    int64
	StartTime    constants.Seconds
	Version      string
	CommentCount int

	// LastLoggedVersion survives across sessions. It is the last version
	// attached to an emitted terminal record.
	LastLoggedVersion string
}

func (s State) String() string {
	if !s.Active {
		return fmt.Sprintf("Idle(last=%q)", s.LastLoggedVersion)
	}
	return fmt.Sprintf("Active(session=%d start=%s version=%q comments=%d last=%q)",
		s.SessionID, s.StartTime.Exact(), s.Version, s.CommentCount, s.LastLoggedVersion)
}

func (s State) idle() State {
	return State{LastLoggedVersion: s.LastLoggedVersion}
}

func (s State) begin(e journal.Entry) State {
	return State{
		Active:            true,
		SessionID:         e.SessionID,
		StartTime:         e.Timestamp,
		LastLoggedVersion: s.LastLoggedVersion,
	}
}

// Output is what a single Step emits.
type Output struct {
	// Records are emitted in order: a comment tally, when present, precedes
	// the terminal record it belongs to.
	Records []Record
	Anomaly *diag.Anomaly
}

func anomaly(c diag.Category, e journal.Entry) Output {
	a := e.Anomaly(c)
	return Output{Anomaly: &a}
}

// Options configures a Reconciler.
type Options struct {
	// MaxDuration is the sanity ceiling on a session. Zero means
	// constants.DefaultMaxDuration.
	MaxDuration constants.Seconds
	// SuppressUnchangedVersion blanks the version column when it equals
	// the last version logged.
	SuppressUnchangedVersion bool
}

// Reconciler holds the immutable configuration of the state machine.
type Reconciler struct {
	patterns    *matcher.Set
	maxDuration constants.Seconds
	suppress    bool
}

// New returns a Reconciler classifying messages with patterns.
func New(patterns *matcher.Set, opts Options) *Reconciler {
	maxDuration := opts.MaxDuration
	if maxDuration <= 0 {
		maxDuration = constants.DefaultMaxDuration
	}
	return &Reconciler{
		patterns:    patterns,
		maxDuration: maxDuration,
		suppress:    opts.SuppressUnchangedVersion,
	}
}

// Step advances the state machine by one entry.
func (r *Reconciler) Step(s State, e journal.Entry) (State, Output) {
	kind := r.patterns.Classify(e.Message)

	if !s.Active {
		if kind == matcher.KindStart {
			return s.begin(e), Output{}
		}
		// Usually the tail of a session whose start predates the logs.
		return s, anomaly(diag.MismatchedEntry, e)
	}

	if e.SessionID != s.SessionID {
		if kind == matcher.KindStart {
			// The active session never finished; it is abandoned silently
			// like one cut off at the end of the logs.
			reconcileLog.Printf("Abandoning %s for new session %d", s, e.SessionID)
			return s.begin(e), Output{}
		}
		return s, anomaly(diag.SessionMismatch, e)
	}

	switch {
	case kind == matcher.KindVersion:
		s.Version = matcher.VersionToken(e.Message)
		return s, Output{}
	case kind == matcher.KindComment:
		s.CommentCount++
		return s, Output{}
	case kind.Terminal():
		return r.finish(s, e, kind)
	}

	if e.Timestamp == s.StartTime {
		// Overlapping journal files repeat the start entry.
		return s, anomaly(diag.ProbableDuplicate, e)
	}
	return s, anomaly(diag.SessionMismatch, e)
}

func (r *Reconciler) finish(s State, e journal.Entry, kind matcher.Kind) (State, Output) {
	next := s.idle()

	duration := e.Timestamp - s.StartTime
	if duration > r.maxDuration {
		return next, anomaly(diag.DurationTooLong, e)
	}

	version := s.Version
	if r.suppress && version == s.LastLoggedVersion {
		version = ""
	}

	var out Output
	if s.CommentCount > 0 {
		out.Records = append(out.Records, Record{
			Kind:         CommentTally,
			Timestamp:    e.Timestamp,
			CommentCount: s.CommentCount,
		})
	}

	recKind := UpdateCompleted
	switch {
	case r.patterns.IsPRAnalysis(e.Message):
		recKind = PRAnalysisCompleted
	case kind == matcher.KindAbort:
		recKind = UpdateAborted
	}
	out.Records = append(out.Records, Record{
		Kind:      recKind,
		Timestamp: e.Timestamp,
		Duration:  duration,
		Version:   version,
	})

	// The version only counts as logged once its terminal record is out.
	if s.Version != "" {
		next.LastLoggedVersion = s.Version
	}
	return next, out
}

// Sink receives the output of Run.
type Sink interface {
	WriteRecord(rec Record) error
	diag.Reporter
}

// Summary describes a finished Run.
type Summary struct {
	Entries   int
	Records   map[Kind]int
	Anomalies int
	// Unfinished is the session still open at the end of the stream, if any.
	Unfinished *State
}

// Run folds Step over entries, which must already be sorted with
// SortEntries, sending records and anomalies to sink as they are produced.
// Only a sink write error stops the run.
func (r *Reconciler) Run(entries []journal.Entry, sink Sink) (Summary, error) {
	sum := Summary{Entries: len(entries), Records: make(map[Kind]int)}
	var s State
	for _, e := range entries {
		var out Output
		s, out = r.Step(s, e)
		if out.Anomaly != nil {
			sum.Anomalies++
			sink.Report(*out.Anomaly)
		}
		for _, rec := range out.Records {
			if err := sink.WriteRecord(rec); err != nil {
				return sum, fmt.Errorf("writing %s record at %s: %w", rec.Kind, rec.Timestamp.Exact(), err)
			}
			sum.Records[rec.Kind]++
		}
	}
	if s.Active {
		reconcileLog.Printf("Stream ended inside %s", s)
		sum.Unfinished = &s
	}
	return sum, nil
}
