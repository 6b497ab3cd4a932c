//go:build !integration

package reconcile

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/dfandrich/testclutch-curl-web/pkg/constants"
	"github.com/dfandrich/testclutch-curl-web/pkg/diag"
	"github.com/dfandrich/testclutch-curl-web/pkg/journal"
	"github.com/dfandrich/testclutch-curl-web/pkg/matcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReconciler(suppress bool) *Reconciler {
	return New(matcher.MustCompile(matcher.DefaultPatterns()), Options{SuppressUnchangedVersion: suppress})
}

type collector struct {
	Records   []Record
	Anomalies []diag.Anomaly
}

func (c *collector) WriteRecord(rec Record) error {
	c.Records = append(c.Records, rec)
	return nil
}

func (c *collector) Report(a diag.Anomaly) {
	c.Anomalies = append(c.Anomalies, a)
}

// reconcileAll sorts a copy of entries and reconciles it, returning
// everything emitted.
func reconcileAll(r *Reconciler, entries []journal.Entry, window time.Duration) ([]Record, []diag.Anomaly) {
	sorted := slices.Clone(entries)
	SortEntries(sorted, window)
	var c collector
	_, _ = r.Run(sorted, &c) // collector never fails
	return c.Records, c.Anomalies
}

func e(ts constants.Seconds, sid int64, msg string) journal.Entry {
	return journal.Entry{Timestamp: ts, SessionID: sid, Message: msg}
}

func TestReconcileDailyUpdateWithVersion(t *testing.T) {
	r := newTestReconciler(true)
	records, anomalies := reconcileAll(r, []journal.Entry{
		e(100, 5, "Starting daily update"),
		e(130, 5, "version abc123"),
		e(160, 5, "Completed daily update"),
	}, 0)

	assert.Empty(t, anomalies)
	assert.Equal(t, []Record{
		{Kind: UpdateCompleted, Timestamp: 160, Duration: 30, Version: "abc123"},
	}, records)
}

func TestReconcilePRAnalysisWithStrayCompletion(t *testing.T) {
	r := newTestReconciler(true)
	records, anomalies := reconcileAll(r, []journal.Entry{
		e(100, 5, "Starting PR analysis"),
		e(200, 5, "Completed PR analysis"),
		e(50, 5, "Completed PR analysis"),
	}, 0)

	assert.Equal(t, []Record{
		{Kind: PRAnalysisCompleted, Timestamp: 200, Duration: 100},
	}, records)
	require.Len(t, anomalies, 1)
	assert.Equal(t, constants.Seconds(50), anomalies[0].Timestamp)
	assert.Equal(t, diag.ClassSessionMismatch, anomalies[0].Category.Class())
}

func TestReconcileBucketSplitsSession(t *testing.T) {
	r := newTestReconciler(true)
	records, anomalies := reconcileAll(r, []journal.Entry{
		e(30*day+10, 7, "Completed daily update"),
		e(30*day-5, 9, "Starting PR analysis"),
		e(30*day-10, 7, "Starting daily update"),
	}, DefaultWindow)

	assert.Empty(t, records, "session 7 straddles the window boundary and is split")
	require.Len(t, anomalies, 1)
	assert.Equal(t, constants.Seconds(30*day+10), anomalies[0].Timestamp)
	assert.Equal(t, int64(7), anomalies[0].SessionID)
	assert.Equal(t, diag.ClassSessionMismatch, anomalies[0].Category.Class())
}

func TestReconcileDuplicateStart(t *testing.T) {
	r := newTestReconciler(true)

	var s State
	s, out := r.Step(s, e(100, 5, "Starting daily update"))
	assert.Nil(t, out.Anomaly)
	require.True(t, s.Active)

	next, out := r.Step(s, e(100, 5, "Starting daily update"))
	require.NotNil(t, out.Anomaly)
	assert.Equal(t, diag.ProbableDuplicate, out.Anomaly.Category)
	assert.Equal(t, diag.ClassDuplicateStart, out.Anomaly.Category.Class())
	assert.Empty(t, out.Records)
	assert.Equal(t, s, next, "duplicate start leaves the session unchanged")
}

func TestReconcileDurationTooLong(t *testing.T) {
	r := newTestReconciler(true)
	records, anomalies := reconcileAll(r, []journal.Entry{
		e(1000, 5, "Starting daily update"),
		e(1010, 5, "Posting comment"),
		e(91000, 5, "Completed daily update"),
	}, 0)

	assert.Empty(t, records)
	require.Len(t, anomalies, 1)
	assert.Equal(t, diag.DurationTooLong, anomalies[0].Category)
	assert.Equal(t, diag.ClassDurationOutOfRange, anomalies[0].Category.Class())
}

func TestReconcileDurationAtCeilingIsEmitted(t *testing.T) {
	r := newTestReconciler(true)
	records, anomalies := reconcileAll(r, []journal.Entry{
		e(1000, 5, "Starting daily update"),
		e(1000+constants.DefaultMaxDuration, 5, "Completed daily update"),
	}, 0)

	assert.Empty(t, anomalies)
	require.Len(t, records, 1)
	assert.Equal(t, constants.DefaultMaxDuration, records[0].Duration)
}

func TestReconcileDurationTooLongResetsSession(t *testing.T) {
	r := newTestReconciler(true)
	s := State{Active: true, SessionID: 5, StartTime: 0, Version: "v2", LastLoggedVersion: "v1"}

	next, out := r.Step(s, e(90000, 5, "Completed daily update"))
	require.NotNil(t, out.Anomaly)
	assert.Equal(t, State{LastLoggedVersion: "v1"}, next)
}

func TestReconcileCommentTallyPrecedesTerminal(t *testing.T) {
	r := newTestReconciler(true)
	records, anomalies := reconcileAll(r, []journal.Entry{
		e(10, 3, "Starting PR analysis"),
		e(11, 3, "Posting comment on PR 12"),
		e(12, 3, "Updating comment on PR 12"),
		e(13, 3, "Posting comment on PR 14"),
		e(20, 3, "Completed PR analysis"),
	}, 0)

	assert.Empty(t, anomalies)
	assert.Equal(t, []Record{
		{Kind: CommentTally, Timestamp: 20, CommentCount: 3},
		{Kind: PRAnalysisCompleted, Timestamp: 20, Duration: 10},
	}, records)
}

func TestReconcileAbort(t *testing.T) {
	tests := []struct {
		name     string
		start    string
		terminal string
		want     Kind
	}{
		{name: "aborted update", start: "Starting daily update", terminal: "Aborted daily update", want: UpdateAborted},
		{name: "aborting update", start: "Starting daily update", terminal: "Aborting daily update: timeout", want: UpdateAborted},
		{name: "aborted PR analysis", start: "Starting PR analysis", terminal: "Aborted PR analysis", want: PRAnalysisCompleted},
		{name: "completed update", start: "Starting daily update", terminal: "Completed daily update", want: UpdateCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, anomalies := reconcileAll(newTestReconciler(true), []journal.Entry{
				e(1, 1, tt.start),
				e(4, 1, tt.terminal),
			}, 0)
			assert.Empty(t, anomalies)
			require.Len(t, records, 1)
			assert.Equal(t, tt.want, records[0].Kind)
			assert.Equal(t, constants.Seconds(3), records[0].Duration)
		})
	}
}

func TestReconcileVersionSuppression(t *testing.T) {
	entries := []journal.Entry{
		e(100, 1, "Starting daily update"),
		e(101, 1, "version v1"),
		e(110, 1, "Completed daily update"),
		e(200, 2, "Starting daily update"),
		e(201, 2, "version v1"),
		e(210, 2, "Completed daily update"),
		e(300, 3, "Starting daily update"),
		e(301, 3, "version v2"),
		e(310, 3, "Completed daily update"),
		e(400, 4, "Starting daily update"),
		e(410, 4, "Completed daily update"),
	}

	t.Run("suppressed", func(t *testing.T) {
		records, _ := reconcileAll(newTestReconciler(true), entries, 0)
		require.Len(t, records, 4)
		assert.Equal(t, []string{"v1", "", "v2", ""}, versions(records))
	})

	t.Run("not suppressed", func(t *testing.T) {
		records, _ := reconcileAll(newTestReconciler(false), entries, 0)
		require.Len(t, records, 4)
		assert.Equal(t, []string{"v1", "v1", "v2", ""}, versions(records))
	})
}

func TestReconcileVersionSticksOnlyAfterTerminal(t *testing.T) {
	// The v2 session is cut short by a too-long duration, so v2 was never
	// logged and the next session reports it again.
	records, anomalies := reconcileAll(newTestReconciler(true), []journal.Entry{
		e(100, 1, "Starting daily update"),
		e(101, 1, "version v1"),
		e(110, 1, "Completed daily update"),
		e(200, 2, "Starting daily update"),
		e(201, 2, "version v2"),
		e(100000, 2, "Completed daily update"),
		e(100100, 3, "Starting daily update"),
		e(100101, 3, "version v2"),
		e(100110, 3, "Completed daily update"),
	}, 0)

	require.Len(t, anomalies, 1)
	assert.Equal(t, []string{"v1", "v2"}, versions(records))
}

func TestReconcileLatestVersionWins(t *testing.T) {
	records, _ := reconcileAll(newTestReconciler(true), []journal.Entry{
		e(1, 1, "Starting daily update"),
		e(2, 1, "version old"),
		e(3, 1, "version new"),
		e(4, 1, "Completed daily update"),
	}, 0)
	assert.Equal(t, []string{"new"}, versions(records))
}

func TestStepTransitions(t *testing.T) {
	r := newTestReconciler(true)
	active := State{Active: true, SessionID: 5, StartTime: 100, LastLoggedVersion: "v0"}

	tests := []struct {
		name     string
		state    State
		entry    journal.Entry
		want     State
		category diag.Category
	}{
		{
			name:     "idle non-start",
			state:    State{},
			entry:    e(90, 5, "Completed daily update"),
			want:     State{},
			category: diag.MismatchedEntry,
		},
		{
			name:  "idle start",
			state: State{LastLoggedVersion: "v0"},
			entry: e(100, 5, "Starting daily update"),
			want:  active,
		},
		{
			name:     "foreign session",
			state:    active,
			entry:    e(110, 6, "Completed daily update"),
			want:     active,
			category: diag.SessionMismatch,
		},
		{
			name:  "foreign start abandons active session",
			state: active,
			entry: e(120, 6, "Starting PR analysis"),
			want:  State{Active: true, SessionID: 6, StartTime: 120, LastLoggedVersion: "v0"},
		},
		{
			name:     "same session unrelated message",
			state:    active,
			entry:    e(110, 5, "Starting daily update"),
			want:     active,
			category: diag.SessionMismatch,
		},
		{
			name:  "comment",
			state: active,
			entry: e(110, 5, "Posting comment"),
			want:  State{Active: true, SessionID: 5, StartTime: 100, CommentCount: 1, LastLoggedVersion: "v0"},
		},
		{
			name:  "version",
			state: active,
			entry: e(110, 5, "version 1.2.3 built today"),
			want:  State{Active: true, SessionID: 5, StartTime: 100, Version: "1.2.3", LastLoggedVersion: "v0"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, out := r.Step(tt.state, tt.entry)
			assert.Equal(t, tt.want, got)
			assert.Empty(t, out.Records)
			if tt.category == "" {
				assert.Nil(t, out.Anomaly)
				return
			}
			require.NotNil(t, out.Anomaly)
			assert.Equal(t, tt.category, out.Anomaly.Category)
			assert.Equal(t, tt.entry.Timestamp, out.Anomaly.Timestamp)
			assert.Equal(t, tt.entry.SessionID, out.Anomaly.SessionID)
			assert.Equal(t, tt.entry.Message, out.Anomaly.Message)
		})
	}
}

func TestRunReportsUnfinishedSession(t *testing.T) {
	r := newTestReconciler(true)
	var c collector
	sum, err := r.Run([]journal.Entry{
		e(1, 1, "Starting daily update"),
		e(2, 1, "Completed daily update"),
		e(3, 2, "Starting PR analysis"),
	}, &c)
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Entries)
	assert.Equal(t, 1, sum.Records[UpdateCompleted])
	assert.Zero(t, sum.Anomalies)
	require.NotNil(t, sum.Unfinished)
	assert.Equal(t, int64(2), sum.Unfinished.SessionID)
	assert.Empty(t, c.Anomalies, "an unfinished session is not an anomaly")
}

type failingSink struct {
	collector
	err error
}

func (f *failingSink) WriteRecord(Record) error { return f.err }

func TestRunStopsOnSinkError(t *testing.T) {
	boom := errors.New("disk full")
	sink := &failingSink{err: boom}
	_, err := newTestReconciler(true).Run([]journal.Entry{
		e(1, 1, "Starting daily update"),
		e(2, 1, "Completed daily update"),
	}, sink)
	require.ErrorIs(t, err, boom)
}

func TestReconcileIsIdempotent(t *testing.T) {
	entries := []journal.Entry{
		e(40*day, 2, "Starting daily update"),
		e(5, 1, "Starting PR analysis"),
		e(40*day+9, 2, "Completed daily update"),
		e(9, 1, "Posting comment"),
		e(15, 1, "Completed PR analysis"),
		e(3, 1, "version stray"),
	}
	r := newTestReconciler(true)
	rec1, an1 := reconcileAll(r, entries, 0)
	rec2, an2 := reconcileAll(r, entries, 0)
	assert.Equal(t, rec1, rec2)
	assert.Equal(t, an1, an2)
	assert.Len(t, rec1, 3)
	assert.Len(t, an1, 1)
}

func TestDurationsAreNeverNegative(t *testing.T) {
	entries := []journal.Entry{
		e(50, 1, "Completed daily update"),
		e(10, 1, "Starting daily update"),
		e(30, 1, "Completed daily update"),
		e(5, 2, "Completed PR analysis"),
		e(20, 2, "Starting PR analysis"),
	}
	records, _ := reconcileAll(newTestReconciler(true), entries, 0)
	for _, rec := range records {
		assert.GreaterOrEqual(t, float64(rec.Duration), 0.0)
	}
}

func versions(records []Record) []string {
	var out []string
	for _, r := range records {
		if r.Kind != CommentTally {
			out = append(out, r.Version)
		}
	}
	return out
}
