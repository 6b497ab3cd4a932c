package reconcile

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/dfandrich/testclutch-curl-web/pkg/constants"
	"github.com/dfandrich/testclutch-curl-web/pkg/journal"
)

// DefaultWindow is the coarse bucket width used by SortEntries.
const DefaultWindow = constants.DefaultSessionWindowDays * 24 * time.Hour

// Bucket returns the index of the window that contains ts.
func Bucket(ts constants.Seconds, window time.Duration) int64 {
	return int64(math.Floor(float64(ts) / window.Seconds()))
}

// SortEntries orders entries in place by (time window, session, timestamp).
//
// Session ids are reused over long periods, so sorting by session first would
// interleave unrelated sessions that share an id months apart. Bucketing by
// window first keeps temporally local entries together. A session that
// straddles a window boundary is split in two and will show up as a mismatch;
// that is accepted.
//
// The sort is stable: entries with equal keys keep their input order, which
// is journal order within a file and argument order across files.
func SortEntries(entries []journal.Entry, window time.Duration) {
	if window <= 0 {
		window = DefaultWindow
	}
	slices.SortStableFunc(entries, func(a, b journal.Entry) int {
		if c := cmp.Compare(Bucket(a.Timestamp, window), Bucket(b.Timestamp, window)); c != 0 {
			return c
		}
		if c := cmp.Compare(a.SessionID, b.SessionID); c != 0 {
			return c
		}
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})
}
