// Package journal extracts job log entries from systemd journal files.
//
// Entries come from journal export-format streams, either produced by running
// journalctl against a journal file or read from a previously captured export
// dump. Each blank-line-terminated export record becomes at most one Entry;
// records missing a timestamp or session id are reported as invalid entries
// and dropped.
package journal

import (
	"fmt"

	"github.com/dfandrich/testclutch-curl-web/pkg/constants"
	"github.com/dfandrich/testclutch-curl-web/pkg/diag"
)

// NoSession is the session id of a record without an _AUDIT_SESSION field.
const NoSession int64 = -1

// Entry is one relevant journal message.
type Entry struct {
	Timestamp constants.Seconds
	SessionID int64
	Message   string
}

// Valid reports whether e has both a timestamp and a session id.
func (e Entry) Valid() bool {
	return e.Timestamp != 0 && e.SessionID >= 0
}

func (e Entry) String() string {
	return fmt.Sprintf("%s\t%d\t%s", e.Timestamp.Exact(), e.SessionID, e.Message)
}

// Anomaly returns a diagnostic of the given category describing e.
func (e Entry) Anomaly(c diag.Category) diag.Anomaly {
	return diag.Anomaly{
		Category:  c,
		Timestamp: e.Timestamp,
		SessionID: e.SessionID,
		Message:   e.Message,
	}
}

// Result is everything extracted from one input file.
type Result struct {
	Path    string
	Entries []Entry
	// Invalid holds one anomaly per dropped record, in stream order.
	Invalid []diag.Anomaly
	Stats   Stats
}

// Stats counts what the export parser saw.
type Stats struct {
	Records        int
	Filtered       int
	MalformedLines int
}
