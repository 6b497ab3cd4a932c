// Package constants holds the defaults shared by the extraction, reconciliation
// and configuration layers.
package constants

import (
	"fmt"
	"strconv"
	"strings"
)

// CommandName is the name the binary is invoked as in help and messages.
const CommandName = "collect-durations"

// Seconds is a duration expressed in floating-point seconds since the epoch
// or between two journal timestamps. Journal timestamps are stored this way
// so CSV output can print them exactly as received.
type Seconds float64

// String formats s with one decimal place, the precision used in CSV columns.
func (s Seconds) String() string {
	return fmt.Sprintf("%.1f", float64(s))
}

// Exact formats s with the fewest digits that round-trip, always keeping a
// fractional part: 160 prints as "160.0" and 1690000000.123456 unchanged.
func (s Seconds) Exact() string {
	out := strconv.FormatFloat(float64(s), 'f', -1, 64)
	if !strings.ContainsAny(out, ".NI") {
		out += ".0"
	}
	return out
}

// Default message patterns. Each is a Go regexp that is also valid for
// journalctl's PCRE2 --grep.
const (
	DefaultStartPattern      = `^Starting (PR analysis|daily update)`
	DefaultCompletePattern   = `^Completed (PR analysis|daily update)`
	DefaultAbortPattern      = `^(Aborted PR analysis|(Aborted|Aborting) daily update)`
	DefaultPRAnalysisPattern = `^\S+ PR analysis`
	DefaultVersionPattern    = `^version \S+`
	DefaultCommentPattern    = `^(Posting|Updating) comment`
)

const (
	// DefaultMaxDuration is the largest plausible job duration. Anything
	// longer is a reconciliation error.
	DefaultMaxDuration Seconds = 24 * 3600

	// DefaultSessionWindowDays is the width of the coarse time bucket used to
	// keep reused session ids from interleaving across months.
	DefaultSessionWindowDays = 30

	// DefaultCharset is the character set journal messages are assumed to use.
	DefaultCharset = "utf-8"

	// DefaultJournalctl is the export collaborator invoked per journal file.
	DefaultJournalctl = "journalctl"

	// WorkersPerCPU scales the extraction pool by available processors.
	WorkersPerCPU = 2

	// MaxWorkers bounds the extraction pool whatever the configuration says.
	MaxWorkers = 256
)

// Environment variables read by the configuration layer.
const (
	EnvConfig                   = "TESTCLUTCH_CONFIG"
	EnvJournalctl               = "TESTCLUTCH_JOURNALCTL"
	EnvCharset                  = "TESTCLUTCH_CHARSET"
	EnvWorkers                  = "TESTCLUTCH_WORKERS"
	EnvSuppressUnchangedVersion = "TESTCLUTCH_SUPPRESS_UNCHANGED_VERSION"
)

// Journal export field names consumed by the extractor.
const (
	FieldRealtimeTimestamp = "__REALTIME_TIMESTAMP"
	FieldAuditSession      = "_AUDIT_SESSION"
	FieldMessage           = "MESSAGE"
)
