// Package csvout writes reconciled records as headerless CSV lines.
//
// Every line has the same six columns:
//
//	timestamp,update_duration,update_abort_duration,pr_analysis_duration,version,comment_count
//
// A duration record fills exactly one duration column plus the version. A
// comment tally fills only comment_count.
package csvout

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/dfandrich/testclutch-curl-web/pkg/diag"
	"github.com/dfandrich/testclutch-curl-web/pkg/logger"
	"github.com/dfandrich/testclutch-curl-web/pkg/reconcile"
)

var csvLog = logger.New("csvout:writer")

// Header names the columns. It is never written; it documents the layout
// for consumers and tests.
var Header = []string{
	"timestamp",
	"update_duration",
	"update_abort_duration",
	"pr_analysis_duration",
	"version",
	"comment_count",
}

const (
	colTimestamp = iota
	colUpdate
	colAbort
	colPRAnalysis
	colVersion
	colComments
	numColumns
)

// Fields renders rec into its column values.
func Fields(rec reconcile.Record) ([]string, error) {
	row := make([]string, numColumns)
	row[colTimestamp] = rec.Timestamp.Exact()

	switch rec.Kind {
	case reconcile.UpdateCompleted:
		row[colUpdate] = rec.Duration.String()
	case reconcile.UpdateAborted:
		row[colAbort] = rec.Duration.String()
	case reconcile.PRAnalysisCompleted:
		row[colPRAnalysis] = rec.Duration.String()
	case reconcile.CommentTally:
		row[colComments] = strconv.Itoa(rec.CommentCount)
		return row, nil
	default:
		return nil, fmt.Errorf("unknown record kind %d", int(rec.Kind))
	}
	row[colVersion] = rec.Version
	return row, nil
}

// Writer emits records to an underlying stream.
type Writer struct {
	w       *csv.Writer
	written int
}

// NewWriter returns a Writer on out.
func NewWriter(out io.Writer) *Writer {
	return &Writer{w: csv.NewWriter(out)}
}

// WriteRecord writes one CSV line for rec.
func (w *Writer) WriteRecord(rec reconcile.Record) error {
	row, err := Fields(rec)
	if err != nil {
		return err
	}
	if err := w.w.Write(row); err != nil {
		return err
	}
	w.written++
	return nil
}

// Flush writes any buffered lines and returns the first write error seen.
func (w *Writer) Flush() error {
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}
	csvLog.Printf("Flushed %d lines", w.written)
	return nil
}

// Written returns the number of lines written so far.
func (w *Writer) Written() int {
	return w.written
}

// Sink pairs a Writer for records with a Reporter for anomalies, keeping the
// two streams apart.
type Sink struct {
	*Writer
	diag.Reporter
}

var _ reconcile.Sink = Sink{}
