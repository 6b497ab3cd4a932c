package cli

import (
	"strconv"
	"strings"

	"github.com/dfandrich/testclutch-curl-web/pkg/console"
	"github.com/dfandrich/testclutch-curl-web/pkg/diag"
	"github.com/dfandrich/testclutch-curl-web/pkg/reconcile"
)

// renderSummary formats the --verbose run summary as two tables.
func renderSummary(s runStats) string {
	var sb strings.Builder

	itoa := strconv.Itoa
	rows := [][]string{
		{"files", itoa(s.Files)},
		{"files failed", itoa(s.FailedFiles)},
		{"export records", itoa(s.Records)},
		{"records filtered", itoa(s.Filtered)},
		{"malformed lines", itoa(s.Malformed)},
		{"entries", itoa(s.Entries)},
	}
	for _, k := range []reconcile.Kind{
		reconcile.UpdateCompleted,
		reconcile.UpdateAborted,
		reconcile.PRAnalysisCompleted,
		reconcile.CommentTally,
	} {
		rows = append(rows, []string{k.String(), itoa(s.Summary.Records[k])})
	}
	rows = append(rows, []string{"csv lines", itoa(s.CSVLines)})
	if s.Summary.Unfinished != nil {
		rows = append(rows, []string{"unfinished session", strconv.FormatInt(s.Summary.Unfinished.SessionID, 10)})
	}
	if s.TimedOut {
		rows = append(rows, []string{"timed out", "yes"})
	}
	sb.WriteString(console.RenderTable(console.TableConfig{
		Title:   "Run summary",
		Headers: []string{"Item", "Count"},
		Rows:    rows,
	}))

	total := 0
	var anomalyRows [][]string
	for _, c := range diag.Categories {
		n := s.Anomalies[c]
		total += n
		anomalyRows = append(anomalyRows, []string{string(c), c.Class().String(), itoa(n)})
	}
	sb.WriteString(console.RenderTable(console.TableConfig{
		Title:     "Anomalies",
		Headers:   []string{"Category", "Class", "Count"},
		Rows:      anomalyRows,
		ShowTotal: true,
		TotalRow:  []string{"total", "", itoa(total)},
	}))
	return sb.String()
}
