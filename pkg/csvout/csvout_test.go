//go:build !integration

package csvout

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dfandrich/testclutch-curl-web/pkg/diag"
	"github.com/dfandrich/testclutch-curl-web/pkg/journal"
	"github.com/dfandrich/testclutch-curl-web/pkg/matcher"
	"github.com/dfandrich/testclutch-curl-web/pkg/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFields(t *testing.T) {
	tests := []struct {
		name string
		rec  reconcile.Record
		want string
	}{
		{
			name: "update completed",
			rec:  reconcile.Record{Kind: reconcile.UpdateCompleted, Timestamp: 160, Duration: 30, Version: "abc123"},
			want: "160.0,30.0,,,abc123,",
		},
		{
			name: "update aborted",
			rec:  reconcile.Record{Kind: reconcile.UpdateAborted, Timestamp: 1690000000.25, Duration: 12.34},
			want: "1690000000.25,,12.3,,,",
		},
		{
			name: "PR analysis",
			rec:  reconcile.Record{Kind: reconcile.PRAnalysisCompleted, Timestamp: 1690000000.123456, Duration: 0.05, Version: "v9"},
			want: "1690000000.123456,,,0.1,v9,",
		},
		{
			name: "comment tally",
			rec:  reconcile.Record{Kind: reconcile.CommentTally, Timestamp: 20, CommentCount: 4, Version: "ignored"},
			want: "20.0,,,,,4",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, err := Fields(tt.rec)
			require.NoError(t, err)
			require.Len(t, row, len(Header))
			assert.Equal(t, tt.want, strings.Join(row, ","))
		})
	}
}

func TestFieldsUnknownKind(t *testing.T) {
	_, err := Fields(reconcile.Record{Kind: reconcile.Kind(42)})
	require.Error(t, err)
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteRecord(reconcile.Record{Kind: reconcile.CommentTally, Timestamp: 20, CommentCount: 2}))
	require.NoError(t, w.WriteRecord(reconcile.Record{Kind: reconcile.PRAnalysisCompleted, Timestamp: 20, Duration: 10}))
	require.NoError(t, w.Flush())

	assert.Equal(t, "20.0,,,,,2\n20.0,,,10.0,,\n", buf.String())
	assert.Equal(t, 2, w.Written())
}

func TestWriterQuotesVersion(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteRecord(reconcile.Record{Kind: reconcile.UpdateCompleted, Timestamp: 1, Duration: 1, Version: "a,b"}))
	require.NoError(t, w.Flush())
	assert.Equal(t, "1.0,1.0,,,\"a,b\",\n", buf.String())
}

func TestSinkKeepsStreamsApart(t *testing.T) {
	var out, errOut bytes.Buffer
	w := NewWriter(&out)
	sink := Sink{Writer: w, Reporter: diag.NewWriter(&errOut, false)}

	r := reconcile.New(matcher.MustCompile(matcher.DefaultPatterns()), reconcile.Options{SuppressUnchangedVersion: true})
	_, err := r.Run([]journal.Entry{
		{Timestamp: 90, SessionID: 5, Message: "version early"},
		{Timestamp: 100, SessionID: 5, Message: "Starting daily update"},
		{Timestamp: 130, SessionID: 5, Message: "version abc123"},
		{Timestamp: 160, SessionID: 5, Message: "Completed daily update"},
	}, sink)
	require.NoError(t, err)
	require.NoError(t, w.Flush())

	assert.Equal(t, "160.0,30.0,,,abc123,\n", out.String())
	assert.Equal(t, "mismatched entry: 90.0 5 version early\n", errOut.String())
}
