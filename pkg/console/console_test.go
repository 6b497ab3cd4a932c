//go:build !integration

package console

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withColor(t *testing.T, enabled bool) {
	t.Helper()
	prev := colorEnabled
	colorEnabled = func() bool { return enabled }
	t.Cleanup(func() { colorEnabled = prev })
}

func TestFormatMessagesPlain(t *testing.T) {
	withColor(t, false)

	tests := []struct {
		name   string
		format func(string) string
		want   string
	}{
		{name: "success", format: FormatSuccessMessage, want: "✓ done"},
		{name: "info", format: FormatInfoMessage, want: "ℹ done"},
		{name: "warning", format: FormatWarningMessage, want: "⚠ done"},
		{name: "error", format: FormatErrorMessage, want: "✗ done"},
		{name: "verbose", format: FormatVerboseMessage, want: "🔍 done"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.format("done"))
		})
	}
}

func TestFormatFileError(t *testing.T) {
	withColor(t, false)
	got := FormatFileError("/nonexistent/system.journal", errors.New("no such file"))
	assert.Equal(t, "✗ /nonexistent/system.journal: no such file", got)
}

func TestToRelativePath(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	assert.Equal(t, "relative/x.journal", ToRelativePath("relative/x.journal"))
	assert.Equal(t, filepath.Join("logs", "x.journal"), ToRelativePath(filepath.Join(wd, "logs", "x.journal")))
	assert.Equal(t, "/", ToRelativePath("/"))
}

func TestRenderTable(t *testing.T) {
	withColor(t, false)

	out := RenderTable(TableConfig{
		Title:     "Summary",
		Headers:   []string{"Category", "Count"},
		Rows:      [][]string{{"session mismatch", "3"}, {"invalid entry", "1"}},
		ShowTotal: true,
		TotalRow:  []string{"total", "4"},
	})

	assert.True(t, strings.HasPrefix(out, "Summary\n"))
	for _, want := range []string{"Category", "session mismatch", "invalid entry", "total", "4"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "\x1b[", "no escape sequences without color")
}

func TestRenderTableNoHeaders(t *testing.T) {
	assert.Empty(t, RenderTable(TableConfig{Rows: [][]string{{"x"}}}))
}

func TestProgressBarPlain(t *testing.T) {
	withColor(t, false)

	var buf bytes.Buffer
	bar := NewProgressBar(&buf, 4)
	bar.Update(1, 4)
	bar.Update(4, 4)
	bar.Finish()

	assert.Equal(t, "1/4 files (25%)\n4/4 files (100%)\n", buf.String())
}

func TestProgressBarIgnoresStaleCounts(t *testing.T) {
	withColor(t, false)

	var buf bytes.Buffer
	bar := NewProgressBar(&buf, 4)
	bar.Update(2, 4)
	bar.Update(1, 4)
	bar.Update(3, 4)
	bar.Finish()

	assert.Equal(t, "2/4 files (50%)\n3/4 files (75%)\n", buf.String())
}

func TestProgressBarColor(t *testing.T) {
	withColor(t, true)

	var buf bytes.Buffer
	bar := NewProgressBar(&buf, 2)
	bar.Update(1, 2)
	bar.Finish()

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\r"))
	assert.Contains(t, out, "1/2")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestProgressBarEmpty(t *testing.T) {
	withColor(t, false)
	assert.Equal(t, "0/0 files", NewProgressBar(&bytes.Buffer{}, 0).View(0))
}
