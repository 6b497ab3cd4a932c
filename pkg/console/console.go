// Package console formats the status messages and tables written to stderr.
//
// Stdout carries CSV data, so every decision about styling is made against
// stderr: messages are styled only when stderr is a terminal and NO_COLOR is
// unset.
package console

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dfandrich/testclutch-curl-web/pkg/logger"
	"github.com/dfandrich/testclutch-curl-web/pkg/styles"
	"github.com/dfandrich/testclutch-curl-web/pkg/tty"
)

var consoleLog = logger.New("console:console")

// colorEnabled is a variable so tests can force either mode.
var colorEnabled = tty.StderrColorEnabled

// applyStyle conditionally applies styling based on stderr TTY status
func applyStyle(style lipgloss.Style, text string) string {
	if colorEnabled() {
		return style.Render(text)
	}
	return text
}

// FormatSuccessMessage formats a success message with styling
func FormatSuccessMessage(message string) string {
	return applyStyle(styles.Success, "✓ ") + message
}

// FormatInfoMessage formats an informational message
func FormatInfoMessage(message string) string {
	return applyStyle(styles.Info, "ℹ ") + message
}

// FormatWarningMessage formats a warning message
func FormatWarningMessage(message string) string {
	return applyStyle(styles.Warning, "⚠ ") + message
}

// FormatErrorMessage formats a simple error message (for stderr output)
func FormatErrorMessage(message string) string {
	return applyStyle(styles.Error, "✗ ") + message
}

// FormatVerboseMessage formats verbose debugging output
func FormatVerboseMessage(message string) string {
	return applyStyle(styles.Verbose, "🔍 ") + message
}

// FormatFilePath formats a file path, relative to the working directory
// when that is shorter.
func FormatFilePath(path string) string {
	return applyStyle(styles.FilePath, ToRelativePath(path))
}

// FormatFileError formats a per-file failure as "path: err".
func FormatFileError(path string, err error) string {
	return FormatErrorMessage(fmt.Sprintf("%s: %v", FormatFilePath(path), err))
}

// ToRelativePath converts an absolute path below the working directory to a
// relative one. Other paths are returned unchanged.
func ToRelativePath(path string) string {
	if !filepath.IsAbs(path) {
		return path
	}
	wd, err := filepath.Abs(".")
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

// TableConfig describes a table for RenderTable.
type TableConfig struct {
	Title     string
	Headers   []string
	Rows      [][]string
	ShowTotal bool
	TotalRow  []string
}

// RenderTable renders a formatted table using lipgloss/table package
func RenderTable(config TableConfig) string {
	if len(config.Headers) == 0 {
		consoleLog.Print("No headers provided for table rendering")
		return ""
	}

	consoleLog.Printf("Rendering table: title=%s, columns=%d, rows=%d", config.Title, len(config.Headers), len(config.Rows))
	var output strings.Builder

	if config.Title != "" {
		output.WriteString(applyStyle(styles.TableTitle, config.Title))
		output.WriteString("\n")
	}

	allRows := config.Rows
	if config.ShowTotal && len(config.TotalRow) > 0 {
		allRows = append(allRows, config.TotalRow)
	}

	dataRowCount := len(config.Rows)
	color := colorEnabled()

	styleFunc := func(row, col int) lipgloss.Style {
		if !color {
			return lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
		}
		if row == table.HeaderRow {
			return styles.TableHeader.PaddingLeft(1).PaddingRight(1)
		}
		if config.ShowTotal && len(config.TotalRow) > 0 && row == dataRowCount {
			return styles.TableTotal.PaddingLeft(1).PaddingRight(1)
		}
		if row%2 == 0 {
			return styles.TableCell.PaddingLeft(1).PaddingRight(1)
		}
		return lipgloss.NewStyle().
			Foreground(styles.ColorForeground).
			Background(styles.ColorTableAltRow).
			PaddingLeft(1).
			PaddingRight(1)
	}

	t := table.New().
		Headers(config.Headers...).
		Rows(allRows...).
		Border(styles.RoundedBorder).
		StyleFunc(styleFunc)
	if color {
		t = t.BorderStyle(styles.TableBorder)
	}

	output.WriteString(t.String())
	output.WriteString("\n")

	return output.String()
}
