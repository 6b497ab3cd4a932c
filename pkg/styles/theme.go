// Package styles provides centralized style and color definitions for the
// stderr side of the tool: status messages, diagnostic labels, the progress
// bar and the run summary table.
//
// Colors are lipgloss.AdaptiveColor values so they stay readable on light and
// dark terminals. Dark variants follow the Dracula palette.
//
// Styles are only applied when stderr is a terminal; see package console.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// ColorError is used for malformed input and out-of-range durations.
	ColorError = lipgloss.AdaptiveColor{
		Light: "#D73737",
		Dark:  "#FF5555",
	}

	// ColorWarning is used for session mismatches and duplicates.
	ColorWarning = lipgloss.AdaptiveColor{
		Light: "#E67E22",
		Dark:  "#FFB86C",
	}

	// ColorSuccess is used for completion messages and table totals.
	ColorSuccess = lipgloss.AdaptiveColor{
		Light: "#27AE60",
		Dark:  "#50FA7B",
	}

	// ColorInfo is used for informational messages.
	ColorInfo = lipgloss.AdaptiveColor{
		Light: "#2980B9",
		Dark:  "#8BE9FD",
	}

	// ColorPurple is used for file paths.
	ColorPurple = lipgloss.AdaptiveColor{
		Light: "#8E44AD",
		Dark:  "#BD93F9",
	}

	// ColorComment is used for muted text such as verbose output.
	ColorComment = lipgloss.AdaptiveColor{
		Light: "#6C7A89",
		Dark:  "#6272A4",
	}

	// ColorForeground is used for primary text content.
	ColorForeground = lipgloss.AdaptiveColor{
		Light: "#2C3E50",
		Dark:  "#F8F8F2",
	}

	// ColorBorder is used for table borders.
	ColorBorder = lipgloss.AdaptiveColor{
		Light: "#BDC3C7",
		Dark:  "#44475A",
	}

	// ColorTableAltRow is used for zebra striping in tables.
	ColorTableAltRow = lipgloss.AdaptiveColor{
		Light: "#F5F5F5",
		Dark:  "#1A1A1A",
	}
)

// RoundedBorder is the border used by the summary table.
var RoundedBorder = lipgloss.RoundedBorder()

// Error style for error messages - bold red
var Error = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorError)

// Warning style for warning messages - bold orange
var Warning = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWarning)

// Success style for success messages - bold green
var Success = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorSuccess)

// Info style for informational messages - bold cyan
var Info = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorInfo)

// FilePath style for journal paths - bold purple
var FilePath = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorPurple)

// Verbose style for verbose output - italic muted
var Verbose = lipgloss.NewStyle().
	Italic(true).
	Foreground(ColorComment)

// TableHeader style for table headers - bold muted
var TableHeader = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorComment)

// TableCell style for regular table cells
var TableCell = lipgloss.NewStyle().
	Foreground(ColorForeground)

// TableTotal style for total rows - bold green
var TableTotal = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorSuccess)

// TableTitle style for table titles - bold green
var TableTitle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorSuccess)

// TableBorder style for table borders
var TableBorder = lipgloss.NewStyle().
	Foreground(ColorBorder)
