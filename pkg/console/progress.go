package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/dfandrich/testclutch-curl-web/pkg/logger"
)

var progressLog = logger.New("console:progress")

// ProgressBar shows how many input files have been extracted.
//
// On a color terminal it renders a gradient bar redrawn in place with a
// carriage return. Otherwise it prints a plain "done/total" line at each
// update.
type ProgressBar struct {
	mu       sync.Mutex
	progress progress.Model
	out      io.Writer
	total    int
	color    bool
	drawn    bool
	done     int
}

// NewProgressBar returns a bar counting up to total files, drawn on out.
func NewProgressBar(out io.Writer, total int) *ProgressBar {
	progressLog.Printf("Creating progress bar: total=%d files", total)
	prog := progress.New(
		progress.WithScaledGradient("#BD93F9", "#8BE9FD"),
		progress.WithWidth(40),
	)
	prog.EmptyColor = "#6272A4"

	return &ProgressBar{
		progress: prog,
		out:      out,
		total:    total,
		color:    colorEnabled(),
	}
}

// View returns the rendering of done files out of the total.
func (p *ProgressBar) View(done int) string {
	if p.total <= 0 {
		if p.color {
			return p.progress.ViewAs(1.0)
		}
		return "0/0 files"
	}
	percent := float64(done) / float64(p.total)
	if !p.color {
		return fmt.Sprintf("%d/%d files (%d%%)", done, p.total, int(percent*100))
	}
	return p.progress.ViewAs(percent) + fmt.Sprintf(" %d/%d", done, p.total)
}

// Update redraws the bar for done files. It matches the collect.Options
// Progress callback and is safe for concurrent use. Callbacks from different
// workers can arrive out of order; a count lower than one already drawn is
// ignored so the bar never moves backwards.
func (p *ProgressBar) Update(done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if done < p.done {
		return
	}
	p.done = done
	p.total = total
	view := p.View(done)
	if p.color {
		fmt.Fprint(p.out, "\r"+view)
	} else {
		fmt.Fprintln(p.out, view)
	}
	p.drawn = true
}

// Finish ends the in-place line so later stderr output starts cleanly.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.color && p.drawn {
		fmt.Fprintln(p.out)
	}
	p.drawn = false
}
