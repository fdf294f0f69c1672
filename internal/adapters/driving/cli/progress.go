package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"golang.org/x/term"

	"github.com/slub/lisztbib/internal/core/ports/driven"
)

const progressBarWidth = 40

// Ensure ProgressPrinter implements the interface.
var _ driven.ProgressReporter = (*ProgressPrinter)(nil)

// ProgressPrinter writes sync progress to a terminal or a plain stream.
// On a terminal it redraws a styled bar in place; otherwise it prints
// section headers and one line per finished step.
type ProgressPrinter struct {
	out         io.Writer
	interactive bool
	styles      *styles
	bar         progress.Model

	total int
	done  int
}

// NewProgressPrinter creates a printer. Interactive output is used when
// out is a terminal.
func NewProgressPrinter(out io.Writer) *ProgressPrinter {
	return newProgressPrinter(out, isTerminal(out))
}

func newProgressPrinter(out io.Writer, interactive bool) *ProgressPrinter {
	return &ProgressPrinter{
		out:         out,
		interactive: interactive,
		styles:      newStyles(),
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(progressBarWidth),
			progress.WithoutPercentage(),
		),
	}
}

// Section prints a section header.
func (p *ProgressPrinter) Section(title string) {
	if p.interactive {
		fmt.Fprintf(p.out, "\n%s\n", p.styles.Title.Render(title))
		return
	}
	fmt.Fprintf(p.out, "\n%s\n%s\n", title, strings.Repeat("-", len(title)))
}

// Start begins a step of total units.
func (p *ProgressPrinter) Start(total int) {
	p.total = max(total, 0)
	p.done = 0
	p.render()
}

// Advance adds n units, clamped to the step total.
func (p *ProgressPrinter) Advance(n int) {
	p.done = min(p.done+max(n, 0), p.total)
	p.render()
}

// Finish completes the step.
func (p *ProgressPrinter) Finish() {
	p.done = p.total
	if p.interactive {
		p.render()
		fmt.Fprintln(p.out)
		return
	}
	fmt.Fprintf(p.out, " %d/%d\n", p.done, p.total)
}

// Percent returns the completed fraction of the current step.
func (p *ProgressPrinter) Percent() float64 {
	if p.total == 0 {
		return 1
	}
	return float64(p.done) / float64(p.total)
}

func (p *ProgressPrinter) render() {
	if !p.interactive {
		return
	}
	counter := p.styles.Muted.Render(fmt.Sprintf("%d/%d", p.done, p.total))
	fmt.Fprintf(p.out, "\r %s %s", p.bar.ViewAs(p.Percent()), counter)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: fd fits in int
}
