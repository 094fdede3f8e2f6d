package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/kewos554321/blaze4harbor/runtime"
)

var (
	phaseStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
)

// banner prints phase headers and status words, styled when color is on.
type banner struct {
	out   io.Writer
	color bool
}

func newBanner(out io.Writer, color bool) *banner {
	return &banner{out: out, color: color}
}

// Announce prints a phase header surrounded by blank lines.
func (b *banner) Announce(phase runtime.Phase) {
	title := fmt.Sprintf("=== %s ===", phase)
	if b.color {
		title = phaseStyle.Render(title)
	}
	fmt.Fprintf(b.out, "\n%s\n\n", title)
}

// status renders an outcome word: ok, skipped or failed.
func (b *banner) status(word string) string {
	if !b.color {
		return word
	}
	switch word {
	case statusOK:
		return okStyle.Render(word)
	case statusSkipped:
		return warnStyle.Render(word)
	default:
		return failStyle.Render(word)
	}
}
