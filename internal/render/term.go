// Package render draws observation frames for the demo terminal view.
// It consumes protocol frames only, so it can never perturb the run it
// is watching.
package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"repairtown.ai/internal/protocol"
)

var (
	brokenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fafafa")).
			Background(lipgloss.Color("#c86464"))
	fixedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fafafa")).
			Background(lipgloss.Color("#323264"))
)

// Frame renders one frame as a grid of styled cells. A cell shows the
// number of workers standing on it, or "-" when empty; the background
// tells broken from fixed.
func Frame(f protocol.FrameMsg) string {
	occupancy := make(map[int]int)
	for _, w := range f.Workers {
		occupancy[w.Row*f.Cols+w.Col]++
	}

	var b strings.Builder
	for row := 0; row < f.Rows; row++ {
		for col := 0; col < f.Cols; col++ {
			i := row*f.Cols + col
			label := "-"
			if n := occupancy[i]; n > 0 {
				label = fmt.Sprintf("%d", n)
			}
			style := fixedStyle
			if f.Houses[i].Status == "BROKEN" {
				style = brokenStyle
			}
			b.WriteString(" ")
			b.WriteString(style.Render(label))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "fixed %d/%d", f.Fixed, f.Total)
	for _, w := range f.Workers {
		fmt.Fprintf(&b, "  %s=%d", w.ID, w.Belief)
	}
	b.WriteString("\n")
	return b.String()
}

// TermRenderer repaints the terminal on every frame. Satisfies
// runner.FrameSink.
type TermRenderer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewTermRenderer(out io.Writer) *TermRenderer {
	return &TermRenderer{out: out}
}

func (t *TermRenderer) Frame(f protocol.FrameMsg) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprint(t.out, "\x1b[H\x1b[2J")
	fmt.Fprint(t.out, Frame(f))
}
