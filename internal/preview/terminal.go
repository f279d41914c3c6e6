// Package preview shows rendered choropleth figures in a terminal.
package preview

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rotisserie/eris"

	"github.com/sells-group/zonemap/internal/choropleth"
)

// Default grid size in character cells.
const (
	DefaultWidth  = 80
	DefaultHeight = 32
)

// Option configures a Terminal.
type Option func(*Terminal)

// WithSize sets the map grid size in character cells.
func WithSize(width, height int) Option {
	return func(t *Terminal) {
		if width > 0 {
			t.width = width
		}
		if height > 0 {
			t.height = height
		}
	}
}

// Terminal draws figures as coloured character grids. It implements
// choropleth.Viewer.
type Terminal struct {
	out      io.Writer
	width    int
	height   int
	renderer *lipgloss.Renderer
}

var _ choropleth.Viewer = (*Terminal)(nil)

// New returns a Terminal writing to out. Colour output follows the
// capabilities lipgloss detects for out.
func New(out io.Writer, opts ...Option) *Terminal {
	t := &Terminal{
		out:      out,
		width:    DefaultWidth,
		height:   DefaultHeight,
		renderer: lipgloss.NewRenderer(out),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Show draws the figure with its title, legend and notes in a rounded box.
func (t *Terminal) Show(fig *choropleth.Figure) error {
	if fig == nil {
		return eris.New("preview: nil figure")
	}
	c := rasterize(fig, t.width, t.height)

	var parts []string
	if fig.Title != "" {
		parts = append(parts, t.renderer.NewStyle().Bold(true).Render(fig.Title))
	}
	parts = append(parts, t.grid(c), t.legend(fig))
	if fig.Notes != "" {
		parts = append(parts, t.renderer.NewStyle().Faint(true).Render(fig.Notes))
	}

	box := t.renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#243141")).
		Padding(0, 1)
	if _, err := fmt.Fprintln(t.out, box.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))); err != nil {
		return eris.Wrap(err, "preview: write figure")
	}
	return nil
}

// grid renders canvas rows, styling runs of same-coloured cells together.
func (t *Terminal) grid(c *canvas) string {
	rows := make([]string, c.h)
	for y := 0; y < c.h; y++ {
		var sb strings.Builder
		var run []rune
		hex := ""
		flush := func() {
			if len(run) == 0 {
				return
			}
			if hex == "" {
				sb.WriteString(string(run))
			} else {
				sb.WriteString(t.renderer.NewStyle().Foreground(lipgloss.Color(hex)).Render(string(run)))
			}
			run = run[:0]
		}
		for x := 0; x < c.w; x++ {
			cl := c.at(x, y)
			if cl.hex != hex {
				flush()
				hex = cl.hex
			}
			run = append(run, cl.glyph)
		}
		flush()
		rows[y] = sb.String()
	}
	return strings.Join(rows, "\n")
}

func (t *Terminal) legend(fig *choropleth.Figure) string {
	var lines []string
	if fig.Column != "" {
		lines = append(lines, fig.Column)
	}
	counts := fig.Classes.Counts()
	for i, label := range fig.Classes.Labels() {
		swatch := t.renderer.NewStyle().Foreground(lipgloss.Color(toHex(fig.Palette[i]))).Render("██")
		lines = append(lines, fmt.Sprintf("%s %s (%d)", swatch, label, counts[i]))
	}
	for _, l := range fig.Layers {
		switch l {
		case choropleth.LayerStations:
			lines = append(lines, t.renderer.NewStyle().Foreground(lipgloss.Color(stationHex)).Render(string(stationGlyph))+" Stations")
		case choropleth.LayerBuffers:
			lines = append(lines, t.renderer.NewStyle().Foreground(lipgloss.Color(bufferHex)).Render(string(bufferGlyph))+" Buffers")
		}
	}
	return strings.Join(lines, "\n")
}
