package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// Writer paints Frames to a terminal using in-place redraw (cursor
// moved back to the top of the previous frame rather than clearing
// and reprinting the whole screen, to avoid visible flicker).
type Writer struct {
	out        io.Writer
	colorOn    bool
	lastHeight int
}

// NewWriter detects color and TTY capability: NO_COLOR and a non-TTY
// stdout both force plain output.
func NewWriter(out *os.File) *Writer {
	colorOn := os.Getenv("NO_COLOR") == "" && isatty.IsTerminal(out.Fd())
	color.NoColor = !colorOn
	return &Writer{out: out, colorOn: colorOn}
}

// TerminalWidth returns the current column count of fd, or fallback if
// it cannot be determined (piped output, dumb terminal).
func TerminalWidth(fd uintptr, fallback int) int {
	w, _, err := term.GetSize(int(fd))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}

func colorFn(c Color) func(format string, a ...interface{}) string {
	switch c {
	case ColorGreen:
		return color.New(color.FgGreen).SprintfFunc()
	case ColorYellow:
		return color.New(color.FgYellow).SprintfFunc()
	case ColorOrange:
		return color.New(color.FgHiYellow).SprintfFunc()
	case ColorRed:
		return color.New(color.FgRed).SprintfFunc()
	case ColorDim:
		return color.New(color.Faint).SprintfFunc()
	case ColorDimYellow:
		return color.New(color.Faint, color.FgYellow).SprintfFunc()
	default:
		return fmt.Sprintf
	}
}

// Render draws frame, overwriting whatever this Writer drew last time.
func (w *Writer) Render(frame Frame, headerLine string) {
	var b strings.Builder

	if w.lastHeight > 0 {
		fmt.Fprintf(&b, "\x1b[%dA", w.lastHeight)
	}

	lines := 0
	writeLine := func(s string) {
		fmt.Fprintf(&b, "\x1b[2K%s\n", s)
		lines++
	}

	writeLine(headerLine)
	for _, row := range frame.Rows {
		writeLine(w.renderRow(row))
	}
	if len(frame.ProblemLines) > 0 {
		writeLine("")
		writeLine("problems:")
		for _, p := range frame.ProblemLines {
			writeLine(colorFn(ColorRed)("%s", p))
		}
	}

	w.lastHeight = lines
	fmt.Fprint(w.out, b.String())
}

func (w *Writer) renderRow(row Row) string {
	var b strings.Builder
	b.WriteString(row.Label)
	b.WriteString("  ")
	for _, c := range row.Cells {
		b.WriteString(colorFn(c.Color)("%c", c.Glyph))
	}
	b.WriteString("  ")
	b.WriteString(row.LatencyText)
	return b.String()
}
