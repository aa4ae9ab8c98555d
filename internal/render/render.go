// Package render assembles the ANSI screen buffer the UI controller
// writes to the outer terminal, and detects its color profile. Grounded
// on dcosson-h2's internal/renderref (RenderLineFrom, the OSC 10/11
// foreground/background probe in Client.Run), split out into its own
// package because spec.md §4.9 describes rendering as "a pure function
// of state" separate from the controller's event loop.
package render

import (
	"bytes"
	"os"

	"github.com/muesli/termenv"
	"github.com/vito/midterm"

	"github.com/gsh-project/gsh/internal/vt"
)

// Palette holds the outer terminal's detected foreground/background
// colors, probed once before entering raw mode (OSC 10/11 queries don't
// reliably round-trip once the child is already writing to the PTY).
type Palette struct {
	Fg, Bg string
}

// DetectPalette probes out's color profile and, failing that, falls
// back to the COLORFGBG convention (vt.FallbackOSCPalette).
func DetectPalette(out *os.File) Palette {
	output := termenv.NewOutput(out)
	var p Palette
	if fg := output.ForegroundColor(); fg != nil {
		p.Fg = vt.ColorToX11(fg)
	}
	if bg := output.BackgroundColor(); bg != nil {
		p.Bg = vt.ColorToX11(bg)
	}
	if p.Fg == "" || p.Bg == "" {
		fg, bg := vt.FallbackOSCPalette(os.Getenv("COLORFGBG"))
		if p.Fg == "" {
			p.Fg = fg
		}
		if p.Bg == "" {
			p.Bg = bg
		}
	}
	return p
}

// Line writes one row of term to buf, resetting SGR state between
// format regions so a background color never bleeds into the next
// region (midterm.Terminal.RenderLine doesn't reset between regions).
func Line(buf *bytes.Buffer, term *midterm.Terminal, row int) {
	if row < 0 || row >= len(term.Content) {
		return
	}
	line := term.Content[row]
	var pos int
	var lastFormat midterm.Format
	for region := range term.Format.Regions(row) {
		f := region.F
		if f != lastFormat {
			buf.WriteString("\033[0m")
			buf.WriteString(f.Render())
			lastFormat = f
		}
		end := pos + region.Size
		if pos < len(line) {
			contentEnd := end
			if contentEnd > len(line) {
				contentEnd = len(line)
			}
			buf.WriteString(string(line[pos:contentEnd]))
		}
		pos = end
	}
	buf.WriteString("\033[0m")
}
