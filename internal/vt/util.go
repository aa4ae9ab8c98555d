// Package vt wraps a PTY-backed child process together with the
// virtual terminal screen (github.com/vito/midterm, forked as
// github.com/dcosson/midterm) that parses its output, adapted from
// dcosson-h2's internal/session/virtualterminal package: each history
// Entry (spec.md §3/§4.7) owns its own *VT rather than the shell
// having one global terminal.
package vt

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/muesli/termenv"
)

// ColorToX11 converts a termenv.Color to X11 rgb: format, used to
// answer a child's OSC 10/11 background/foreground color query.
func ColorToX11(c termenv.Color) string {
	if c == nil {
		return ""
	}
	switch v := c.(type) {
	case termenv.RGBColor:
		hex := string(v)
		if len(hex) == 7 && hex[0] == '#' {
			r, _ := strconv.ParseUint(hex[1:3], 16, 8)
			g, _ := strconv.ParseUint(hex[3:5], 16, 8)
			b, _ := strconv.ParseUint(hex[5:7], 16, 8)
			return fmt.Sprintf("rgb:%04x/%04x/%04x", r*0x101, g*0x101, b*0x101)
		}
	}
	rgb := termenv.ConvertToRGB(c)
	r := uint8(rgb.R*255 + 0.5)
	g := uint8(rgb.G*255 + 0.5)
	b := uint8(rgb.B*255 + 0.5)
	return fmt.Sprintf("rgb:%04x/%04x/%04x", uint16(r)*0x101, uint16(g)*0x101, uint16(b)*0x101)
}

// IsEscSequenceComplete reports whether the given escape sequence is
// complete, used by the readline key reader to decide whether to keep
// buffering bytes or dispatch.
func IsEscSequenceComplete(seq []byte) bool {
	if len(seq) < 2 {
		return false
	}
	switch seq[1] {
	case '[':
		if len(seq) < 3 {
			return false
		}
		final := seq[len(seq)-1]
		return final >= 0x40 && final <= 0x7E
	case 'O':
		return len(seq) >= 3
	default:
		return true
	}
}

// TrimLeftToWidth trims a string from the left to fit within the given
// width, used when rendering a long status-bar field in limited space.
func TrimLeftToWidth(s string, width int) string {
	if width <= 0 || len(s) <= width {
		return s
	}
	start := len(s) - width
	return s[start:]
}

// FormatIdleDuration formats a duration into a compact human-readable
// string for the status bar's running-duration field.
func FormatIdleDuration(d time.Duration) string {
	if d < time.Minute {
		secs := int(d.Seconds())
		if secs < 1 {
			secs = 1
		}
		return fmt.Sprintf("%ds", secs)
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		return fmt.Sprintf("%dm", mins)
	}
	if d < 24*time.Hour {
		hrs := int(d.Hours())
		return fmt.Sprintf("%dh", hrs)
	}
	days := int(d.Hours() / 24)
	return fmt.Sprintf("%dd", days)
}

// FallbackOSCPalette returns OSC 10/11-compatible X11 rgb values
// derived from COLORFGBG. When parsing fails, it defaults to a dark
// terminal palette.
func FallbackOSCPalette(colorfgbg string) (fg, bg string) {
	parts := strings.Split(strings.TrimSpace(colorfgbg), ";")
	bgDark := true
	bgField := ""
	if len(parts) >= 2 {
		bgField = strings.TrimSpace(parts[1])
	} else if len(parts) == 1 {
		bgField = strings.TrimSpace(parts[0])
	}
	if bgField != "" {
		if idx, err := strconv.Atoi(bgField); err == nil {
			bgDark = idx < 8
		}
	}

	if bgDark {
		return "rgb:ffff/ffff/ffff", "rgb:0000/0000/0000"
	}
	return "rgb:0000/0000/0000", "rgb:ffff/ffff/ffff"
}
