package shell

import (
	"bytes"
	"fmt"

	"github.com/gsh-project/gsh/internal/render"
)

// render is spec.md §4.9's pure function of state: it reads Controller
// fields and the entries' VT content under their own locks, and writes
// nothing back. HardRefresh (Ctrl-L, resize) is modeled as an extra
// clear-screen prefix; every render also repositions and erases every
// row it touches, so a stale clear isn't required for correctness, only
// to wipe content from a scene that just shrank (e.g. leaving
// fullscreen).
func (c *Controller) render() []byte {
	var buf bytes.Buffer
	if c.needsClear {
		buf.WriteString("\033[2J\033[H")
		c.needsClear = false
	}
	buf.WriteString("\0337") // DECSC

	switch {
	case c.browsingOldHistory:
		c.renderOldHistory(&buf)
	case c.scene == SceneFullscreen:
		c.renderFullscreen(&buf)
	default:
		c.renderPanes(&buf)
		if !c.hideReadline {
			c.renderReadlineBar(&buf)
		}
	}

	buf.WriteString("\0338") // DECRC
	return buf.Bytes()
}

func (c *Controller) renderFullscreen(buf *bytes.Buffer) {
	e, ok := c.focusedEntry()
	if !ok {
		return
	}
	e.VT.Mu.Lock()
	defer e.VT.Mu.Unlock()
	for i := 0; i < c.rows; i++ {
		fmt.Fprintf(buf, "\033[%d;1H", i+1)
		if e.VT.Vt != nil {
			render.Line(buf, e.VT.Vt, i)
		}
		buf.WriteString("\033[0m\033[K")
	}
}

// renderPanes draws one header line plus up to 6 output lines per
// visible history entry, newest at the bottom, filling availableRows
// (spec.md §4.7's visibility algorithm decides which entries and how
// many lines each gets).
func (c *Controller) renderPanes(buf *bytes.Buffer) {
	availableRows := c.availableRows()
	focusRunning := false
	if e, ok := c.focusedEntry(); ok {
		focusRunning = e.Running()
	}
	visible := c.history.Visible(availableRows, c.focus.Idx, focusRunning, c.focusCursorRow())

	row := 0
	for _, idx := range visible {
		e := c.history.Entries[idx]
		if row >= availableRows {
			break
		}
		fmt.Fprintf(buf, "\033[%d;1H\033[2K", row+1)
		header := entryHeader(e)
		if idx == c.focus.Idx && c.focus.Kind != FocusReadline {
			header = "\033[7m" + header + "\033[0m"
		}
		buf.WriteString(header)
		row++

		lines := e.OutputLines()
		if idx == c.focus.Idx && focusRunning && c.focusCursorRow()+1 > lines {
			lines = c.focusCursorRow() + 1
		}
		if lines > 6 {
			lines = 6
		}

		e.VT.Mu.Lock()
		for i := 0; i < lines && row < availableRows; i++ {
			fmt.Fprintf(buf, "\033[%d;1H", row+1)
			if e.VT.Vt != nil {
				render.Line(buf, e.VT.Vt, i)
			}
			buf.WriteString("\033[0m\033[K")
			row++
		}
		e.VT.Mu.Unlock()
	}

	for row < availableRows {
		fmt.Fprintf(buf, "\033[%d;1H\033[2K", row+1)
		row++
	}
}

// renderOldHistory draws a window of the persisted history log
// starting at the browser's cursor, newest of the visible window at
// the top and highlighted — the 'H' meta key's read-only view (spec.md
// §0.2).
func (c *Controller) renderOldHistory(buf *bytes.Buffer) {
	rows := c.rows
	if c.oldHistory == nil || c.oldHistory.Len() == 0 {
		fmt.Fprintf(buf, "\033[1;1H\033[2K(no persisted history)")
		for row := 1; row < rows; row++ {
			fmt.Fprintf(buf, "\033[%d;1H\033[2K", row+1)
		}
		return
	}

	for row := 0; row < rows; row++ {
		fmt.Fprintf(buf, "\033[%d;1H\033[2K", row+1)
		e, ok := c.oldHistory.EntryAt(c.oldHistory.Pos() + row)
		if !ok {
			continue
		}
		line := e.Cmdline
		if row == 0 {
			line = "\033[7m" + line + "\033[0m"
		}
		buf.WriteString(line)
	}
}

func (c *Controller) renderReadlineBar(buf *bytes.Buffer) {
	row := c.rows
	fmt.Fprintf(buf, "\033[%d;1H\033[2K", row)

	prompt := c.promptString()
	width := c.cols - len([]rune(prompt))
	if width < 0 {
		width = 0
	}
	text, cursorCol := c.readline.Render(width)

	buf.WriteString("\033[36m")
	buf.WriteString(prompt)
	buf.WriteString("\033[0m")
	buf.WriteString(text)

	col := len([]rune(prompt)) + cursorCol + 1
	if col > c.cols {
		col = c.cols
	}
	fmt.Fprintf(buf, "\033[%d;%dH", row, col)
}
