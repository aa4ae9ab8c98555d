package shell

import (
	"unicode/utf8"

	"github.com/gsh-project/gsh/internal/histfile"
	"github.com/gsh-project/gsh/internal/vt"
)

const (
	ctrlC     = 0x03
	ctrlD     = 0x04
	ctrlE     = 0x05
	ctrlL     = 0x0c
	ctrlM     = 0x0d // Enter
	ctrlU     = 0x15
	backspace = 0x7f
	esc       = 0x1b
)

// handleKeys scans a batch of raw input bytes into discrete tokens —
// escape sequences, single control/ASCII bytes, or multi-byte runes —
// and dispatches each in order. Splitting here (rather than one byte
// at a time) lets arrow keys and pasted Unicode text survive arriving
// as a single eventhub batch.
func (c *Controller) handleKeys(buf []byte) {
	i := 0
	for i < len(buf) {
		b := buf[i]
		switch {
		case b == esc:
			end := i + 2
			if end > len(buf) {
				end = len(buf)
			}
			for end < len(buf) && !vt.IsEscSequenceComplete(buf[i:end]) {
				end++
			}
			c.handleEscSequence(buf[i:end])
			i = end
		case b < 0x80:
			c.handleByte(b)
			i++
		default:
			r, size := utf8.DecodeRune(buf[i:])
			if size == 0 {
				size = 1
			}
			c.handleRune(r)
			i += size
		}
	}
}

// handleEscSequence dispatches a complete (or truncated-at-buffer-end)
// ANSI escape sequence: the arrow keys readline and the meta-key table
// reference, plus a bare Escape keypress (len 1: no '[' ever arrived),
// which leaves the 'H' browser, as a second 'H' meta key also does
// (spec.md §0.2).
func (c *Controller) handleEscSequence(seq []byte) {
	if len(seq) == 1 {
		c.browsingOldHistory = false
		return
	}
	if len(seq) < 3 || seq[1] != '[' {
		return
	}
	switch seq[len(seq)-1] {
	case 'D': // Left
		if c.focus.Kind == FocusReadline {
			c.readline.MoveLeft()
		}
	case 'C': // Right
		if c.focus.Kind == FocusReadline {
			c.readline.MoveRight()
		}
	case 'A': // Up
		if c.browsingOldHistory {
			c.oldHistory.Older()
		} else if c.focus.Kind == FocusReadline {
			c.focusLatestEntry()
		} else if c.focus.Kind == FocusScrolling {
			c.scrollPrev()
		}
	case 'B': // Down
		if c.browsingOldHistory {
			c.oldHistory.Newer()
		} else if c.focus.Kind == FocusScrolling {
			c.scrollNext()
		}
	}
}

// handleByte implements spec.md §4.9's top-level Key dispatch: escape
// pending and Ctrl-E are checked before focus, then focus decides.
func (c *Controller) handleByte(b byte) {
	if c.escapePending {
		c.escapePending = false
		c.handleMetaKey(b)
		return
	}
	if b == ctrlE {
		c.escapePending = true
		return
	}
	switch c.focus.Kind {
	case FocusReadline:
		c.handleReadlineByte(b)
	case FocusHistory:
		c.handleHistoryByte(b)
	case FocusScrolling:
		c.handleMetaKey(b)
	}
}

// handleRune handles a decoded multi-byte Unicode rune: only readline
// insertion and history passthrough accept them (the meta-key table is
// ASCII-only).
func (c *Controller) handleRune(r rune) {
	switch c.focus.Kind {
	case FocusReadline:
		c.readline.Insert(r)
	case FocusHistory:
		if e, ok := c.focusedEntry(); ok {
			buf := make([]byte, utf8.RuneLen(r))
			utf8.EncodeRune(buf, r)
			e.SendInput(buf)
		}
	}
}

// handleReadlineByte implements spec.md §4.8's Readline key table for
// single-byte keys (arrow keys are handled in handleEscSequence).
func (c *Controller) handleReadlineByte(b byte) {
	switch b {
	case backspace, 0x08:
		c.readline.Backspace()
	case ctrlC:
		c.readline.ClearLine()
	case ctrlU:
		c.readline.KillToStart()
	case ctrlD:
		if c.readline.Empty() {
			c.quit = true
		}
	case ctrlL:
		c.needsClear = true
	case ctrlM:
		c.submit()
	default:
		if b >= 0x20 && b < 0x7f {
			c.readline.Insert(rune(b))
		}
	}
}

// handleHistoryByte forwards a raw byte to the focused entry's PTY —
// focus=History routes keys directly to the running child.
func (c *Controller) handleHistoryByte(b byte) {
	e, ok := c.focusedEntry()
	if !ok {
		c.focus = readlineFocus()
		return
	}
	e.SendInput([]byte{b})
}

// handleMetaKey implements spec.md §4.9's meta-key table, reached
// either after Ctrl-E or directly while focus=Scrolling.
func (c *Controller) handleMetaKey(b byte) {
	switch b {
	case ctrlD:
		c.quit = true
	case ctrlE:
		c.focus = scrollingFocus(c.focus.Idx)
	case ctrlL:
		c.needsClear = true
	case ctrlM:
		c.metaEnter()
	case ' ':
		if e, ok := c.focusedEntry(); ok && e.Running() {
			c.focus = historyFocus(c.focus.Idx)
		}
	case 'e':
		if e, ok := c.focusedEntry(); ok {
			e.SendInput([]byte{ctrlE})
		}
	case 'f':
		c.toggleFullscreen()
	case 'i':
		if e, ok := c.focusedEntry(); ok {
			c.readline.SetText(e.Cmdline)
		}
		c.focus = readlineFocus()
	case 'j':
		if c.browsingOldHistory {
			c.oldHistory.Newer()
		} else {
			c.scrollNext()
		}
	case 'k':
		if c.browsingOldHistory {
			c.oldHistory.Older()
		} else {
			c.scrollPrev()
		}
	case 'H':
		c.toggleOldHistory()
	case 'n':
		c.jumpRunning(1)
	case 'p':
		c.jumpRunning(-1)
	case 'r':
		c.focus = readlineFocus()
	}
}

// metaEnter implements the Ctrl-M row of the meta-key table: attach to
// a running focused entry, or re-run its command as a new entry with
// the readline hidden until it finishes.
func (c *Controller) metaEnter() {
	e, ok := c.focusedEntry()
	if !ok {
		return
	}
	if e.Running() {
		c.focus = historyFocus(e.Idx)
		return
	}
	entry, err := c.history.Run(e.Cmdline, c.env, c.availableRows(), c.cols, c)
	if err != nil {
		if c.log != nil {
			c.log.Errorw("rerun entry failed", "cmdline", e.Cmdline, "error", err)
		}
		return
	}
	c.hideReadline = true
	c.focus = historyFocus(entry.Idx)
	c.history.MakeFocusVisible(entry.Idx, c.availableRows(), 0)
}

// toggleFullscreen implements the 'f' meta key: flip the focused
// entry's fullscreen override; if it's not running and the override
// now says "not fullscreen", demote focus out of History.
func (c *Controller) toggleFullscreen() {
	e, ok := c.focusedEntry()
	if !ok {
		return
	}
	current := e.VT.AltScreen
	if ov := e.FullscreenOverride(); ov != nil {
		current = *ov
	}
	next := !current
	e.SetFullscreenOverride(&next)
	if !next && !e.Running() {
		c.focus = scrollingFocus(e.Idx)
	}
}

// toggleOldHistory implements the 'H' meta key (spec.md §0.2's
// supplemented old-history view): flips browsingOldHistory, lazily
// loading the persisted history log on first entry. A load failure
// (e.g. unreadable file) leaves the live view in place.
func (c *Controller) toggleOldHistory() {
	if c.browsingOldHistory {
		c.browsingOldHistory = false
		return
	}
	if c.oldHistory == nil {
		b, err := histfile.NewBrowser(histfile.Path())
		if err != nil {
			if c.log != nil {
				c.log.Errorw("load old history failed", "error", err)
			}
			return
		}
		c.oldHistory = b
	}
	c.browsingOldHistory = true
}

// focusLatestEntry implements the Readline "Up" key: move focus to the
// most recent entry, in Scrolling mode.
func (c *Controller) focusLatestEntry() {
	if len(c.history.Entries) == 0 {
		return
	}
	c.focus = scrollingFocus(len(c.history.Entries) - 1)
}

// scrollNext/scrollPrev move the Scrolling focus idx toward newer/older
// entries, clamped to the valid range.
func (c *Controller) scrollNext() {
	if c.focus.Idx < len(c.history.Entries)-1 {
		c.focus.Idx++
	}
}

func (c *Controller) scrollPrev() {
	if c.focus.Idx > 0 {
		c.focus.Idx--
	}
}

// jumpRunning moves the Scrolling focus idx to the next (dir=1) or
// previous (dir=-1) still-running entry, wrapping around the list.
func (c *Controller) jumpRunning(dir int) {
	n := len(c.history.Entries)
	if n == 0 {
		return
	}
	start := c.focus.Idx
	for step := 1; step <= n; step++ {
		idx := ((start+dir*step)%n + n) % n
		if c.history.Entries[idx].Running() {
			c.focus.Idx = idx
			return
		}
	}
}
