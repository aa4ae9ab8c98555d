// Package readline implements the shell's single-line editable input
// buffer: a rune slice, a cursor position, and a horizontal scroll
// offset, with grapheme-aware cursor movement and East-Asian-width
// display math (spec.md §4.8). Adapted from dcosson-h2's
// internal/renderref cursor/input editing (internal/session/overlay's
// Client.Input []byte + Client.CursorPos), generalized from a byte
// buffer with byte-offset cursor to a rune buffer with a
// width-aware scroll window, since the teacher never needed horizontal
// scrolling of a single input line.
package readline

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Buffer is the state behind spec.md §4.8's Readline: input as runes,
// pos as a rune index, and scroll as the rune index of the leftmost
// visible character.
type Buffer struct {
	runes  []rune
	pos    int
	scroll int
}

// New returns an empty buffer.
func New() *Buffer {
	return &Buffer{}
}

// String returns the buffer's full text.
func (b *Buffer) String() string {
	return string(b.runes)
}

// Len returns the buffer's length in runes.
func (b *Buffer) Len() int {
	return len(b.runes)
}

// Pos returns the cursor's rune index.
func (b *Buffer) Pos() int {
	return b.pos
}

// Empty reports whether the buffer holds no text.
func (b *Buffer) Empty() bool {
	return len(b.runes) == 0
}

// SetText replaces the buffer's contents and moves the cursor to the
// end, used when copying a history entry's command line into the
// readline (the 'i' meta key, spec.md §4.9).
func (b *Buffer) SetText(s string) {
	b.runes = []rune(s)
	b.pos = len(b.runes)
	b.scroll = 0
}

// Insert inserts a rune at the cursor and advances the cursor past it.
func (b *Buffer) Insert(r rune) {
	b.runes = append(b.runes, 0)
	copy(b.runes[b.pos+1:], b.runes[b.pos:])
	b.runes[b.pos] = r
	b.pos++
}

// InsertString inserts each rune of s at the cursor in order.
func (b *Buffer) InsertString(s string) {
	for _, r := range s {
		b.Insert(r)
	}
}

// isZeroWidth reports whether r is a combining mark or other
// zero-width character that display-attaches to the rune before it.
func isZeroWidth(r rune) bool {
	return runewidth.RuneWidth(r) == 0
}

// graphemeStart walks backward from idx (exclusive) past any
// zero-width runes, then one more base rune, returning the index of
// the grapheme's first rune. Used so Backspace and cursor movement
// never stop in the middle of a combining-character cluster.
func (b *Buffer) graphemeStart(idx int) int {
	i := idx
	for i > 0 && isZeroWidth(b.runes[i-1]) {
		i--
	}
	if i > 0 {
		i--
	}
	return i
}

// graphemeEnd walks forward from idx past the base rune at idx and any
// zero-width runes that follow it.
func (b *Buffer) graphemeEnd(idx int) int {
	if idx >= len(b.runes) {
		return idx
	}
	i := idx + 1
	for i < len(b.runes) && isZeroWidth(b.runes[i]) {
		i++
	}
	return i
}

// Backspace deletes the grapheme preceding the cursor. Returns true if
// anything was deleted.
func (b *Buffer) Backspace() bool {
	if b.pos == 0 {
		return false
	}
	start := b.graphemeStart(b.pos)
	b.runes = append(b.runes[:start], b.runes[b.pos:]...)
	b.pos = start
	return true
}

// ClearLine empties the buffer (Ctrl-C, spec.md §4.8).
func (b *Buffer) ClearLine() {
	b.runes = nil
	b.pos = 0
	b.scroll = 0
}

// KillToStart deletes from the cursor back to the start of the line
// (Ctrl-U, spec.md §4.8).
func (b *Buffer) KillToStart() {
	b.runes = append([]rune{}, b.runes[b.pos:]...)
	b.pos = 0
}

// MoveLeft moves the cursor one grapheme to the left, skipping
// zero-width runes.
func (b *Buffer) MoveLeft() {
	if b.pos > 0 {
		b.pos = b.graphemeStart(b.pos)
	}
}

// MoveRight moves the cursor one grapheme to the right, skipping
// zero-width runes.
func (b *Buffer) MoveRight() {
	if b.pos < len(b.runes) {
		b.pos = b.graphemeEnd(b.pos)
	}
}

// MoveToStart moves the cursor to the beginning of the line.
func (b *Buffer) MoveToStart() {
	b.pos = 0
}

// MoveToEnd moves the cursor to the end of the line.
func (b *Buffer) MoveToEnd() {
	b.pos = len(b.runes)
}

// Submit returns the buffer's text and resets it, used when the user
// presses Enter on a nonempty line (spec.md §4.8).
func (b *Buffer) Submit() string {
	s := b.String()
	b.ClearLine()
	return s
}

// columnOf returns the display column of rune index idx relative to
// rune index 0, counting East-Asian-width-aware widths and treating
// zero-width runes as contributing no column.
func (b *Buffer) columnOf(idx int) int {
	col := 0
	for i := 0; i < idx && i < len(b.runes); i++ {
		col += runewidth.RuneWidth(b.runes[i])
	}
	return col
}

// backFromColumn returns the largest rune index <= from whose column
// distance back from `from` is at least targetCols, aligned to a
// grapheme boundary (never landing on a zero-width rune).
func (b *Buffer) backFromColumn(from, targetCols int) int {
	col := 0
	i := from
	for i > 0 && col < targetCols {
		i--
		col += runewidth.RuneWidth(b.runes[i])
	}
	for i > 0 && isZeroWidth(b.runes[i]) {
		i--
	}
	return i
}

// EnsureVisible recomputes scroll so the cursor stays within the
// terminal-width-wide visible window, re-centering by shifting scroll
// back by half the terminal width when the cursor would otherwise fall
// outside it (spec.md §4.8).
func (b *Buffer) EnsureVisible(width int) {
	if width <= 0 {
		return
	}
	if b.scroll > b.pos {
		b.scroll = b.graphemeStart(b.pos + 1)
		if b.scroll < 0 {
			b.scroll = 0
		}
	}
	cursorCol := b.columnOf(b.pos) - b.columnOf(b.scroll)
	if cursorCol >= 0 && cursorCol < width {
		return
	}
	b.scroll = b.backFromColumn(b.pos, width/2)
}

// Render returns the text visible within a width-column window
// starting at the current scroll position, and the cursor's column
// within that window.
func (b *Buffer) Render(width int) (text string, cursorCol int) {
	b.EnsureVisible(width)
	var sb strings.Builder
	col := 0
	i := b.scroll
	for i < len(b.runes) && col < width {
		w := runewidth.RuneWidth(b.runes[i])
		if col+w > width {
			break
		}
		sb.WriteRune(b.runes[i])
		col += w
		i++
	}
	return sb.String(), b.columnOf(b.pos) - b.columnOf(b.scroll)
}
