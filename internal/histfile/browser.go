package histfile

// Browser is the read-only view over the persisted history log that
// the 'H' meta key opens (spec.md §0.2's supplemented old-history
// view): a simple cursor over entries, newest first, with no
// connection to the live in-process internal/history entries it sits
// alongside. Grounded on old_history.rs's History, which likewise only
// ever grows a Vec<Entry> and renders from it — this Go port adds
// cursor movement since nbsh's TUI scrolled it with the same j/k keys
// used elsewhere, which spec.md's meta-key table reuses here too.
type Browser struct {
	entries []Entry // newest first
	pos     int
}

// NewBrowser loads path and returns a Browser positioned at the most
// recent entry.
func NewBrowser(path string) (*Browser, error) {
	entries, err := ReadAll(path)
	if err != nil {
		return nil, err
	}
	reversed := make([]Entry, len(entries))
	for i, e := range entries {
		reversed[len(entries)-1-i] = e
	}
	return &Browser{entries: reversed}, nil
}

// Len returns the number of entries loaded.
func (b *Browser) Len() int {
	return len(b.entries)
}

// Pos returns the cursor's current index into the newest-first list.
func (b *Browser) Pos() int {
	return b.pos
}

// EntryAt returns the entry at the given newest-first index, or false
// if i is out of range. Used by the renderer to draw a window of
// entries around the cursor without exposing the underlying slice.
func (b *Browser) EntryAt(i int) (Entry, bool) {
	if i < 0 || i >= len(b.entries) {
		return Entry{}, false
	}
	return b.entries[i], true
}

// Current returns the entry at the cursor, or false if the log is
// empty.
func (b *Browser) Current() (Entry, bool) {
	if len(b.entries) == 0 {
		return Entry{}, false
	}
	return b.entries[b.pos], true
}

// Older moves the cursor toward older entries, clamped at the oldest.
func (b *Browser) Older() {
	if b.pos < len(b.entries)-1 {
		b.pos++
	}
}

// Newer moves the cursor toward newer entries, clamped at the newest.
func (b *Browser) Newer() {
	if b.pos > 0 {
		b.pos--
	}
}
