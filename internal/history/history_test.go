package history

import (
	"testing"
	"time"

	"github.com/gsh-project/gsh/internal/vt"
)

func newTestEntry(idx int, lines int, running bool) *Entry {
	term := vt.NewTerminal(10, 40)
	for i := 0; i < lines && i < len(term.Content); i++ {
		term.Content[i] = []rune("x")
	}
	e := &Entry{
		Idx:       idx,
		StartTime: time.Now(),
		VT:        &vt.VT{Vt: term},
		closeCh:   make(chan struct{}),
	}
	if !running {
		e.exitInfo = &ExitInfo{FinishedAt: time.Now()}
	}
	return e
}

func TestVisibleFitsWithinBudget(t *testing.T) {
	h := &History{}
	for i := 0; i < 5; i++ {
		h.Entries = append(h.Entries, newTestEntry(i, 0, false))
	}
	// Each idle entry with 0 output lines costs 1 row.
	visible := h.Visible(3, -1, false, 0)
	if len(visible) != 3 {
		t.Fatalf("expected 3 visible entries, got %d: %v", len(visible), visible)
	}
	// Oldest-to-newest ordering: the 3 most recent entries are 2,3,4.
	want := []int{2, 3, 4}
	for i, idx := range want {
		if visible[i] != idx {
			t.Errorf("visible[%d] = %d, want %d", i, visible[i], idx)
		}
	}
}

func TestVisibleBudgetsLongOutputAtSix(t *testing.T) {
	h := &History{}
	h.Entries = append(h.Entries, newTestEntry(0, 20, false)) // consumes 1+6=7
	h.Entries = append(h.Entries, newTestEntry(1, 0, false))  // consumes 1

	visible := h.Visible(8, -1, false, 0)
	if len(visible) != 2 {
		t.Fatalf("expected both entries to fit in 8 rows, got %d", len(visible))
	}

	visible = h.Visible(7, -1, false, 0)
	if len(visible) != 1 || visible[0] != 1 {
		t.Fatalf("expected only the newest entry to fit in 7 rows, got %v", visible)
	}
}

func TestVisibleAlwaysIncludesAtLeastOneEntry(t *testing.T) {
	h := &History{}
	h.Entries = append(h.Entries, newTestEntry(0, 20, false))
	visible := h.Visible(1, -1, false, 0)
	if len(visible) != 1 {
		t.Fatalf("expected at least 1 entry even if it overflows budget, got %d", len(visible))
	}
}

func TestVisibleBumpsBudgetForFocusedCursorRow(t *testing.T) {
	h := &History{}
	h.Entries = append(h.Entries, newTestEntry(0, 0, true)) // 0 output lines, but focused+running

	// Focused entry's cursor is on row 5, so it should cost 1+min(6,6)=7 rows
	// even though its VT screen has no visible output yet.
	visible := h.Visible(7, 0, true, 5)
	if len(visible) != 1 || visible[0] != 0 {
		t.Fatalf("expected the focused entry to cost 7 rows and still fit, got %v", visible)
	}
	if len(h.Visible(6, 0, true, 5)) != 1 {
		t.Fatalf("even an overflowing focused entry must still be the sole visible entry")
	}
}

func TestMakeFocusVisibleAdjustsScrollPos(t *testing.T) {
	h := &History{}
	for i := 0; i < 5; i++ {
		h.Entries = append(h.Entries, newTestEntry(i, 0, false))
	}
	h.MakeFocusVisible(0, 3, 0)
	visible := h.Visible(3, 0, false, 0)
	found := false
	for _, idx := range visible {
		if idx == 0 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected entry 0 to be visible after MakeFocusVisible, got %v", visible)
	}
}
