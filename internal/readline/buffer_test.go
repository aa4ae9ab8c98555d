package readline

import "testing"

// eAcute is "e" followed by a combining acute accent (U+0301), a
// decomposed grapheme whose second rune has display width zero.
const eAcute = "é"

func TestInsertAndString(t *testing.T) {
	b := New()
	b.InsertString("echo hi")
	if b.String() != "echo hi" {
		t.Fatalf("String() = %q", b.String())
	}
	if b.Pos() != 7 {
		t.Fatalf("Pos() = %d, want 7", b.Pos())
	}
}

func TestBackspaceDeletesPrecedingGrapheme(t *testing.T) {
	b := New()
	b.InsertString("ab")
	b.Backspace()
	if b.String() != "a" {
		t.Fatalf("String() = %q, want %q", b.String(), "a")
	}
	if !b.Backspace() {
		t.Fatal("expected Backspace to report a deletion")
	}
	if b.String() != "" {
		t.Fatalf("String() = %q, want empty", b.String())
	}
	if b.Backspace() {
		t.Fatal("expected Backspace on empty buffer to report no deletion")
	}
}

func TestBackspaceSkipsCombiningMark(t *testing.T) {
	b := New()
	b.InsertString(eAcute + "x")
	b.Backspace() // deletes 'x'
	if b.String() != eAcute {
		t.Fatalf("String() = %q", b.String())
	}
	if !b.Backspace() { // should delete 'e' AND the combining mark together
		t.Fatal("expected a deletion")
	}
	if b.String() != "" {
		t.Fatalf("String() = %q, want empty after deleting the whole grapheme", b.String())
	}
}

func TestClearLine(t *testing.T) {
	b := New()
	b.InsertString("rm -rf /")
	b.ClearLine()
	if b.String() != "" || b.Pos() != 0 {
		t.Fatalf("expected empty buffer after ClearLine, got %q pos=%d", b.String(), b.Pos())
	}
}

func TestKillToStart(t *testing.T) {
	b := New()
	b.InsertString("hello world")
	b.MoveLeft()
	b.MoveLeft()
	b.MoveLeft()
	b.KillToStart()
	if b.String() != "rld" {
		t.Fatalf("String() = %q, want %q", b.String(), "rld")
	}
	if b.Pos() != 0 {
		t.Fatalf("Pos() = %d, want 0", b.Pos())
	}
}

func TestMoveLeftRightSkipZeroWidth(t *testing.T) {
	b := New()
	b.InsertString(eAcute + "f")
	b.MoveToStart()
	b.MoveRight() // should land after the whole e+combining cluster, i.e. before 'f'
	if b.Pos() != 2 {
		t.Fatalf("Pos() = %d, want 2 (past the combined grapheme)", b.Pos())
	}
	b.MoveLeft()
	if b.Pos() != 0 {
		t.Fatalf("Pos() = %d, want 0 (back before the combined grapheme)", b.Pos())
	}
}

func TestSubmitReturnsAndClears(t *testing.T) {
	b := New()
	b.InsertString("ls -la")
	got := b.Submit()
	if got != "ls -la" {
		t.Fatalf("Submit() = %q", got)
	}
	if !b.Empty() {
		t.Fatal("expected buffer empty after Submit")
	}
}

func TestRenderScrollsToKeepCursorVisible(t *testing.T) {
	b := New()
	b.InsertString("0123456789abcdefghij")
	text, col := b.Render(10)
	if len([]rune(text)) > 10 {
		t.Fatalf("rendered text longer than width: %q", text)
	}
	if col < 0 || col >= 10 {
		t.Fatalf("cursor column %d out of visible window [0,10)", col)
	}
}

func TestSetTextMovesCursorToEnd(t *testing.T) {
	b := New()
	b.SetText("git status")
	if b.Pos() != len([]rune("git status")) {
		t.Fatalf("Pos() = %d, want end of string", b.Pos())
	}
}
