// Package history owns the shell's scrollback of command entries: one
// per line the user has run, each backed by its own PTY and its own
// re-exec'd copy of the shell binary running in "pipeline runner" mode
// (spec.md §4.7). Adapted from dcosson-h2's internal/session/overlay
// single-VT event loop (internal/renderref), generalized from "one
// child process for the whole session" to "one child process per
// history entry".
package history

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/google/uuid"

	"github.com/gsh-project/gsh/internal/eval"
	"github.com/gsh-project/gsh/internal/vt"
	"github.com/gsh-project/gsh/internal/wire"
)

// ExitInfo is recorded once an entry's runner process has exited.
// Immutable once set (spec.md §3's Entry invariant).
type ExitInfo struct {
	Status     eval.Status
	FinishedAt time.Time
}

// Sink receives lifecycle events reported by an entry's runner child,
// forwarded from its fd-4 event stream. Implemented by the shell
// controller package; history never interprets these events itself,
// only relays them. Every call carries both idx (the wire protocol's
// own correlation key, spec.md §6) and id, the Entry's internal
// uuid.UUID: a late event for an idx the controller has already moved
// past (e.g. a second Exit after a crash-and-rerun at the same idx)
// is detectable by comparing id rather than trusting idx alone.
type Sink interface {
	RunPipeline(idx int, id uuid.UUID, spanStart, spanEnd int)
	Suspend(idx int, id uuid.UUID)
	Exit(idx int, id uuid.UUID, env *eval.Env)
	Output(idx int, id uuid.UUID)
}

// Entry is one run line: its own VT/PTY, its own runner subprocess,
// and the channels that serialize writes into that PTY.
type Entry struct {
	Idx        int
	ID         uuid.UUID // stable per-entry token, independent of Idx
	Cmdline    string
	EnvAtStart *eval.Env
	VT         *vt.VT
	StartTime  time.Time
	Span       *[2]int

	mu                 sync.Mutex
	exitInfo           *ExitInfo
	fullscreenOverride *bool

	inputCh  chan []byte
	resizeCh chan Resize
	closeCh  chan struct{}

	reqW   *os.File
	eventR *os.File
}

// Resize describes a PTY resize request.
type Resize struct {
	Rows, Cols int
}

// Running reports whether the entry's runner child is still alive.
func (e *Entry) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exitInfo == nil
}

// ExitInfo returns the entry's recorded exit, or nil while running.
func (e *Entry) ExitInfo() *ExitInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exitInfo
}

func (e *Entry) setExitInfo(info *ExitInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.exitInfo == nil {
		e.exitInfo = info
	}
}

// FullscreenOverride returns the user-toggled fullscreen preference
// for this entry, if any (the 'f' meta key, spec.md §4.9).
func (e *Entry) FullscreenOverride() *bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fullscreenOverride
}

// SetFullscreenOverride sets or clears the user-toggled fullscreen
// preference.
func (e *Entry) SetFullscreenOverride(v *bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fullscreenOverride = v
}

// SendInput writes bytes to the entry's PTY master, serialized through
// its control loop so concurrent writers never race.
func (e *Entry) SendInput(b []byte) {
	cp := make([]byte, len(b))
	copy(cp, b)
	select {
	case e.inputCh <- cp:
	case <-e.closeCh:
	}
}

// Resize resizes the entry's PTY and VT.
func (e *Entry) Resize(rows, cols int) {
	select {
	case e.resizeCh <- Resize{Rows: rows, Cols: cols}:
	case <-e.closeCh:
	}
}

// Close tears down the entry's runner child and PTY task.
func (e *Entry) Close() {
	select {
	case <-e.closeCh:
	default:
		close(e.closeCh)
	}
}

// OutputLines returns the last nonempty row (0..width) of the entry's
// live VT screen, the quantity the visibility algorithm budgets rows
// against (spec.md §4.7).
func (e *Entry) OutputLines() int {
	e.VT.Mu.Lock()
	defer e.VT.Mu.Unlock()
	if e.VT.Vt == nil {
		return 0
	}
	last := -1
	for i, line := range e.VT.Vt.Content {
		if lineHasContent(line) {
			last = i
		}
	}
	return last + 1
}

func lineHasContent(line []rune) bool {
	for _, r := range line {
		if r != 0 && r != ' ' {
			return true
		}
	}
	return false
}

// History owns the ordered list of entries and the scroll position
// (spec.md §3/§4.7).
type History struct {
	Entries   []*Entry
	ScrollPos int

	selfExe string
}

// New builds a History that re-execs the given path (the shell's own
// binary, os.Executable()) in "_runner" mode for each entry.
func New(selfExe string) *History {
	return &History{selfExe: selfExe}
}

// Run spawns line as a new entry: a PTY of the given size, a re-exec'd
// runner child fed the raw source line and Env over fd 3 (the child
// parses it),
// reporting lifecycle events back over fd 4 (spec.md §4.7).
func (h *History) Run(line string, env *eval.Env, rows, cols int, sink Sink) (*Entry, error) {
	idx := len(h.Entries)

	reqR, reqW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("request pipe: %w", err)
	}
	eventR, eventW, err := os.Pipe()
	if err != nil {
		reqR.Close()
		reqW.Close()
		return nil, fmt.Errorf("event pipe: %w", err)
	}

	cmd := exec.Command(h.selfExe, "_runner")
	cmd.ExtraFiles = []*os.File{reqR, eventW} // fd 3, fd 4
	cmd.Env = os.Environ()

	ptm, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		reqR.Close()
		reqW.Close()
		eventR.Close()
		eventW.Close()
		return nil, fmt.Errorf("start runner: %w", err)
	}
	reqR.Close()
	eventW.Close()

	envAtStart := env.Clone()
	envAtStart.Idx = idx + 1

	entry := &Entry{
		Idx:        idx,
		ID:         uuid.New(),
		Cmdline:    line,
		EnvAtStart: envAtStart,
		StartTime:  time.Now(),
		VT: &vt.VT{
			Ptm:       ptm,
			Cmd:       cmd,
			Rows:      rows,
			Cols:      cols,
			ChildRows: rows,
			LastOut:   time.Now(),
		},
		inputCh:  make(chan []byte, 16),
		resizeCh: make(chan Resize, 4),
		closeCh:  make(chan struct{}),
		reqW:     reqW,
		eventR:   eventR,
	}
	entry.VT.Vt = vt.NewTerminal(rows, cols)
	entry.VT.Scrollback = vt.NewScrollback(rows, cols)
	entry.VT.SetupScrollCapture()

	if err := wire.WriteRequest(reqW, wire.Request{Source: line, Env: envAtStart}); err != nil {
		entry.VT.KillChild()
		return nil, fmt.Errorf("write request: %w", err)
	}
	reqW.Close()

	h.Entries = append(h.Entries, entry)

	go entry.VT.PipeOutput(func() { sink.Output(entry.Idx, entry.ID) })
	go entry.controlLoop()
	go entry.eventLoop(sink)
	go entry.waitLoop()

	return entry, nil
}

func (e *Entry) controlLoop() {
	for {
		select {
		case b := <-e.inputCh:
			e.VT.WritePTY(b, 2*time.Second)
		case r := <-e.resizeCh:
			e.VT.Mu.Lock()
			e.VT.Resize(r.Rows, r.Cols, r.Rows)
			e.VT.Mu.Unlock()
		case <-e.closeCh:
			e.VT.KillChild()
			return
		}
	}
}

// eventLoop reads wire.Events off the runner child's fd-4 stream and
// forwards them to sink until the stream closes.
func (e *Entry) eventLoop(sink Sink) {
	defer e.eventR.Close()
	r := bufio.NewReader(e.eventR)
	for {
		ev, err := wire.ReadEvent(r)
		if err != nil {
			return
		}
		switch ev.Kind {
		case wire.EventRunPipeline:
			span := [2]int{ev.SpanStart, ev.SpanEnd}
			e.Span = &span
			sink.RunPipeline(e.Idx, e.ID, ev.SpanStart, ev.SpanEnd)
		case wire.EventSuspend:
			sink.Suspend(e.Idx, e.ID)
		case wire.EventExit:
			e.setExitInfo(&ExitInfo{Status: ev.Env.Status, FinishedAt: time.Now()})
			sink.Exit(e.Idx, e.ID, ev.Env)
		}
	}
}

// waitLoop reaps the runner child so it never becomes a zombie, and
// records a fallback ExitInfo if the child died without ever writing
// an Exit event (e.g. killed).
func (e *Entry) waitLoop() {
	err := e.VT.Cmd.Wait()
	e.VT.Mu.Lock()
	e.VT.ChildExited = true
	e.VT.ExitError = err
	e.VT.Mu.Unlock()
	status := eval.Status{}
	if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() > 0 {
		status.Code = exitErr.ExitCode()
	}
	e.setExitInfo(&ExitInfo{Status: status, FinishedAt: time.Now()})
}

// Visible returns entry indices, oldest to newest, that fit within
// availableRows given the current ScrollPos (spec.md §4.7's visibility
// algorithm). focusIdx/focusRunning/focusCursorRow describe the
// focused entry, whose budget is bumped to keep its cursor visible.
func (h *History) Visible(availableRows, focusIdx int, focusRunning bool, focusCursorRow int) []int {
	if len(h.Entries) == 0 || availableRows <= 0 {
		return nil
	}
	start := len(h.Entries) - 1 - h.ScrollPos
	if start < 0 {
		start = 0
	}
	if start > len(h.Entries)-1 {
		start = len(h.Entries) - 1
	}

	var visible []int
	used := 0
	for i := start; i >= 0; i-- {
		lines := h.Entries[i].OutputLines()
		if focusRunning && i == focusIdx && focusCursorRow+1 > lines {
			lines = focusCursorRow + 1
		}
		rows := 1
		if lines < 6 {
			rows += lines
		} else {
			rows += 6
		}
		if used+rows > availableRows && len(visible) > 0 {
			break
		}
		visible = append(visible, i)
		used += rows
		if used >= availableRows {
			break
		}
	}

	for l, r := 0, len(visible)-1; l < r; l, r = l+1, r-1 {
		visible[l], visible[r] = visible[r], visible[l]
	}
	return visible
}

// MakeFocusVisible adjusts ScrollPos so that focusIdx is included in
// the next Visible() call. If focusIdx is already visible at the
// current ScrollPos, it is left untouched; otherwise ScrollPos is set
// so focusIdx becomes the newest entry considered, which the
// visibility walk always includes regardless of budget.
func (h *History) MakeFocusVisible(focusIdx, availableRows, focusCursorRow int) {
	if focusIdx < 0 || focusIdx >= len(h.Entries) {
		return
	}
	running := h.Entries[focusIdx].Running()
	for _, i := range h.Visible(availableRows, focusIdx, running, focusCursorRow) {
		if i == focusIdx {
			return
		}
	}
	h.ScrollPos = len(h.Entries) - 1 - focusIdx
}
