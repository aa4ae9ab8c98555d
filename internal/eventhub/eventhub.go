// Package eventhub implements the coalescing multi-producer mailbox
// spec.md §5/§9 describes: per-kind slots (key: queue, resize:
// last-wins, pty_output: bool, clock: bool, child_exit: queue, suspend:
// queue, git_info: last-wins) so the UI controller never renders once
// per byte of PTY output. Exposes a single Recv that blocks until any
// slot is non-empty, then drains everything waiting before returning —
// grounded on the Rust original's `Pending` struct (original_source/).
package eventhub

import (
	"sync"

	"github.com/google/uuid"
)

// ChildExit is one child_exit slot entry: the history entry index, the
// Entry's stable ID (so a consumer can detect a stale event against an
// idx it has since moved past), and the Env the runner reported back,
// when present.
type ChildExit struct {
	Idx int
	ID  uuid.UUID
	Env any // *eval.Env; kept as `any` to avoid an import cycle with internal/eval's users
}

// Resize is the last-wins slot payload for a terminal size change.
type Resize struct {
	Rows, Cols int
}

// Drained is a single batch of everything that was pending at the
// moment Recv unblocked.
type Drained struct {
	Keys       []byte
	Resize     *Resize
	PtyOutput  bool
	Clock      bool
	ChildExits []ChildExit
	Suspends   []int
	GitInfo    any
}

// Empty reports whether a Drained batch carries nothing at all (for
// example the zero batch Recv returns once the hub is closed).
func (d Drained) Empty() bool {
	return len(d.Keys) == 0 && d.Resize == nil && !d.PtyOutput && !d.Clock &&
		len(d.ChildExits) == 0 && len(d.Suspends) == 0 && d.GitInfo == nil
}

// Hub is the mailbox. Zero value is not usable; use New.
type Hub struct {
	mu   sync.Mutex
	cond *sync.Cond

	keys       []byte
	resize     *Resize
	ptyOutput  bool
	clock      bool
	childExits []ChildExit
	suspends   []int
	gitInfo    any

	closed bool
}

// New builds an empty Hub.
func New() *Hub {
	h := &Hub{}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// PushKey enqueues one input byte.
func (h *Hub) PushKey(b byte) {
	h.mu.Lock()
	h.keys = append(h.keys, b)
	h.mu.Unlock()
	h.cond.Signal()
}

// PushResize overwrites any pending resize (last-wins semantics).
func (h *Hub) PushResize(r Resize) {
	h.mu.Lock()
	h.resize = &r
	h.mu.Unlock()
	h.cond.Signal()
}

// PushPtyOutput marks the pty_output slot (a bool, not a queue: any
// number of writes between Recv calls coalesces into one wakeup).
func (h *Hub) PushPtyOutput() {
	h.mu.Lock()
	h.ptyOutput = true
	h.mu.Unlock()
	h.cond.Signal()
}

// PushClock marks the clock slot.
func (h *Hub) PushClock() {
	h.mu.Lock()
	h.clock = true
	h.mu.Unlock()
	h.cond.Signal()
}

// PushChildExit enqueues one child-exit notification.
func (h *Hub) PushChildExit(e ChildExit) {
	h.mu.Lock()
	h.childExits = append(h.childExits, e)
	h.mu.Unlock()
	h.cond.Signal()
}

// PushSuspend enqueues one child-suspend notification (the history
// entry at idx issued ChildSuspend, e.g. Ctrl-Z in the runner).
func (h *Hub) PushSuspend(idx int) {
	h.mu.Lock()
	h.suspends = append(h.suspends, idx)
	h.mu.Unlock()
	h.cond.Signal()
}

// PushGitInfo overwrites the pending git-status snapshot (last-wins,
// like Resize): kept as `any` (the caller's *gitwatch.Info) to avoid an
// import cycle between this low-level mailbox and the domain package
// that computes repository status.
func (h *Hub) PushGitInfo(info any) {
	h.mu.Lock()
	h.gitInfo = info
	h.mu.Unlock()
	h.cond.Signal()
}

// Close unblocks any pending or future Recv with an empty, already-
// drained Drained{} and false, for shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.cond.Broadcast()
}

// Recv blocks until any slot is non-empty (or the hub is closed), then
// drains and returns everything pending in one batch. The second
// return value is false only after Close.
func (h *Hub) Recv() (Drained, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for !h.closed && !h.pendingLocked() {
		h.cond.Wait()
	}
	if h.closed && !h.pendingLocked() {
		return Drained{}, false
	}

	d := Drained{
		Keys:       h.keys,
		Resize:     h.resize,
		PtyOutput:  h.ptyOutput,
		Clock:      h.clock,
		ChildExits: h.childExits,
		Suspends:   h.suspends,
		GitInfo:    h.gitInfo,
	}
	h.keys = nil
	h.resize = nil
	h.ptyOutput = false
	h.clock = false
	h.childExits = nil
	h.suspends = nil
	h.gitInfo = nil
	return d, true
}

func (h *Hub) pendingLocked() bool {
	return len(h.keys) > 0 || h.resize != nil || h.ptyOutput || h.clock ||
		len(h.childExits) > 0 || len(h.suspends) > 0 || h.gitInfo != nil
}
