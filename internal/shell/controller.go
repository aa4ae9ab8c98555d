// Package shell implements the UI controller spec.md §4.9 describes:
// a single-threaded event loop over internal/eventhub that owns the
// readline buffer, the command history, the git-status prompt segment,
// and the focus/scene state machine, producing a screen buffer that is
// a pure function of that state. Adapted from dcosson-h2's
// internal/renderref (internal/session/overlay)'s Client: same
// responsibilities (own input, own VT(s), drive the render), rebuilt
// around a coalescing event hub and N independent history entries
// instead of one Client struct mutated directly from several
// goroutines under a single mutex.
package shell

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gsh-project/gsh/internal/eval"
	"github.com/gsh-project/gsh/internal/eventhub"
	"github.com/gsh-project/gsh/internal/fmtutil"
	"github.com/gsh-project/gsh/internal/gitwatch"
	"github.com/gsh-project/gsh/internal/histfile"
	"github.com/gsh-project/gsh/internal/history"
	"github.com/gsh-project/gsh/internal/readline"
)

// Controller owns all UI state (spec.md §4.9's `{readline, history, env,
// git_info, focus, scene, escape_pending, hide_readline}`).
type Controller struct {
	hub      *eventhub.Hub
	history  *history.History
	readline *readline.Buffer
	env      *eval.Env
	gitInfo  *gitwatch.Info

	focus         Focus
	scene         Scene
	escapePending bool
	hideReadline  bool
	needsClear    bool

	oldHistory         *histfile.Browser
	browsingOldHistory bool

	rows, cols int
	out        io.Writer
	log        *zap.SugaredLogger

	quit bool
}

// New builds a Controller ready to drive an interactive session. hub
// must be the same hub that rawterm.ReadKeys/WatchResize, the git
// watcher, and the clock ticker all push onto.
func New(hub *eventhub.Hub, h *history.History, env *eval.Env, rows, cols int, out io.Writer, log *zap.SugaredLogger) *Controller {
	return &Controller{
		hub:        hub,
		history:    h,
		readline:   readline.New(),
		env:        env,
		rows:       rows,
		cols:       cols,
		out:        out,
		log:        log,
		focus:      readlineFocus(),
		needsClear: true,
	}
}

// --- history.Sink implementation ---
//
// These methods run on the entry's own goroutines (eventLoop/PipeOutput),
// concurrently with Run's event loop, so they only ever push onto the
// hub — spec.md §5's locking rule ("never hold a lock across a channel
// send") applies symmetrically here: never touch Controller state
// outside Run's single-threaded loop.

// RunPipeline implements history.Sink. The Span itself is already
// recorded on the Entry by internal/history; this only wakes the loop
// so the next render reflects it.
func (c *Controller) RunPipeline(idx int, id uuid.UUID, spanStart, spanEnd int) {
	c.hub.PushPtyOutput()
}

// Suspend implements history.Sink.
func (c *Controller) Suspend(idx int, id uuid.UUID) {
	c.hub.PushSuspend(idx)
}

// Exit implements history.Sink. id is carried through to the hub so
// handleChildExit can tell a stale exit (reported against an idx the
// controller has since moved past) from a current one.
func (c *Controller) Exit(idx int, id uuid.UUID, env *eval.Env) {
	c.hub.PushChildExit(eventhub.ChildExit{Idx: idx, ID: id, Env: env})
}

// Output implements history.Sink.
func (c *Controller) Output(idx int, id uuid.UUID) {
	c.hub.PushPtyOutput()
}

// Run drains the event hub until Quit or the hub closes, rendering
// once per batch of coalesced events (spec.md §5: "a repaint coalesces
// all currently-ready events").
func (c *Controller) Run() error {
	c.flush(c.render())
	for {
		d, ok := c.hub.Recv()
		if !ok {
			return nil
		}
		c.apply(d)
		if c.quit {
			return nil
		}
		c.flush(c.render())
	}
}

func (c *Controller) flush(buf []byte) {
	if c.out == nil {
		return
	}
	c.out.Write(buf)
}

func (c *Controller) apply(d eventhub.Drained) {
	if len(d.Keys) > 0 {
		c.handleKeys(d.Keys)
	}
	if d.Resize != nil {
		c.handleResize(d.Resize.Rows, d.Resize.Cols)
	}
	if d.PtyOutput {
		c.recomputeScene()
	}
	for _, ce := range d.ChildExits {
		c.handleChildExit(ce)
	}
	for _, idx := range d.Suspends {
		c.handleSuspend(idx)
	}
	if info, ok := d.GitInfo.(*gitwatch.Info); ok {
		c.gitInfo = info
	}
	// d.Clock carries no state; its only effect is the repaint Run
	// already does after every apply.
}

// availableRows is the number of rows history gets to render into:
// the full screen minus the readline bar, unless it's hidden.
func (c *Controller) availableRows() int {
	if c.hideReadline {
		return c.rows
	}
	if c.rows <= 1 {
		return c.rows
	}
	return c.rows - 1
}

func (c *Controller) handleResize(rows, cols int) {
	c.rows, c.cols = rows, cols
	for _, e := range c.history.Entries {
		e.Resize(c.availableRows(), cols)
	}
	c.needsClear = true
}

func (c *Controller) handleSuspend(idx int) {
	if c.focus.Kind == FocusHistory && c.focus.Idx == idx {
		c.focus = readlineFocus()
	}
}

func (c *Controller) handleChildExit(ce eventhub.ChildExit) {
	if ce.Idx < 0 || ce.Idx >= len(c.history.Entries) || c.history.Entries[ce.Idx].ID != ce.ID {
		return // stale: this idx has been reused or the entry is gone
	}
	if c.focus.Kind != FocusHistory || c.focus.Idx != ce.Idx {
		return
	}
	if c.hideReadline {
		if env, ok := ce.Env.(*eval.Env); ok && env != nil {
			idx := c.env.Idx
			*c.env = *env
			c.env.Idx = idx
		}
		c.focus = readlineFocus()
	} else {
		c.focus = scrollingFocus(ce.Idx)
	}
	c.hideReadline = false
}

// focusedEntry returns the entry the current focus idx names, if any.
func (c *Controller) focusedEntry() (*history.Entry, bool) {
	if c.focus.Idx < 0 || c.focus.Idx >= len(c.history.Entries) {
		return nil, false
	}
	return c.history.Entries[c.focus.Idx], true
}

func (c *Controller) focusCursorRow() int {
	e, ok := c.focusedEntry()
	if !ok {
		return 0
	}
	e.VT.Mu.Lock()
	defer e.VT.Mu.Unlock()
	if e.VT.Vt == nil {
		return 0
	}
	return e.VT.Vt.Cursor.Y
}

// recomputeScene implements PtyOutput's "recompute scroll to keep
// focus visible; recompute scene (alternate-screen toggles drive
// Scene::Fullscreen)" (spec.md §4.9).
func (c *Controller) recomputeScene() {
	c.history.MakeFocusVisible(c.focus.Idx, c.availableRows(), c.focusCursorRow())

	c.scene = SceneReadline
	e, ok := c.focusedEntry()
	if !ok {
		return
	}
	fullscreen := e.VT.AltScreen
	if ov := e.FullscreenOverride(); ov != nil {
		fullscreen = *ov
	}
	if fullscreen {
		c.scene = SceneFullscreen
	}
}

// submit parses nothing itself (the runner child does): it just hands
// the raw line to history.Run and focuses the new entry, the way a
// freshly started foreground job takes the terminal (spec.md §4.8's
// Ctrl-M: "submit line if nonempty; new history entry").
func (c *Controller) submit() {
	line := c.readline.Submit()
	if line == "" {
		return
	}
	entry, err := c.history.Run(line, c.env, c.availableRows(), c.cols, c)
	if err != nil {
		if c.log != nil {
			c.log.Errorw("run entry failed", "line", line, "error", err)
		}
		return
	}
	c.focus = historyFocus(entry.Idx)
	c.history.MakeFocusVisible(entry.Idx, c.availableRows(), 0)
}

// promptString renders the pwd + git status segment shown to the left
// of the readline input (spec.md §0.2's supplemented GitInfo prompt).
func (c *Controller) promptString() string {
	pwd := "?"
	if c.env != nil {
		pwd = c.env.Pwd
	}
	s := pwd
	if c.gitInfo != nil {
		s += " " + formatGitInfo(c.gitInfo)
	}
	return s + " > "
}

func formatGitInfo(info *gitwatch.Info) string {
	if info.Branch == "" {
		return ""
	}
	s := "(" + info.Branch
	if info.Operation != gitwatch.OperationNone {
		s += "|" + operationLabel(info.Operation)
	}
	if info.Ahead > 0 {
		s += fmt.Sprintf(" ↑%d", info.Ahead)
	}
	if info.Behind > 0 {
		s += fmt.Sprintf(" ↓%d", info.Behind)
	}
	var dirty string
	if info.StagedFiles {
		dirty += "+"
	}
	if info.ModifiedFiles {
		dirty += "*"
	}
	if info.NewFiles {
		dirty += "?"
	}
	if dirty != "" {
		s += " " + dirty
	}
	return s + ")"
}

func operationLabel(op gitwatch.Operation) string {
	switch op {
	case gitwatch.OperationMerge:
		return "MERGE"
	case gitwatch.OperationRevert:
		return "REVERT"
	case gitwatch.OperationCherryPick:
		return "CHERRY-PICK"
	case gitwatch.OperationBisect:
		return "BISECT"
	case gitwatch.OperationRebase:
		return "REBASE"
	default:
		return ""
	}
}

// entryHeader formats an entry's one-line header: prompt, cmdline, its
// bell count once any BEL has arrived (spec.md §0.2's supplemented
// bell counters), and its exit status once finished
// (internal/fmtutil.ExitStatus, per spec.md §0.2's formatting-helpers
// supplement).
func entryHeader(e *history.Entry) string {
	header := "$ " + e.Cmdline
	e.VT.Mu.Lock()
	bells := e.VT.BellCount
	e.VT.Mu.Unlock()
	if bells > 0 {
		header += fmt.Sprintf(" (bell x%d)", bells)
	}
	if info := e.ExitInfo(); info != nil {
		header += " [" + fmtutil.ExitStatus(info.Status.Code, info.Status.HasSignal, info.Status.Signal) + "]"
	}
	return header
}
