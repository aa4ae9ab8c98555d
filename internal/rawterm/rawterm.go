// Package rawterm puts the controlling terminal into raw mode for the
// shell's interactive UI and feeds terminal-level events (key bytes,
// SIGWINCH resizes) into an internal/eventhub.Hub. Adapted from
// dcosson-h2's internal/renderref (Client.Run's term.MakeRaw/
// WatchResize/ReadInput setup), generalized from "write handler calls
// directly" to "push onto the shared event hub" since this shell's
// controller drains one coalescing mailbox instead of holding a mutex
// across every I/O goroutine.
package rawterm

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/gsh-project/gsh/internal/eventhub"
)

// Terminal owns the raw-mode lifecycle of the controlling tty.
type Terminal struct {
	fd      int
	restore *term.State
	sigCh   chan os.Signal
	stopCh  chan struct{}
}

// New wraps the given file (normally os.Stdin) as the controlling tty.
func New(tty *os.File) *Terminal {
	return &Terminal{fd: int(tty.Fd())}
}

// Size returns the terminal's current columns and rows.
func (t *Terminal) Size() (cols, rows int, err error) {
	return term.GetSize(t.fd)
}

// EnterRaw puts the terminal into raw mode. Call Restore to undo it.
func (t *Terminal) EnterRaw() error {
	state, err := term.MakeRaw(t.fd)
	if err != nil {
		return fmt.Errorf("set raw mode: %w", err)
	}
	t.restore = state
	return nil
}

// Restore restores the terminal's original mode.
func (t *Terminal) Restore() error {
	if t.restore == nil {
		return nil
	}
	return term.Restore(t.fd, t.restore)
}

// WatchResize installs a SIGWINCH handler that pushes an
// eventhub.Resize for every resize signal. Call Stop to tear it down.
func (t *Terminal) WatchResize(hub *eventhub.Hub) {
	t.sigCh = make(chan os.Signal, 1)
	t.stopCh = make(chan struct{})
	signal.Notify(t.sigCh, syscall.SIGWINCH)
	go func() {
		for {
			select {
			case <-t.sigCh:
				cols, rows, err := t.Size()
				if err != nil {
					continue
				}
				hub.PushResize(eventhub.Resize{Rows: rows, Cols: cols})
			case <-t.stopCh:
				return
			}
		}
	}()
}

// Stop tears down the SIGWINCH watcher.
func (t *Terminal) Stop() {
	if t.sigCh != nil {
		signal.Stop(t.sigCh)
	}
	if t.stopCh != nil {
		close(t.stopCh)
	}
}

// ReadKeys reads raw input bytes from src and pushes each one onto the
// hub as a key event. Runs until src returns an error (typically the
// reader side closing at shutdown).
func ReadKeys(src *os.File, hub *eventhub.Hub) {
	buf := make([]byte, 256)
	for {
		n, err := src.Read(buf)
		for i := 0; i < n; i++ {
			hub.PushKey(buf[i])
		}
		if err != nil {
			return
		}
	}
}
