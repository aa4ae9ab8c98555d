// Package pgroup wraps the POSIX process-group and terminal-control
// primitives spec.md §4.5 requires for foreground job control: placing
// a pipeline's processes into their own group, handing the controlling
// terminal to that group, and restoring it to the shell afterward.
package pgroup

import (
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// SetForeground makes pgid the terminal's foreground process group.
// SIGTTOU is ignored for the duration of the ioctl since the caller
// (the runner, handing the terminal off to a pipeline it just spawned)
// is not itself guaranteed to be the current foreground group, and the
// kernel raises SIGTTOU against a background writer attempting
// tcsetpgrp otherwise (spec.md §4.5).
func SetForeground(tty *os.File, pgid int) error {
	if tty == nil {
		return nil
	}
	restore := ignoreSIGTTOU()
	defer restore()
	return unix.IoctlSetInt(int(tty.Fd()), unix.TIOCSPGRP, pgid)
}

// Foreground returns the terminal's current foreground process group.
func Foreground(tty *os.File) (int, error) {
	return unix.IoctlGetInt(int(tty.Fd()), unix.TIOCGPGRP)
}

// Setpgid places pid into the process group led by pgid (pgid 0 means
// "pid becomes its own group leader"). Used by the runner right after
// forking a stage, before any of the stages can write to the terminal,
// closing the race tcsetpgrp would otherwise have against exec.
func Setpgid(pid, pgid int) error {
	return unix.Setpgid(pid, pgid)
}

func ignoreSIGTTOU() func() {
	signal.Ignore(syscall.SIGTTOU)
	return func() {
		// Neither Stop nor Reset lifts an Ignore; a fresh Notify does,
		// and the Stop after it only drops the channel.
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTTOU)
		signal.Stop(ch)
	}
}
