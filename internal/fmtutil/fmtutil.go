// Package fmtutil formats the small pieces of text the status bar and
// prompt render: exit status, clock time, and elapsed duration. The
// three formats are carried over from original_source/src/format.rs,
// a feature the distilled spec.md left out of its scope but which a
// complete shell's status bar needs.
package fmtutil

import (
	"fmt"
	"syscall"
	"time"
)

// ExitStatus renders an eval.Status-shaped result the way the status
// bar displays it: a 3-digit zero-padded code, or the signal's short
// name, both followed by a trailing space pad to a fixed width.
func ExitStatus(code int, hasSignal bool, signal int) string {
	if !hasSignal {
		return fmt.Sprintf("%03d  ", code)
	}
	if short, ok := shortSignalNames[signal]; ok {
		return fmt.Sprintf("%-4s ", short)
	}
	return fmt.Sprintf("SIG%d ", signal)
}

var shortSignalNames = map[int]string{
	int(syscall.SIGHUP):  "HUP",
	int(syscall.SIGINT):  "INT",
	int(syscall.SIGQUIT): "QUIT",
	int(syscall.SIGILL):  "ILL",
	int(syscall.SIGTRAP): "TRAP",
	int(syscall.SIGABRT): "ABRT",
	int(syscall.SIGBUS):  "BUS",
	int(syscall.SIGFPE):  "FPE",
	int(syscall.SIGKILL): "KILL",
	int(syscall.SIGUSR1): "USR1",
	int(syscall.SIGSEGV): "SEGV",
	int(syscall.SIGUSR2): "USR2",
	int(syscall.SIGPIPE): "PIPE",
	int(syscall.SIGALRM): "ALRM",
	int(syscall.SIGTERM): "TERM",
	int(syscall.SIGTSTP): "TSTP",
	int(syscall.SIGCONT): "CONT",
	int(syscall.SIGCHLD): "CHLD",
}

// Clock renders a time.Time as "HH:MM:SS" for the status bar clock.
func Clock(t time.Time) string {
	return t.Format("15:04:05")
}

// Duration renders an elapsed duration at decreasing precision as it
// grows, matching original_source/src/format.rs's thresholds: minutes
// and seconds past a minute, two decimal places past 9s, three past
// 0s, then ms/us/ns for sub-second durations.
func Duration(d time.Duration) string {
	secs := int64(d / time.Second)
	nanos := int64(d % time.Second)

	switch {
	case secs > 60:
		mins := secs / 60
		rem := secs - mins*60
		return fmt.Sprintf("%dm%ds", mins, rem)
	case secs > 9:
		return fmt.Sprintf("%d.%02ds", secs, nanos/10_000_000)
	case secs > 0:
		return fmt.Sprintf("%d.%03ds", secs, nanos/1_000_000)
	case nanos >= 1_000_000:
		return fmt.Sprintf("%dms", nanos/1_000_000)
	case nanos >= 1_000:
		return fmt.Sprintf("%dus", nanos/1_000)
	default:
		return fmt.Sprintf("%dns", nanos)
	}
}
