// Command gsh is an interactive terminal shell with a multi-pane TUI:
// every foreground command gets its own scrollback-addressable history
// entry instead of scrolling the previous one off-screen. Adapted from
// dcosson-h2's cmd/h2 (internal/cmd.NewRootCmd's cobra tree, re-exec-
// self-as-subcommand pattern), cut down to this shell's much smaller
// surface: one interactive root command plus the hidden `_runner`
// re-exec mode spec.md §6 requires.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/gsh-project/gsh/internal/eval"
	"github.com/gsh-project/gsh/internal/eventhub"
	"github.com/gsh-project/gsh/internal/gshlog"
	"github.com/gsh-project/gsh/internal/histfile"
	"github.com/gsh-project/gsh/internal/history"
	"github.com/gsh-project/gsh/internal/parser"
	"github.com/gsh-project/gsh/internal/pipeline"
	"github.com/gsh-project/gsh/internal/rawterm"
	"github.com/gsh-project/gsh/internal/runner"
	"github.com/gsh-project/gsh/internal/shell"
	"github.com/gsh-project/gsh/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return exitCode
}

// exitCode carries the interactive session's/non-interactive run's
// process exit status out of cobra's RunE, which only returns error.
var exitCode int

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gsh",
		Short:         "An interactive terminal shell with a multi-pane history view",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive()
		},
	}
	root.AddCommand(newRunnerCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gsh version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Println(version.DisplayVersion())
			return nil
		},
	}
}

// newRunnerCmd wires the `_runner` re-exec mode (spec.md §6): every
// foreground pipeline a Controller starts forks `gsh _runner`, handing
// it a Request on fd 3 and a tty slave, and reads back Events on fd 4.
// Hidden because it's never invoked directly by a user.
func newRunnerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "_runner",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			exitCode = runner.RunInternalPipeRunner(os.NewFile(3, "req"), os.NewFile(4, "event"), os.Stdin)
			return nil
		},
	}
	return cmd
}

// runInteractive drives the full TUI session: raw terminal, event hub
// fed by keys/resize/clock/git watchers, a Controller draining it.
// Falls back to a single non-interactive pipeline run when stdin or
// stdout isn't a tty (e.g. `gsh < script.sh` or `gsh | less`), the way
// isatty-aware shells refuse to paint a UI onto a pipe.
func runInteractive() error {
	if !isatty.IsTerminal(os.Stdin.Fd()) || !isatty.IsTerminal(os.Stdout.Fd()) {
		return runNonInteractive()
	}

	log, cleanup, err := gshlog.New()
	if err != nil {
		return fmt.Errorf("gshlog: %w", err)
	}
	defer cleanup()

	selfExe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("os.Executable: %w", err)
	}

	if err := histfile.RecordSessionStart(histfile.Path(), os.Getpid(), time.Now()); err != nil {
		log.Warnw("record session start failed", "error", err)
	}

	env, err := eval.New()
	if err != nil {
		return fmt.Errorf("eval.New: %w", err)
	}

	term := rawterm.New(os.Stdin)
	if err := term.EnterRaw(); err != nil {
		return fmt.Errorf("enter raw mode: %w", err)
	}
	defer term.Restore()

	cols, rows, err := term.Size()
	if err != nil {
		return fmt.Errorf("term size: %w", err)
	}

	hub := eventhub.New()
	term.WatchResize(hub)
	defer term.Stop()
	go rawterm.ReadKeys(os.Stdin, hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go shell.StartClock(ctx, hub)
	go shell.StartGitWatch(ctx, hub, env.Pwd, 2*time.Second)

	h := history.New(selfExe)
	c := shell.New(hub, h, env, rows, cols, os.Stdout, log)

	if err := c.Run(); err != nil {
		exitCode = 1
		return err
	}
	exitCode = 0
	return nil
}

// runNonInteractive evaluates stdin as a single script against a fresh
// Env and exits with its final status, with no TUI and no history
// entries: the piped-input path spec.md's ambient stack never has to
// paint a screen for.
func runNonInteractive() error {
	src, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	cmds, err := parser.Parse(string(src))
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	env, err := eval.New()
	if err != nil {
		return fmt.Errorf("eval.New: %w", err)
	}

	stdio := pipeline.Stdio{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
	runFn := runner.RealPipelineRunner(stdio, nil)

	if err := runner.Eval(context.Background(), cmds, env, runFn); err != nil {
		return fmt.Errorf("eval: %w", err)
	}

	if env.Status.HasSignal {
		exitCode = 128 + env.Status.Signal
	} else {
		exitCode = env.Status.Code
	}
	return nil
}
