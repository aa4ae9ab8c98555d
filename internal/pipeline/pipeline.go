// Package pipeline runs one ast.Pipeline to completion: spawning each
// stage (external or built-in), connecting them with pipes, installing
// them in a single process group, handing that group the controlling
// terminal for the duration of the run, and waiting for every stage
// while watching for SIGTSTP (suspend) and SIGINT (interrupt) — spec.md
// §4.5.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"reflect"
	"syscall"

	"github.com/gsh-project/gsh/internal/ast"
	"github.com/gsh-project/gsh/internal/builtin"
	"github.com/gsh-project/gsh/internal/child"
	"github.com/gsh-project/gsh/internal/eval"
	"github.com/gsh-project/gsh/internal/pgroup"
)

// Outcome is what running a pipeline produced: either a final Status
// (every stage finished) or a request to suspend the whole pipeline
// (SIGTSTP arrived while stages were still running).
type Outcome struct {
	Status      eval.Status
	Suspended   bool
	Interrupted bool
}

// Stdio is the pipeline's outer stdio: the first stage's stdin, the
// last stage's stdout, and every stage's stderr (unredirected stages
// share it, matching a real shell's pipeline semantics).
type Stdio struct {
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

// Run spawns every Exe in p, wires pipes between consecutive stages,
// places the whole group in one process group led by the first stage,
// and gives tty's foreground to that group for the duration of the
// run. It returns once every stage has exited, or as soon as SIGTSTP
// arrives (Outcome.Suspended); a SIGINT is forwarded to the group and
// the stages are still waited for.
func Run(ctx context.Context, p ast.Pipeline, env *eval.Env, stdio Stdio, tty *os.File) (Outcome, error) {
	n := len(p.Exes)
	if n == 0 {
		return Outcome{Status: eval.Status{Code: 0}}, nil
	}

	readEnds, writeEnds, err := makePipes(n - 1)
	if err != nil {
		return Outcome{}, err
	}
	defer closeAll(readEnds)
	defer closeAll(writeEnds)

	cmds := make([]*child.Command, n)
	for i, exe := range p.Exes {
		cmd, err := buildCommand(exe, env)
		if err != nil {
			return Outcome{}, err
		}

		in := stdio.Stdin
		if i > 0 {
			in = readEnds[i-1]
		}
		out := stdio.Stdout
		if i < n-1 {
			out = writeEnds[i]
		}
		cmd.SetStdio(child.Stdio{Stdin: in, Stdout: out, Stderr: stdio.Stderr})

		redirects, err := child.ResolveRedirects(exe.Redirects, env)
		if err != nil {
			return Outcome{}, fmt.Errorf("stage %d: %w", i, err)
		}
		cmd.ApplyRedirects(redirects)

		cmds[i] = cmd
	}

	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, syscall.SIGTSTP, syscall.SIGINT)
	defer signal.Stop(sigCh)

	children := make([]*child.Child, n)
	var pgid int
	for i, cmd := range cmds {
		if pgid != 0 {
			cmd.SetProcessGroup(pgid)
		} else {
			cmd.SetProcessGroup(0)
		}
		c, err := cmd.Spawn(ctx, env)
		if err != nil {
			return Outcome{}, fmt.Errorf("spawn stage %d: %w", i, err)
		}
		children[i] = c
		if pgid == 0 {
			if pid, ok := c.ID(); ok {
				pgid = pid
				pgroup.Setpgid(pid, pid)
			}
		} else if pid, ok := c.ID(); ok {
			pgroup.Setpgid(pid, pgid)
		}
	}

	// os/exec never closes caller-supplied *os.File stdio, so the
	// parent's copies of every inter-stage pipe end are still open
	// here even though each child inherited its own. Close them now,
	// before wait(): a downstream stage's read end never sees EOF
	// while the parent also holds its write end open, so leaving this
	// for the deferred closeAll below (which only runs after wait
	// returns) deadlocks every multi-stage pipeline.
	closeAll(readEnds)
	closeAll(writeEnds)

	if pgid != 0 {
		pgroup.SetForeground(tty, pgid)
		defer pgroup.SetForeground(tty, os.Getpid())
	}

	return wait(children, sigCh, pgid)
}

// wait blocks until every stage has exited or until SIGTSTP arrives
// (SIGINT is forwarded to the group and waiting continues), fanning in an arbitrary number of Done channels via
// reflect.Select since a pipeline's stage count isn't known at compile
// time.
func wait(children []*child.Child, sigCh <-chan os.Signal, pgid int) (Outcome, error) {
	results := make([]*child.ExitResult, len(children))
	remaining := len(children)

	for remaining > 0 {
		cases := make([]reflect.SelectCase, 0, len(children)+1)
		cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(sigCh)})
		idxOf := make([]int, 0, len(children))
		for i, c := range children {
			if results[i] != nil {
				continue
			}
			cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(c.Done())})
			idxOf = append(idxOf, i)
		}

		chosen, value, ok := reflect.Select(cases)
		if !ok {
			continue
		}
		if chosen == 0 {
			sig, _ := value.Interface().(os.Signal)
			switch sig {
			case syscall.SIGTSTP:
				// Suspend is a UI signal, not an actual job-control
				// stop (spec §4.5 step 6): the pipeline keeps running
				// in the background while focus returns to readline.
				// The tty driver already delivered SIGTSTP to the
				// whole foreground group, and unlike this process
				// (which caught it via signal.Notify) the children
				// don't handle it, so the kernel's default action
				// stops them the instant it's delivered — SIGCONT
				// undoes that immediately instead of letting it stand.
				if pgid != 0 {
					syscall.Kill(-pgid, syscall.SIGCONT)
				}
				return Outcome{Suspended: true}, nil
			case syscall.SIGINT:
				if pgid != 0 {
					syscall.Kill(-pgid, syscall.SIGINT)
				}
			}
			continue
		}

		i := idxOf[chosen-1]
		res, _ := value.Interface().(child.ExitResult)
		results[i] = &res
		remaining--
	}

	last := results[len(results)-1]
	status := eval.Status{Code: last.Code, HasSignal: last.HasSignal, Signal: int(last.Signal)}
	return Outcome{Status: status}, nil
}

func buildCommand(exe ast.Exe, env *eval.Env) (*child.Command, error) {
	prog, err := eval.Word(exe.Prog, env)
	if err != nil {
		return nil, err
	}
	args, err := eval.Words(exe.Args, env)
	if err != nil {
		return nil, err
	}

	if builtin.Names[prog] && prog != "command" {
		return child.NewBuiltin(prog, exe), nil
	}
	if prog == "command" || prog == "builtin" {
		return child.NewBuiltin(prog, exe), nil
	}

	path, err := exec.LookPath(prog)
	if err != nil {
		return nil, fmt.Errorf("%s: command not found", prog)
	}
	return child.NewExternal(path, append([]string{prog}, args...)), nil
}

func makePipes(n int) (reads, writes []*os.File, err error) {
	reads = make([]*os.File, n)
	writes = make([]*os.File, n)
	for i := 0; i < n; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			return reads, writes, err
		}
		reads[i] = r
		writes[i] = w
	}
	return reads, writes, nil
}

func closeAll(files []*os.File) {
	for _, f := range files {
		if f != nil {
			f.Close()
		}
	}
}
