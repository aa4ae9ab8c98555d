// Package builtin implements the shell's in-process commands: cd,
// setenv, unsetenv, echo, read, and, or, command, builtin (spec.md
// §4.3). Each runs synchronously inside the goroutine internal/child
// spawns for it, reading/writing through the Stdio handles it's given
// rather than the process's real stdin/stdout/stderr.
package builtin

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/gsh-project/gsh/internal/ast"
	"github.com/gsh-project/gsh/internal/eval"
)

// Stdio is the set of handles a built-in reads/writes through.
type Stdio struct {
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

func (s Stdio) out() io.Writer {
	if s.Stdout != nil {
		return s.Stdout
	}
	return os.Stdout
}

func (s Stdio) errw() io.Writer {
	if s.Stderr != nil {
		return s.Stderr
	}
	return os.Stderr
}

func (s Stdio) in() io.Reader {
	if s.Stdin != nil {
		return s.Stdin
	}
	return os.Stdin
}

// Names lists every registered built-in, for `command`/`builtin` name
// resolution and for the parser-adjacent "is this word a built-in"
// check the evaluator performs before deciding External vs Builtin.
var Names = map[string]bool{
	"cd":       true,
	"setenv":   true,
	"unsetenv": true,
	"echo":     true,
	"read":     true,
	"and":      true,
	"or":       true,
	"command":  true,
	"builtin":  true,
}

// Run dispatches to the named built-in, given the already-evaluated
// Exe (prog/args parsed from the pipeline) and the pipeline's Env. It
// returns the process-style exit code the runner should fold into the
// stage's ExitResult.
func Run(name string, exe ast.Exe, env *eval.Env, io Stdio) int {
	switch name {
	case "cd":
		return runCd(exe, env, io)
	case "setenv":
		return runSetenv(exe, env, io)
	case "unsetenv":
		return runUnsetenv(exe, env, io)
	case "echo":
		return runEcho(exe, env, io)
	case "read":
		return runRead(exe, env, io)
	case "and":
		return runAnd(exe, env, io)
	case "or":
		return runOr(exe, env, io)
	case "command":
		return runCommand(exe, env, io)
	case "builtin":
		return runBuiltin(exe, env, io)
	default:
		fmt.Fprintf(io.errw(), "gsh: no such builtin: %s\n", name)
		return 127
	}
}

func evalArgs(exe ast.Exe, env *eval.Env) ([]string, error) {
	return eval.Words(exe.Args, env)
}

func runCd(exe ast.Exe, env *eval.Env, io Stdio) int {
	args, err := evalArgs(exe, env)
	if err != nil {
		fmt.Fprintf(io.errw(), "cd: %v\n", err)
		return 1
	}

	var target string
	switch {
	case len(args) == 0:
		home, err := eval.ExpandTilde("~")
		if err != nil {
			fmt.Fprintf(io.errw(), "cd: %v\n", err)
			return 1
		}
		target = home
	case args[0] == "-":
		target = env.PrevPwd
	default:
		target = args[0]
	}

	if err := env.Chdir(target); err != nil {
		fmt.Fprintf(io.errw(), "cd: %s: %v\n", target, err)
		return 1
	}
	return 0
}

func runSetenv(exe ast.Exe, env *eval.Env, io Stdio) int {
	args, err := evalArgs(exe, env)
	if err != nil {
		fmt.Fprintf(io.errw(), "setenv: %v\n", err)
		return 1
	}
	if len(args) != 2 {
		fmt.Fprintln(io.errw(), "setenv: usage: setenv NAME VALUE")
		return 1
	}
	env.SetVar(args[0], args[1])
	return 0
}

func runUnsetenv(exe ast.Exe, env *eval.Env, io Stdio) int {
	args, err := evalArgs(exe, env)
	if err != nil {
		fmt.Fprintf(io.errw(), "unsetenv: %v\n", err)
		return 1
	}
	if len(args) != 1 {
		fmt.Fprintln(io.errw(), "unsetenv: usage: unsetenv NAME")
		return 1
	}
	env.UnsetVar(args[0])
	return 0
}

func runEcho(exe ast.Exe, env *eval.Env, io Stdio) int {
	args, err := evalArgs(exe, env)
	if err != nil {
		fmt.Fprintf(io.errw(), "echo: %v\n", err)
		return 1
	}
	fmt.Fprintln(io.out(), strings.Join(args, " "))
	return 0
}

func runRead(exe ast.Exe, env *eval.Env, io Stdio) int {
	args, err := evalArgs(exe, env)
	if err != nil {
		fmt.Fprintf(io.errw(), "read: %v\n", err)
		return 1
	}
	if len(args) != 1 {
		fmt.Fprintln(io.errw(), "read: usage: read NAME")
		return 1
	}
	line, err := readLine(io.in())
	if err != nil {
		fmt.Fprintf(io.errw(), "read: %v\n", err)
		return 1
	}
	env.SetVar(args[0], line)
	if len(line) == 0 {
		return 1
	}
	return 0
}

// readLine reads r one byte at a time up to and including '\n' (which
// is stripped), returning what it saw so far on EOF. stdin may be
// shared with a later pipeline stage, so this never reads ahead past
// the line it's asked for (spec §4.3; original_source's
// read_line_stdin has the same constraint, reading fh.bytes() one
// byte at a time for exactly this reason — bufio.Scanner's 64 KB
// lookahead would steal that stage's input).
func readLine(r io.Reader) (string, error) {
	var line []byte
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				return string(line), nil
			}
			line = append(line, buf[0])
		}
		if err != nil {
			if err == io.EOF {
				return string(line), nil
			}
			return string(line), err
		}
	}
}

// runAnd/runOr implement spec §4.3's short-circuit-on-status built-ins:
// `and cmd...` / `or cmd...` treat their arguments as a nested Exe to
// run only when the previous stage's status does/doesn't indicate
// success. Since the pipeline runner gives each built-in only its own
// Exe, the nested command is re-dispatched through Run directly rather
// than round-tripping through the parser.
func runAnd(exe ast.Exe, env *eval.Env, io Stdio) int {
	if !env.Status.Success() {
		return env.Status.Code
	}
	return runNested(exe, env, io)
}

func runOr(exe ast.Exe, env *eval.Env, io Stdio) int {
	if env.Status.Success() {
		return env.Status.Code
	}
	return runNested(exe, env, io)
}

func runNested(exe ast.Exe, env *eval.Env, io Stdio) int {
	args, err := evalArgs(exe, env)
	if err != nil {
		fmt.Fprintf(io.errw(), "%v\n", err)
		return 1
	}
	if len(args) == 0 {
		return 0
	}
	name, rest := args[0], args[1:]
	nested := ast.Exe{Prog: ast.Word{Parts: []ast.Part{{Kind: ast.Bareword, Text: name}}}}
	for _, a := range rest {
		nested.Args = append(nested.Args, ast.Word{Parts: []ast.Part{{Kind: ast.SingleQuoted, Text: a}}})
	}
	if Names[name] {
		return Run(name, nested, env, io)
	}
	return runExternalInline(name, rest, env, io)
}

// runCommand bypasses any built-in of the same name and always runs an
// external binary (spec §4.3's `command` escape hatch).
func runCommand(exe ast.Exe, env *eval.Env, io Stdio) int {
	args, err := evalArgs(exe, env)
	if err != nil {
		fmt.Fprintf(io.errw(), "command: %v\n", err)
		return 1
	}
	if len(args) == 0 {
		fmt.Fprintln(io.errw(), "command: usage: command NAME [ARGS...]")
		return 1
	}
	return runExternalInline(args[0], args[1:], env, io)
}

// runBuiltin forces dispatch to a named built-in even if shadowed,
// erroring if the name isn't registered.
func runBuiltin(exe ast.Exe, env *eval.Env, io Stdio) int {
	args, err := evalArgs(exe, env)
	if err != nil {
		fmt.Fprintf(io.errw(), "builtin: %v\n", err)
		return 1
	}
	if len(args) == 0 {
		fmt.Fprintln(io.errw(), "builtin: usage: builtin NAME [ARGS...]")
		return 1
	}
	name := args[0]
	if !Names[name] {
		fmt.Fprintf(io.errw(), "builtin: not a builtin: %s\n", name)
		return 1
	}
	nested := ast.Exe{Prog: ast.Word{Parts: []ast.Part{{Kind: ast.Bareword, Text: name}}}}
	for _, a := range args[1:] {
		nested.Args = append(nested.Args, ast.Word{Parts: []ast.Part{{Kind: ast.SingleQuoted, Text: a}}})
	}
	return Run(name, nested, env, io)
}

func runExternalInline(name string, args []string, env *eval.Env, io Stdio) int {
	path, err := exec.LookPath(name)
	if err != nil {
		fmt.Fprintf(io.errw(), "%s: command not found\n", name)
		return 127
	}
	cmd := exec.Command(path, args...)
	cmd.Stdin = io.in().(*os.File)
	cmd.Stdout = io.out().(*os.File)
	cmd.Stderr = io.errw().(*os.File)
	cmd.Dir = env.Pwd
	if err := cmd.Run(); err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			return ee.ExitCode()
		}
		fmt.Fprintf(io.errw(), "%s: %v\n", name, err)
		return 1
	}
	return 0
}
