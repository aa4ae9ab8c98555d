// Package eval resolves a parsed ast.Commands against an Env: word
// interpolation, escaping, tilde expansion, and the process-local
// mutable state (pwd, prev pwd, variables, latest exit status, entry
// index) spec.md §3 and §4.2 describe.
package eval

import (
	"fmt"
	"os"
)

// Status is the outcome of the most recently completed foreground
// pipeline: either a process exit code or the signal number it died
// from, never both.
type Status struct {
	Code       int
	HasSignal  bool
	Signal     int
}

// Success reports whether the status represents a zero exit with no
// signal — the condition `and`/`or`/`if`/`while` branch on.
func (s Status) Success() bool {
	return !s.HasSignal && s.Code == 0
}

// Env is the shell's process-local mutable state (spec.md §3). It is
// cloned by value into each spawned pipeline and, on completion,
// replaced wholesale by the Env the runner child reports back.
type Env struct {
	Pwd     string
	PrevPwd string
	Vars    map[string]string
	Status  Status
	Idx     int
}

// New builds an Env from the real process environment, the way a fresh
// shell process starts up.
func New() (*Env, error) {
	pwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getwd: %w", err)
	}
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				vars[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return &Env{
		Pwd:     pwd,
		PrevPwd: pwd,
		Vars:    vars,
		Idx:     1,
	}, nil
}

// Clone deep-copies e so a pipeline run can mutate its own copy without
// racing the controller's copy.
func (e *Env) Clone() *Env {
	vars := make(map[string]string, len(e.Vars))
	for k, v := range e.Vars {
		vars[k] = v
	}
	cp := *e
	cp.Vars = vars
	return &cp
}

// Getenv resolves a variable reference: the Env's own vars table first,
// then the real process environment, defaulting to empty string (spec
// §4.2).
func (e *Env) Getenv(name string) string {
	if v, ok := e.Vars[name]; ok {
		return v
	}
	return os.Getenv(name)
}

// SetVar sets a shell variable and mirrors it into the real process
// environment so child processes spawned via os/exec inherit it without
// an explicit env-overrides list for every stage.
func (e *Env) SetVar(name, value string) {
	if e.Vars == nil {
		e.Vars = make(map[string]string)
	}
	e.Vars[name] = value
	os.Setenv(name, value)
}

// UnsetVar removes a shell variable, mirroring the removal into the
// real process environment.
func (e *Env) UnsetVar(name string) {
	delete(e.Vars, name)
	os.Unsetenv(name)
}

// Chdir updates Pwd/PrevPwd and the real process's working directory.
func (e *Env) Chdir(dir string) error {
	if err := os.Chdir(dir); err != nil {
		return err
	}
	abs, err := os.Getwd()
	if err != nil {
		return err
	}
	e.PrevPwd = e.Pwd
	e.Pwd = abs
	return nil
}
