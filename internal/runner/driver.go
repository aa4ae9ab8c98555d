package runner

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/gsh-project/gsh/internal/ast"
	"github.com/gsh-project/gsh/internal/eval"
	"github.com/gsh-project/gsh/internal/parser"
	"github.com/gsh-project/gsh/internal/pipeline"
	"github.com/gsh-project/gsh/internal/wire"
)

// RunInternalPipeRunner implements the `_runner` re-exec mode (spec.md
// §6): read a Request off fd 3, parse its Source, evaluate it against
// its Env via Eval, emitting RunPipeline/Suspend/Exit wire.Events to
// fd 4 around every pipeline it runs, then return the exit code the
// process should terminate with.
func RunInternalPipeRunner(reqFD, eventFD *os.File, tty *os.File) int {
	req, err := wire.ReadRequest(reqFD)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gsh: _runner: read request: %v\n", err)
		return 1
	}

	cmds, err := parser.Parse(req.Source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gsh: _runner: parse: %v\n", err)
		return 1
	}

	env := req.Env
	ew := bufio.NewWriter(eventFD)
	defer ew.Flush()

	run := func(ctx context.Context, p ast.Pipeline, e *eval.Env) (pipeline.Outcome, error) {
		wire.WriteEvent(ew, wire.RunPipeline(e.Idx, p.Span[0], p.Span[1]))
		ew.Flush()

		stdio := pipeline.Stdio{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
		outcome, err := pipeline.Run(ctx, p, e, stdio, tty)
		if err != nil {
			return outcome, err
		}
		if outcome.Suspended {
			wire.WriteEvent(ew, wire.Suspend(e.Idx))
			ew.Flush()
		}
		return outcome, nil
	}

	evalErr := Eval(context.Background(), cmds, env, run)

	wire.WriteEvent(ew, wire.Exit(env))
	ew.Flush()

	if evalErr != nil {
		fmt.Fprintf(os.Stderr, "gsh: _runner: %v\n", evalErr)
		return 1
	}
	if env.Status.HasSignal {
		return 128 + env.Status.Signal
	}
	return env.Status.Code
}
