package runner

import (
	"context"
	"fmt"
	"os"

	"github.com/gsh-project/gsh/internal/ast"
	"github.com/gsh-project/gsh/internal/eval"
	"github.com/gsh-project/gsh/internal/pipeline"
)

// PipelineRunFunc runs one resolved Pipeline and returns its Outcome;
// factored out so tests can substitute a fake instead of forking real
// processes, and so the `_runner` driver can inject one that also
// reports RunPipeline/Suspend/Exit wire events around each call.
type PipelineRunFunc func(ctx context.Context, p ast.Pipeline, env *eval.Env) (pipeline.Outcome, error)

// RealPipelineRunner builds a PipelineRunFunc that spawns real
// processes via internal/pipeline, wired to the given stdio/tty.
func RealPipelineRunner(stdio pipeline.Stdio, tty *os.File) PipelineRunFunc {
	return func(ctx context.Context, p ast.Pipeline, env *eval.Env) (pipeline.Outcome, error) {
		return pipeline.Run(ctx, p, env, stdio, tty)
	}
}

// Eval runs cmds against env using run for every pipeline it needs to
// execute, implementing spec.md §4.6's control-flow frame stack. It
// returns once execution reaches the end of cmds.Items, or immediately
// on the first pipeline.Run error (a process-spawn failure, not a
// nonzero exit — nonzero exits are ordinary control flow).
func Eval(ctx context.Context, cmds *ast.Commands, env *eval.Env, run PipelineRunFunc) error {
	var stack []frame
	pc := 0

	for pc < len(cmds.Items) {
		cmd := cmds.Items[pc]
		executing := allExecuting(stack)

		switch cmd.Kind {
		case ast.CmdPipeline:
			if executing {
				outcome, err := run(ctx, cmd.Pipeline, env)
				if err != nil {
					return fmt.Errorf("pc %d: %w", pc, err)
				}
				if outcome.Suspended {
					return nil
				}
				env.Status = outcome.Status
			}
			pc++

		case ast.CmdIf:
			if !executing {
				stack = append(stack, frame{kind: frameIf})
				pc++
				continue
			}
			savedStatus := env.Status
			outcome, err := run(ctx, cmd.Pipeline, env)
			if err != nil {
				return fmt.Errorf("pc %d: %w", pc, err)
			}
			if outcome.Suspended {
				return nil
			}
			success := outcome.Status.Success()
			env.Status = savedStatus
			stack = append(stack, frame{kind: frameIf, executing: success, matched: success})
			pc++

		case ast.CmdElse:
			if len(stack) == 0 || stack[len(stack)-1].kind != frameIf {
				return fmt.Errorf("pc %d: else without matching if", pc)
			}
			top := &stack[len(stack)-1]
			parentExecuting := allExecuting(stack[:len(stack)-1])
			switch {
			case !parentExecuting:
				top.executing = false
			case top.matched:
				top.executing = false
			case !cmd.HasPipeline:
				top.executing = true
				top.matched = true
			default:
				savedStatus := env.Status
				outcome, err := run(ctx, cmd.Pipeline, env)
				if err != nil {
					return fmt.Errorf("pc %d: %w", pc, err)
				}
				if outcome.Suspended {
					return nil
				}
				success := outcome.Status.Success()
				env.Status = savedStatus
				top.executing = success
				top.matched = success
			}
			pc++

		case ast.CmdWhile:
			if !executing {
				pc = skipBlock(cmds.Items, pc)
				continue
			}
			if len(stack) == 0 || stack[len(stack)-1].kind != frameWhile || stack[len(stack)-1].startPC != pc {
				stack = append(stack, frame{kind: frameWhile, startPC: pc})
			}
			top := &stack[len(stack)-1]
			savedStatus := env.Status
			outcome, err := run(ctx, cmd.Pipeline, env)
			if err != nil {
				return fmt.Errorf("pc %d: %w", pc, err)
			}
			if outcome.Suspended {
				return nil
			}
			top.executing = outcome.Status.Success()
			env.Status = savedStatus
			pc++

		case ast.CmdFor:
			top := topFor(stack, pc)
			if top == nil {
				words, err := eval.Words(cmd.ForWords, env)
				if err != nil {
					return fmt.Errorf("pc %d: %w", pc, err)
				}
				stack = append(stack, frame{kind: frameFor, startPC: pc, remaining: words, forVar: cmd.ForVar})
				top = &stack[len(stack)-1]
			}
			if !allExecuting(stack[:len(stack)-1]) {
				stack = stack[:len(stack)-1]
				pc = skipBlock(cmds.Items, pc)
				continue
			}
			if len(top.remaining) == 0 {
				top.executing = false
			} else {
				env.SetVar(top.forVar, top.remaining[0])
				top.remaining = top.remaining[1:]
				top.executing = true
			}
			pc++

		case ast.CmdEnd:
			if len(stack) == 0 {
				return fmt.Errorf("pc %d: end without matching block", pc)
			}
			top := stack[len(stack)-1]
			switch top.kind {
			case frameWhile, frameFor:
				if top.executing {
					pc = top.startPC
					continue
				}
				stack = stack[:len(stack)-1]
				pc++
			default: // frameIf
				stack = stack[:len(stack)-1]
				pc++
			}

		default:
			return fmt.Errorf("pc %d: unknown command kind %v", pc, cmd.Kind)
		}
	}
	return nil
}

func topFor(stack []frame, pc int) *frame {
	if len(stack) == 0 {
		return nil
	}
	top := &stack[len(stack)-1]
	if top.kind == frameFor && top.startPC == pc {
		return top
	}
	return nil
}

// skipBlock advances pc past a while/for block reached while an
// enclosing frame is not executing, so neither the loop's own frame nor
// its nested If/While/For frames are pushed and its body is never
// evaluated. It scans forward counting nested block-openers against
// `end`.
func skipBlock(items []ast.Command, pc int) int {
	depth := 0
	for i := pc + 1; i < len(items); i++ {
		switch items[i].Kind {
		case ast.CmdIf, ast.CmdWhile, ast.CmdFor:
			depth++
		case ast.CmdEnd:
			if depth == 0 {
				return i + 1
			}
			depth--
		}
	}
	return len(items)
}
