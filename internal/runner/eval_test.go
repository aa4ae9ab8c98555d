package runner_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gsh-project/gsh/internal/ast"
	"github.com/gsh-project/gsh/internal/eval"
	"github.com/gsh-project/gsh/internal/pipeline"
	"github.com/gsh-project/gsh/internal/runner"
)

func prog(name string) ast.Pipeline {
	return ast.Pipeline{Exes: []ast.Exe{{Prog: ast.Word{Parts: []ast.Part{{Kind: ast.Bareword, Text: name}}}}}}
}

// fakeRunner records which pipelines were run, and resolves their
// status from a table keyed by the sole Exe's program name, so tests
// can script success/failure without spawning real processes.
type fakeRunner struct {
	ran      []string
	statuses map[string]eval.Status
}

func (f *fakeRunner) run(_ context.Context, p ast.Pipeline, env *eval.Env) (pipeline.Outcome, error) {
	name, _ := p.Exes[0].Prog.Literal()
	f.ran = append(f.ran, name)
	status, ok := f.statuses[name]
	if !ok {
		status = eval.Status{Code: 0}
	}
	return pipeline.Outcome{Status: status}, nil
}

func TestEvalIfTrueBranch(t *testing.T) {
	cmds := &ast.Commands{Items: []ast.Command{
		{Kind: ast.CmdIf, Pipeline: prog("true")},
		{Kind: ast.CmdPipeline, Pipeline: prog("body")},
		{Kind: ast.CmdEnd},
	}}
	env := &eval.Env{Vars: map[string]string{}}
	f := &fakeRunner{}
	require.NoError(t, runner.Eval(context.Background(), cmds, env, f.run))
	require.Equal(t, []string{"true", "body"}, f.ran)
}

func TestEvalIfFalseElseBranch(t *testing.T) {
	cmds := &ast.Commands{Items: []ast.Command{
		{Kind: ast.CmdIf, Pipeline: prog("false")},
		{Kind: ast.CmdPipeline, Pipeline: prog("then-body")},
		{Kind: ast.CmdElse},
		{Kind: ast.CmdPipeline, Pipeline: prog("else-body")},
		{Kind: ast.CmdEnd},
	}}
	env := &eval.Env{Vars: map[string]string{}}
	f := &fakeRunner{statuses: map[string]eval.Status{"false": {Code: 1}}}
	require.NoError(t, runner.Eval(context.Background(), cmds, env, f.run))
	require.Equal(t, []string{"false", "else-body"}, f.ran)
}

func TestEvalWhileLoop(t *testing.T) {
	cmds := &ast.Commands{Items: []ast.Command{
		{Kind: ast.CmdWhile, Pipeline: prog("cond")},
		{Kind: ast.CmdPipeline, Pipeline: prog("body")},
		{Kind: ast.CmdEnd},
	}}
	env := &eval.Env{Vars: map[string]string{}}

	calls := 0
	f := &fakeRunner{}
	run := func(ctx context.Context, p ast.Pipeline, e *eval.Env) (pipeline.Outcome, error) {
		name, _ := p.Exes[0].Prog.Literal()
		f.ran = append(f.ran, name)
		if name == "cond" {
			calls++
			return pipeline.Outcome{Status: eval.Status{Code: boolToCode(calls <= 3)}}, nil
		}
		return pipeline.Outcome{Status: eval.Status{Code: 0}}, nil
	}

	require.NoError(t, runner.Eval(context.Background(), cmds, env, run))
	require.Equal(t, []string{"cond", "body", "cond", "body", "cond", "body", "cond"}, f.ran)
}

func boolToCode(b bool) int {
	if b {
		return 0
	}
	return 1
}

func TestEvalForLoop(t *testing.T) {
	cmds := &ast.Commands{Items: []ast.Command{
		{Kind: ast.CmdFor, ForVar: "i", ForWords: []ast.Word{
			{Parts: []ast.Part{{Kind: ast.Bareword, Text: "a"}}},
			{Parts: []ast.Part{{Kind: ast.Bareword, Text: "b"}}},
			{Parts: []ast.Part{{Kind: ast.Bareword, Text: "c"}}},
		}},
		{Kind: ast.CmdPipeline, Pipeline: prog("body")},
		{Kind: ast.CmdEnd},
	}}
	env := &eval.Env{Vars: map[string]string{}}

	var seenVars []string
	run := func(ctx context.Context, p ast.Pipeline, e *eval.Env) (pipeline.Outcome, error) {
		seenVars = append(seenVars, e.Vars["i"])
		return pipeline.Outcome{Status: eval.Status{Code: 0}}, nil
	}

	require.NoError(t, runner.Eval(context.Background(), cmds, env, run))
	require.Equal(t, []string{"a", "b", "c"}, seenVars)
}

func TestEvalIfFalseBodyNeverRuns(t *testing.T) {
	cmds := &ast.Commands{Items: []ast.Command{
		{Kind: ast.CmdIf, Pipeline: prog("false")},
		{Kind: ast.CmdWhile, Pipeline: prog("nested-cond")},
		{Kind: ast.CmdPipeline, Pipeline: prog("nested-body")},
		{Kind: ast.CmdEnd},
		{Kind: ast.CmdEnd},
	}}
	env := &eval.Env{Vars: map[string]string{}}
	f := &fakeRunner{statuses: map[string]eval.Status{"false": {Code: 1}}}
	require.NoError(t, runner.Eval(context.Background(), cmds, env, f.run))
	require.Equal(t, []string{"false"}, f.ran)
}

func TestEvalStatusPreservedAcrossIfHead(t *testing.T) {
	cmds := &ast.Commands{Items: []ast.Command{
		{Kind: ast.CmdPipeline, Pipeline: prog("set-status")},
		{Kind: ast.CmdIf, Pipeline: prog("true")},
		{Kind: ast.CmdEnd},
	}}
	env := &eval.Env{Vars: map[string]string{}}
	f := &fakeRunner{statuses: map[string]eval.Status{"set-status": {Code: 42}}}
	require.NoError(t, runner.Eval(context.Background(), cmds, env, f.run))
	require.Equal(t, 42, env.Status.Code)
}
