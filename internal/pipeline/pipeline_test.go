package pipeline_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gsh-project/gsh/internal/ast"
	"github.com/gsh-project/gsh/internal/eval"
	"github.com/gsh-project/gsh/internal/pipeline"
)

func word(s string) ast.Word {
	return ast.Word{Parts: []ast.Part{{Kind: ast.Bareword, Text: s}}}
}

func exe(prog string, args ...string) ast.Exe {
	e := ast.Exe{Prog: word(prog)}
	for _, a := range args {
		e.Args = append(e.Args, word(a))
	}
	return e
}

func TestRunSingleExternalStage(t *testing.T) {
	env, err := eval.New()
	require.NoError(t, err)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	p := ast.Pipeline{Exes: []ast.Exe{exe("/bin/echo", "hello")}}
	outcome, err := pipeline.Run(context.Background(), p, env, pipeline.Stdio{Stdout: w}, nil)
	w.Close()
	require.NoError(t, err)
	require.False(t, outcome.Suspended)
	require.True(t, outcome.Status.Success())

	buf := make([]byte, 64)
	n, _ := r.Read(buf)
	require.Equal(t, "hello\n", string(buf[:n]))
}

func TestRunPipelineTwoStages(t *testing.T) {
	env, err := eval.New()
	require.NoError(t, err)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	p := ast.Pipeline{Exes: []ast.Exe{exe("echo", "a b c"), exe("cat")}}
	outcome, err := pipeline.Run(context.Background(), p, env, pipeline.Stdio{Stdout: w}, nil)
	w.Close()
	require.NoError(t, err)
	require.True(t, outcome.Status.Success())

	buf := make([]byte, 64)
	n, _ := r.Read(buf)
	require.Equal(t, "a b c\n", string(buf[:n]))
}

func TestRunBuiltinEchoStage(t *testing.T) {
	env, err := eval.New()
	require.NoError(t, err)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	p := ast.Pipeline{Exes: []ast.Exe{exe("echo", "builtin-hi")}}
	outcome, err := pipeline.Run(context.Background(), p, env, pipeline.Stdio{Stdout: w}, nil)
	w.Close()
	require.NoError(t, err)
	require.Equal(t, 0, outcome.Status.Code)

	buf := make([]byte, 64)
	n, _ := r.Read(buf)
	require.Equal(t, "builtin-hi\n", string(buf[:n]))
}

func TestRunNonzeroExit(t *testing.T) {
	env, err := eval.New()
	require.NoError(t, err)

	p := ast.Pipeline{Exes: []ast.Exe{exe("false")}}
	outcome, err := pipeline.Run(context.Background(), p, env, pipeline.Stdio{}, nil)
	require.NoError(t, err)
	require.False(t, outcome.Status.Success())
	require.Equal(t, 1, outcome.Status.Code)
}

func TestRunCommandNotFound(t *testing.T) {
	env, err := eval.New()
	require.NoError(t, err)

	p := ast.Pipeline{Exes: []ast.Exe{exe("gsh-no-such-binary-xyz")}}
	_, err = pipeline.Run(context.Background(), p, env, pipeline.Stdio{}, nil)
	require.Error(t, err)
}
