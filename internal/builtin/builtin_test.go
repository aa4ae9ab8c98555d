package builtin

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gsh-project/gsh/internal/ast"
	"github.com/gsh-project/gsh/internal/eval"
)

func readExe(name string) ast.Exe {
	return ast.Exe{Args: []ast.Word{
		{Parts: []ast.Part{{Kind: ast.Bareword, Text: name}}},
	}}
}

func TestRunReadSetsVarAndStripsTrailingNewline(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	_, err = w.WriteString("hello\nrest")
	require.NoError(t, err)
	w.Close()

	env := &eval.Env{Vars: map[string]string{}}
	code := Run("read", readExe("line"), env, Stdio{Stdin: r})

	assert.Equal(t, 0, code)
	assert.Equal(t, "hello", env.Vars["line"])
}

func TestRunReadEOFBeforeAnyByteExitsOne(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	w.Close()

	env := &eval.Env{Vars: map[string]string{}}
	code := Run("read", readExe("line"), env, Stdio{Stdin: r})

	assert.Equal(t, 1, code)
	assert.Equal(t, "", env.Vars["line"])
}

func TestRunReadEOFAfterPartialLineReturnsWhatItSaw(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	_, err = w.WriteString("partial")
	require.NoError(t, err)
	w.Close()

	env := &eval.Env{Vars: map[string]string{}}
	code := Run("read", readExe("line"), env, Stdio{Stdin: r})

	assert.Equal(t, 0, code)
	assert.Equal(t, "partial", env.Vars["line"])
}

func TestRunReadDoesNotConsumeBytesPastItsOwnLine(t *testing.T) {
	// A following pipeline stage reading the same stdin must still see
	// "second" in full: read must never look ahead past its own '\n'.
	r, w, err := os.Pipe()
	require.NoError(t, err)
	_, err = w.WriteString("first\nsecond")
	require.NoError(t, err)
	w.Close()

	env := &eval.Env{Vars: map[string]string{}}
	code := Run("read", readExe("line"), env, Stdio{Stdin: r})
	require.Equal(t, 0, code)
	require.Equal(t, "first", env.Vars["line"])

	rest, err := readLine(r)
	require.NoError(t, err)
	assert.Equal(t, "second", rest)
}
