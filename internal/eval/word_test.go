package eval_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gsh-project/gsh/internal/ast"
	"github.com/gsh-project/gsh/internal/eval"
)

func bareword(s string) ast.Word {
	return ast.Word{Parts: []ast.Part{{Kind: ast.Bareword, Text: s}}}
}

func TestWordEscapeAndInterpolate(t *testing.T) {
	env := &eval.Env{Vars: map[string]string{"FOO": "bar"}}
	got, err := eval.Word(bareword(`hello\ world-$FOO`), env)
	require.NoError(t, err)
	assert.Equal(t, "hello world-bar", got)
}

func TestWordSingleQuotedLiteral(t *testing.T) {
	env := &eval.Env{}
	w := ast.Word{Parts: []ast.Part{{Kind: ast.SingleQuoted, Text: `a\'b`}}}
	got, err := eval.Word(w, env)
	require.NoError(t, err)
	assert.Equal(t, `a'b`, got)
}

func TestWordVarRefMissingIsEmpty(t *testing.T) {
	env := &eval.Env{Vars: map[string]string{}}
	w := ast.Word{Parts: []ast.Part{{Kind: ast.VarRef, Text: "DOES_NOT_EXIST_XYZ"}}}
	got, err := eval.Word(w, env)
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestTildeExpansionHome(t *testing.T) {
	t.Setenv("HOME", "/home/u")
	env := &eval.Env{}
	got, err := eval.Word(bareword("~/x/y"), env)
	require.NoError(t, err)
	assert.Equal(t, "/home/u/x/y", got)
}

func TestTildeExpansionNoSuchUser(t *testing.T) {
	env := &eval.Env{}
	_, err := eval.Word(bareword("~nobody-xyz-does-not-exist"), env)
	require.Error(t, err)
	var nsu *eval.NoSuchUserError
	require.ErrorAs(t, err, &nsu)
}

func TestTildeNotExpandedMidWord(t *testing.T) {
	env := &eval.Env{}
	got, err := eval.Word(bareword("foo~bar"), env)
	require.NoError(t, err)
	assert.Equal(t, "foo~bar", got)
}

func TestEnvSetVarMirrorsProcessEnv(t *testing.T) {
	env := &eval.Env{Vars: map[string]string{}}
	env.SetVar("GSH_TEST_VAR", "1")
	defer os.Unsetenv("GSH_TEST_VAR")
	assert.Equal(t, "1", os.Getenv("GSH_TEST_VAR"))
	assert.Equal(t, "1", env.Getenv("GSH_TEST_VAR"))
}
