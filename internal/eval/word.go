package eval

import (
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/gsh-project/gsh/internal/ast"
)

// NoSuchUserError is returned when `~name` doesn't resolve to a real
// user (spec.md §4.2).
type NoSuchUserError struct {
	Name string
}

func (e *NoSuchUserError) Error() string {
	return fmt.Sprintf("no such user: %s", e.Name)
}

// Word resolves one ast.Word to a concrete string against env,
// including escape processing, $var interpolation, and leading-tilde
// expansion (spec.md §4.2).
func Word(w ast.Word, env *Env) (string, error) {
	var b strings.Builder
	for _, part := range w.Parts {
		switch part.Kind {
		case ast.Bareword, ast.DoubleQuoted:
			b.WriteString(escapeInterpolate(part.Text, env))
		case ast.SingleQuoted:
			b.WriteString(unescapeSingleQuoted(part.Text))
		case ast.VarRef:
			b.WriteString(env.Getenv(part.Text))
		}
	}
	resolved := b.String()

	if len(w.Parts) > 0 && w.Parts[0].Kind == ast.Bareword && strings.HasPrefix(w.Parts[0].Text, "~") {
		expanded, err := ExpandTilde(resolved)
		if err != nil {
			return "", err
		}
		return expanded, nil
	}
	return resolved, nil
}

// Words resolves a list of ast.Word in order, stopping at the first
// error.
func Words(ws []ast.Word, env *Env) ([]string, error) {
	out := make([]string, len(ws))
	for i, w := range ws {
		s, err := Word(w, env)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// escapeInterpolate processes backslash escapes (any byte following \
// is taken literally) and $var interpolation over raw bareword /
// double-quoted text, in one left-to-right pass (spec §4.2).
func escapeInterpolate(s string, env *Env) string {
	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for i < len(s) {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			b.WriteByte(s[i+1])
			i += 2
			continue
		}
		if c == '$' {
			j := i + 1
			for j < len(s) && isIdentByte(s[j], j == i+1) {
				j++
			}
			if j > i+1 {
				b.WriteString(env.Getenv(s[i+1 : j]))
				i = j
				continue
			}
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

func isIdentByte(b byte, first bool) bool {
	if b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') {
		return true
	}
	if !first && b >= '0' && b <= '9' {
		return true
	}
	return false
}

// unescapeSingleQuoted processes only \\ and \' escapes; every other
// byte, including an unpaired backslash, is kept literal (spec §4.2).
func unescapeSingleQuoted(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for i < len(s) {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == '\\' || s[i+1] == '\'') {
			b.WriteByte(s[i+1])
			i += 2
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

// ExpandTilde expands a leading `~` or `~name` path component against
// the current or named user's home directory. A bare `~` uses $HOME
// when it is set, falling back to the current user's passwd entry.
// Expansion only ever touches the component before the first '/'.
func ExpandTilde(s string) (string, error) {
	if !strings.HasPrefix(s, "~") {
		return s, nil
	}
	rest := s[1:]
	name, tail := rest, ""
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		name, tail = rest[:idx], rest[idx:]
	}

	var home string
	if name == "" && os.Getenv("HOME") != "" {
		home = os.Getenv("HOME")
	} else if name == "" {
		u, err := user.Current()
		if err != nil {
			return "", fmt.Errorf("lookup current user: %w", err)
		}
		home = u.HomeDir
	} else {
		u, err := user.Lookup(name)
		if err != nil {
			return "", &NoSuchUserError{Name: name}
		}
		home = u.HomeDir
	}
	return home + tail, nil
}
