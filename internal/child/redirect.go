package child

import (
	"fmt"
	"os"

	"github.com/gsh-project/gsh/internal/ast"
	"github.com/gsh-project/gsh/internal/eval"
)

// ResolvedRedirect is a Redirect with its target Word already evaluated
// to a concrete file path (or left as an fd reference) — spec.md §3:
// "target... is a Word, evaluated at spawn time."
type ResolvedRedirect struct {
	SourceFD  int
	TargetFD  int
	IsFDTarget bool
	Path       string
	Direction  ast.Direction
}

// ResolveRedirects evaluates every redirect target word against env.
func ResolveRedirects(redirects []ast.Redirect, env *eval.Env) ([]ResolvedRedirect, error) {
	out := make([]ResolvedRedirect, len(redirects))
	for i, r := range redirects {
		rr := ResolvedRedirect{SourceFD: r.SourceFD, Direction: r.Direction}
		if r.Target.IsFD {
			rr.IsFDTarget = true
			rr.TargetFD = r.Target.FD
		} else {
			path, err := eval.Word(r.Target.Path, env)
			if err != nil {
				return nil, err
			}
			rr.Path = path
		}
		out[i] = rr
	}
	return out, nil
}

// openFlags returns the os.OpenFile flags for a file-target redirect.
func (r ResolvedRedirect) openFlags() int {
	switch r.Direction {
	case ast.In:
		return os.O_RDONLY
	case ast.Append:
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND
	default: // ast.Out
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
}

// applyRedirects resolves the slot map by walking redirects left to right,
// snapshotting fd->fd references (e.g. `2>&1`) at the point they're
// applied rather than re-resolving them later, matching real shell
// semantics.
func applyRedirects(slots map[int]*os.File, redirects []ResolvedRedirect, opened *[]*os.File) error {
	for _, r := range redirects {
		var f *os.File
		if r.IsFDTarget {
			existing, ok := slots[r.TargetFD]
			if !ok {
				return fmt.Errorf("redirect to unopened fd %d", r.TargetFD)
			}
			f = existing
		} else {
			opened2, err := os.OpenFile(r.Path, r.openFlags(), 0o644)
			if err != nil {
				return fmt.Errorf("%w: %s", err, r.Path)
			}
			f = opened2
			*opened = append(*opened, f)
		}
		slots[r.SourceFD] = f
	}
	return nil
}
